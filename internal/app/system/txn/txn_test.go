package txn

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
)

func TestIsNotSupported(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"standalone code", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"wrapped code", fmt.Errorf("activate: %w", mongo.CommandError{Code: 263}), true},
		{"other code", mongo.CommandError{Code: 11000, Message: "duplicate key"}, false},
		{"documentdb message", errors.New("Transactions are not supported on this cluster"), true},
		{"replica set message", errors.New("transaction requires a replica set"), true},
		{"plain failure", errors.New("connection reset"), false},
		{"session only", errors.New("session expired"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotSupported(tt.err); got != tt.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
