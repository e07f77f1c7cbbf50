package authutil

import (
	"errors"
	"strings"
	"testing"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"ok", "copper-kettle", nil},
		{"min length", "tr33s!", nil},
		{"max length", strings.Repeat("a", MaxPasswordLength), nil},
		{"too short", "abc12", ErrPasswordTooShort},
		{"empty", "", ErrPasswordTooShort},
		{"over bcrypt limit", strings.Repeat("a", MaxPasswordLength+1), ErrPasswordTooLong},
		{"multibyte over limit", strings.Repeat("é", 37), ErrPasswordTooLong},
		{"common", "password", ErrPasswordCommon},
		{"common any case", "ChangeMe", ErrPasswordCommon},
		{"common site admin", "webmaster", ErrPasswordCommon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePassword(tt.password); !errors.Is(err, tt.want) {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.password, err, tt.want)
			}
		})
	}
}

func TestCommonPasswordsAreLowercase(t *testing.T) {
	for p := range commonPasswords {
		if p != strings.ToLower(p) {
			t.Errorf("common password %q must be lowercase to match", p)
		}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	const pw = "Blue-Harbor-42"
	hash, err := HashPassword(pw)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == pw || !strings.HasPrefix(hash, "$2") {
		t.Fatalf("HashPassword() = %q, want a bcrypt hash", hash)
	}

	other, err := HashPassword(pw)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if other == hash {
		t.Error("HashPassword() returned the same hash twice; salt missing")
	}

	tests := []struct {
		name     string
		password string
		hash     string
		want     bool
	}{
		{"match", pw, hash, true},
		{"second hash matches", pw, other, true},
		{"wrong password", "blue-harbor-42", hash, false},
		{"empty password", "", hash, false},
		{"empty hash", pw, "", false},
		{"not a hash", pw, "plaintext", false},
	}
	for _, tt := range tests {
		if got := CheckPassword(tt.password, tt.hash); got != tt.want {
			t.Errorf("%s: CheckPassword() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHashPassword_TooLong(t *testing.T) {
	if _, err := HashPassword(strings.Repeat("x", MaxPasswordLength+1)); err == nil {
		t.Error("HashPassword() over the bcrypt limit should fail")
	}
}

func TestWeakPasswordError(t *testing.T) {
	err := ValidateStrongPassword("lowercase-only")
	var weak *WeakPasswordError
	if !errors.As(err, &weak) {
		t.Fatalf("ValidateStrongPassword() = %v, want *WeakPasswordError", err)
	}
	if len(weak.Missing) == 0 || !strings.HasPrefix(weak.Error(), "Password needs ") {
		t.Errorf("WeakPasswordError = %q, missing %v", weak.Error(), weak.Missing)
	}
}
