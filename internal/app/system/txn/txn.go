// Package txn runs multi-document writes in a MongoDB transaction when the
// deployment supports one.
//
// The about page activation and portfolio category removal touch several
// documents that must change together. On a replica set they commit
// atomically; on a standalone development server Run retries the same
// function without a session and logs a warning.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Func performs the writes. ctx is a mongo.SessionContext inside a
// transaction and the caller's context otherwise; pass it to every call.
type Func func(ctx context.Context) error

// Run executes fn in a transaction, falling back to a plain call when
// sessions or transactions are unavailable. log may be nil.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn Func) error {
	session, err := db.Client().StartSession()
	if err != nil {
		warn(log, "failed to start session, running without transaction", err)
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if IsNotSupported(err) {
		warn(log, "transactions not supported, running without transaction", err)
		return fn(ctx)
	}
	return err
}

func warn(log *zap.Logger, msg string, err error) {
	if log != nil {
		log.Warn(msg, zap.Error(err))
	}
}

// notSupportedCodes are server codes for "this deployment cannot run a
// transaction": 20 IllegalOperation (standalone), 51, and 263 (operation
// not allowed in a transaction).
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err means the deployment cannot run
// transactions at all, as opposed to a failure inside one.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && notSupportedCodes[cmdErr.Code] {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "replica set") && strings.Contains(msg, "transaction") {
		return true
	}
	return strings.Contains(msg, "transaction") && strings.Contains(msg, "not supported")
}
