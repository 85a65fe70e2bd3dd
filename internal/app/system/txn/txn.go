// internal/app/system/txn/txn.go

// Package txn runs a function inside a MongoDB multi-document
// transaction, falling back to plain execution on deployments without
// replica-set support (standalone dev instances).
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn inside a transaction on db's client. When the server
// does not support transactions, fn runs once without one; callers keep
// their operations idempotent enough for that mode.
func Run(ctx context.Context, db *mongo.Database, logger *zap.Logger, fn func(ctx context.Context) error) error {
	session, err := db.Client().StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	if err != nil && IsNotSupported(err) {
		if logger != nil {
			logger.Debug("transactions unsupported, running without one", zap.Error(err))
		}
		return fn(ctx)
	}
	return err
}

// Transaction-incompatibility server error codes:
// 20 IllegalOperation, 51 (no transaction numbers), 263 OperationNotSupportedInTransaction.
var notSupportedCodes = map[int32]bool{20: true, 51: true, 263: true}

// IsNotSupported reports whether err indicates the deployment cannot
// run multi-document transactions.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if notSupportedCodes[cmdErr.Code] {
			return true
		}
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "transaction") && strings.Contains(msg, "replica set")
}
