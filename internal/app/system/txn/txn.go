// Package txn runs multi-document MongoDB operations atomically, with a
// fallback for deployments that do not support transactions (standalone
// mongod without a replica set).
//
// Usage:
//
//	err := txn.Run(ctx, db, log, func(ctx context.Context) error {
//	    // operations here commit together when transactions are available
//	    return nil
//	})
//
// The fallback keeps the service usable in dev and test environments at the
// cost of best-effort atomicity; production deployments are expected to run
// a replica set.
package txn

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Func receives either a mongo.SessionContext (inside a transaction) or the
// original context (fallback); use it for every database operation.
type Func func(ctx context.Context) error

// Run executes fn inside a MongoDB transaction when possible, falling back
// to plain execution when the deployment does not support transactions.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn Func) error {
	session, err := db.Client().StartSession()
	if err != nil {
		if log != nil {
			log.Warn("failed to start session, running without transaction", zap.Error(err))
		}
		return fn(ctx)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		if IsNotSupported(err) {
			if log != nil {
				log.Warn("transactions not supported, running without transaction", zap.Error(err))
			}
			return fn(ctx)
		}
		return err
	}
	return nil
}

// IsNotSupported reports whether an error indicates the deployment cannot
// run multi-document transactions (standalone MongoDB, DocumentDB with
// transactions disabled).
//
// Known error codes:
//   - 20: "Transaction numbers are only allowed on a replica set member or mongos"
//   - 51: IllegalOperation
//   - 263: "Cannot run 'aggregate' in a multi-document transaction"
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	if cmdErr, ok := err.(mongo.CommandError); ok {
		switch cmdErr.Code {
		case 20, 51, 263:
			return true
		}
	}

	// Fall back to message matching; require two keyword hits to avoid
	// false positives on unrelated errors that mention "session".
	errStr := strings.ToLower(err.Error())
	keywords := []string{"transaction", "replica set", "session", "not supported", "illegal operation"}
	matches := 0
	for _, kw := range keywords {
		if strings.Contains(errStr, kw) {
			matches++
		}
	}
	return matches >= 2
}
