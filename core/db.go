package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor runs queries; both *sqlx.DB and *sqlx.Tx satisfy it.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// Tx is a scoped unit of work. Rollback after Commit is a no-op.
	Tx interface {
		Executor() DBExecutor
		Commit() error
		Rollback() error
	}

	// Transactor begins units of work.
	Transactor interface {
		Begin(ctx context.Context) (Tx, error)
	}

	Pinger interface {
		PingContext(ctx context.Context) error
	}
)

// TxExecutor returns the executor of tx, or nothing when tx is nil.
// The result is meant to be spread into a repository's optional `exec ...DBExecutor` parameter.
func TxExecutor(tx Tx) []DBExecutor {
	if tx == nil || tx.Executor() == nil {
		return nil
	}
	return []DBExecutor{tx.Executor()}
}
