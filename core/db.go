package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	DBExecutor interface {
		sqlx.ExtContext

		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	DBTransactor interface {
		DBExecutor

		Commit() error
		Rollback() error
	}

	// Transactor runs fn inside a single transaction.
	// The transaction travels in the context handed to fn; repositories pick it up from there.
	// A nested call joins the outer transaction.
	Transactor interface {
		WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
	}
)

type txKey struct{}

func ContextWithTx(ctx context.Context, tx DBTransactor) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFromContext(ctx context.Context) (DBTransactor, bool) {
	tx, ok := ctx.Value(txKey{}).(DBTransactor)
	return tx, ok
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
