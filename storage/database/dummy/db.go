// Package dummydb is an in-memory stand-in for the PostgreSQL repositories.
// It enforces the same uniqueness and status rules, which makes it suitable for tests and local runs.
package dummydb

import (
	"context"
	"sync"

	"github.com/mahimaacademy/academy/core"
	"github.com/mahimaacademy/academy/core/course"
	"github.com/mahimaacademy/academy/core/enrollment"
	"github.com/mahimaacademy/academy/core/lesson"
	"github.com/mahimaacademy/academy/core/payment"
	"github.com/mahimaacademy/academy/core/user"
)

type (
	DB struct {
		mu     sync.Mutex
		tables tables
	}

	tables struct {
		seq      int
		order    map[string]int // insertion order, breaks created_at ties
		users    map[string]user.User
		courses  map[string]course.Course
		grants   map[string]enrollment.Grant
		payments map[string]payment.PaymentRequest
		lessons  map[string]lesson.Lesson
	}

	txKey struct{}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func Open() (*DB, error) {
	return &DB{tables: newTables()}, nil
}

func newTables() tables {
	return tables{
		order:    make(map[string]int),
		users:    make(map[string]user.User),
		courses:  make(map[string]course.Course),
		grants:   make(map[string]enrollment.Grant),
		payments: make(map[string]payment.PaymentRequest),
		lessons:  make(map[string]lesson.Lesson),
	}
}

func (t tables) clone() tables {
	c := newTables()
	c.seq = t.seq
	for k, v := range t.order {
		c.order[k] = v
	}
	for k, v := range t.users {
		c.users[k] = v
	}
	for k, v := range t.courses {
		c.courses[k] = v
	}
	for k, v := range t.grants {
		c.grants[k] = v
	}
	for k, v := range t.payments {
		c.payments[k] = v
	}
	for k, v := range t.lessons {
		c.lessons[k] = v
	}
	return c
}

func (t *tables) inserted(id string) {
	t.seq++
	t.order[id] = t.seq
}

// lock takes the DB lock unless ctx belongs to a transaction already holding it.
func (db *DB) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*DB); owner == db {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

// WithinTx runs fn with the whole DB locked and restores its previous content when fn fails.
func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if owner, _ := ctx.Value(txKey{}).(*DB); owner == db {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.tables.clone()
	defer func() {
		if p := recover(); p != nil {
			db.tables = snapshot
			panic(p)
		}
		if err != nil {
			db.tables = snapshot
		}
	}()
	return fn(context.WithValue(ctx, txKey{}, db))
}

// Flush empties every table.
func (db *DB) Flush() {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tables = newTables()
}
