// Package sqlxrepos implements the domain repositories on PostgreSQL with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/mahimaacademy/academy/core"
)

// PostgreSQL error codes
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// error classes after which the same statement may succeed
var transientClasses = []string{
	"08", // connection exception
	"40", // transaction rollback (serialization failure, deadlock)
	"53", // insufficient resources
	"57", // operator intervention
}

type executor struct {
	db core.DBExecutor
}

// getExec returns the transaction carried by ctx, or the database.
func (e executor) getExec(ctx context.Context) core.DBExecutor {
	if tx, ok := core.TxFromContext(ctx); ok {
		return tx
	}
	return e.db
}

func pqErr(err error) (*pq.Error, bool) {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

func isUniqueViolation(err error, constraint string) bool {
	pe, ok := pqErr(err)
	return ok && string(pe.Code) == uniqueViolation && (constraint == "" || pe.Constraint == constraint)
}

func isForeignKeyViolation(err error) bool {
	pe, ok := pqErr(err)
	return ok && string(pe.Code) == foreignKeyViolation
}

// wrapErr wraps err with msg, marking it transient when the failure is worth a retry.
func wrapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	err = errors.Wrap(err, msg)
	if pe, ok := pqErr(err); ok {
		class := string(pe.Code)[:2]
		for _, c := range transientClasses {
			if class == c {
				return core.NewTransientError(err)
			}
		}
		return err
	}
	if core.IsTransient(err) {
		return core.NewTransientError(err)
	}
	return err
}

// trapNoRows maps "no rows" to notFound.
func trapNoRows(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return wrapErr(err, msg)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func newID() string {
	return uuid.New().String()
}

// orderBy renders ordering, keeping only whitelisted columns.
func orderBy(ordering []core.DBOrdering, columns map[string]string) string {
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		parts = append(parts, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
