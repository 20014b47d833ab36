package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so helpers can run
// standalone or as part of a caller's transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

// Clock returns the current time. Repositories derive "today" from it.
type Clock func() time.Time

// Today is the calendar date of the clock's current time, as a UTC midnight
// suitable for DATE parameters.
func (c Clock) Today() time.Time {
	now := time.Now
	if c != nil {
		now = c
	}
	y, m, d := now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
