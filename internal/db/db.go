package db

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Querier interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

func Connect(ctx context.Context, databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	configurePool(db)
	return db, nil
}

// Open is Connect without the initial ping. The ledger starts even when the
// database is unreachable and serves writes from the offline queue.
func Open(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	configurePool(db)
	return db, nil
}

func configurePool(db *sqlx.DB) {
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetMaxIdleConns(5)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)
}

// TimeoutQuerier bounds every remote call so an unreachable database falls
// back to the offline queue instead of hanging the request.
type TimeoutQuerier struct {
	inner   Querier
	timeout time.Duration
}

func WithTimeout(inner Querier, timeout time.Duration) *TimeoutQuerier {
	return &TimeoutQuerier{inner: inner, timeout: timeout}
}

func (q *TimeoutQuerier) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	ctx, cancel := q.bound(ctx)
	defer cancel()
	return q.inner.GetContext(ctx, dest, query, args...)
}

func (q *TimeoutQuerier) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	ctx, cancel := q.bound(ctx)
	defer cancel()
	return q.inner.SelectContext(ctx, dest, query, args...)
}

func (q *TimeoutQuerier) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, q.timeout)
}
