package store

import (
	"context"
)

// The remote ledger is only reached through stored functions, so every call
// is a SELECT returning either a JSON status document or a row set.

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Getter
	Selecter
}
