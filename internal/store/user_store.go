package store

import (
	"context"
	"database/sql"
	"errors"
)

var ErrUserNotFound = errors.New("business user not found")

// UserStore reads the business-user records behind the PIN login.
type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetPinHash(ctx context.Context, userID string) (string, error) {
	var hash sql.NullString
	err := s.db.GetContext(ctx, &hash, `SELECT get_custom_user_pin_hash($1)`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	if !hash.Valid || hash.String == "" {
		return "", ErrUserNotFound
	}
	return hash.String, nil
}
