package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"goldledger/internal/models"

	"github.com/shopspring/decimal"
)

var (
	ErrProcedureRejected = errors.New("stored procedure rejected the call")
	ErrMalformedResponse = errors.New("malformed stored procedure response")
)

// TransactionStore is the remote ledger. Ownership and validation are enforced
// inside the stored functions; this type never touches the tables directly.
type TransactionStore struct {
	db DB
}

type procResult struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

type transactionRow struct {
	ID                string              `db:"id"`
	Type              string              `db:"type"`
	Weight            decimal.Decimal     `db:"weight"`
	Purity            decimal.Decimal     `db:"purity"`
	Reduction         decimal.NullDecimal `db:"reduction"`
	Rate              decimal.Decimal     `db:"rate"`
	FineGold          decimal.Decimal     `db:"fine_gold"`
	Amount            decimal.Decimal     `db:"amount"`
	RemainingFineGold decimal.NullDecimal `db:"remaining_fine_gold"`
	CreatedAt         time.Time           `db:"created_at"`
	UpdatedAt         *time.Time          `db:"updated_at"`
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Upsert is keyed by transaction id, so replaying a record is harmless.
func (s *TransactionStore) Upsert(ctx context.Context, tx models.Transaction) error {
	var raw []byte
	err := s.db.GetContext(ctx, &raw, `
		SELECT upsert_transaction_for_custom_user($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		tx.UserID, tx.ID, string(tx.Type), tx.Weight, tx.Purity, nullDecimal(tx.Reduction),
		tx.Rate, tx.FineGold, tx.Amount, nullDecimal(tx.RemainingFineGold), tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return parseProcResult(raw)
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	var rows []transactionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, type, weight, purity, reduction, rate, fine_gold, amount, remaining_fine_gold, created_at, updated_at
		FROM get_transactions_for_custom_user($1)
	`, userID)
	if err != nil {
		return nil, err
	}
	transactions := make([]models.Transaction, 0, len(rows))
	for _, row := range rows {
		tx, err := row.toModel(userID)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, nil
}

func (s *TransactionStore) DeleteAllByUser(ctx context.Context, userID string) error {
	var raw []byte
	if err := s.db.GetContext(ctx, &raw, `SELECT delete_transactions_for_custom_user($1)`, userID); err != nil {
		return err
	}
	return parseProcResult(raw)
}

// DeleteByUser removes one transaction of the user. A missing id is not an error.
func (s *TransactionStore) DeleteByUser(ctx context.Context, userID, id string) error {
	var raw []byte
	if err := s.db.GetContext(ctx, &raw, `SELECT delete_transaction_for_custom_user($1, $2)`, userID, id); err != nil {
		return err
	}
	return parseProcResult(raw)
}

func parseProcResult(raw []byte) error {
	var result procResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.Success == nil {
		return fmt.Errorf("%w: missing success flag", ErrMalformedResponse)
	}
	if !*result.Success {
		if result.Error == "" {
			return ErrProcedureRejected
		}
		return fmt.Errorf("%w: %s", ErrProcedureRejected, result.Error)
	}
	return nil
}

func (r transactionRow) toModel(userID string) (models.Transaction, error) {
	txType, err := models.ParseTransactionType(r.Type)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("%w: row %s: %v", ErrMalformedResponse, r.ID, err)
	}
	if r.ID == "" {
		return models.Transaction{}, fmt.Errorf("%w: row without id", ErrMalformedResponse)
	}
	updatedAt := r.CreatedAt
	if r.UpdatedAt != nil {
		updatedAt = *r.UpdatedAt
	}
	return models.Transaction{
		ID:                r.ID,
		UserID:            userID,
		Type:              txType,
		Weight:            r.Weight,
		Purity:            r.Purity,
		Reduction:         decimalPtr(r.Reduction),
		Rate:              r.Rate,
		FineGold:          r.FineGold,
		Amount:            r.Amount,
		RemainingFineGold: decimalPtr(r.RemainingFineGold),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         updatedAt,
	}, nil
}

func nullDecimal(value *decimal.Decimal) decimal.NullDecimal {
	if value == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*value)
}

func decimalPtr(value decimal.NullDecimal) *decimal.Decimal {
	if !value.Valid {
		return nil
	}
	v := value.Decimal
	return &v
}
