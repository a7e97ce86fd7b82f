package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"goldledger/internal/models"

	"github.com/shopspring/decimal"
)

func sampleTransaction() models.Transaction {
	reduction := decimal.RequireFromString("3")
	created := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	return models.Transaction{
		ID:        "tx-1",
		UserID:    "1234",
		Type:      models.TypeExchange,
		Weight:    decimal.RequireFromString("20"),
		Purity:    decimal.RequireFromString("91.6"),
		Reduction: &reduction,
		Rate:      decimal.NewFromInt(1),
		FineGold:  decimal.RequireFromString("17.72"),
		Amount:    decimal.RequireFromString("17.72"),
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestTransactionStoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "upsert_transaction_for_custom_user($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 12 || args[0] != "1234" || args[1] != "tx-1" || args[2] != "EXCHANGE" {
				t.Fatalf("unexpected args: %#v", args)
			}
			if reduction := args[5].(decimal.NullDecimal); !reduction.Valid || !reduction.Decimal.Equal(decimal.NewFromInt(3)) {
				t.Fatalf("unexpected reduction arg: %#v", args[5])
			}
			if remaining := args[9].(decimal.NullDecimal); remaining.Valid {
				t.Fatalf("expected null remaining fine gold")
			}
			setJSON(dest, `{"success":true}`)
			return nil
		},
	})
	if err := store.Upsert(ctx, sampleTransaction()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreUpsertRejected(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		getFn: func(_ context.Context, dest any, _ string, _ ...any) error {
			setJSON(dest, `{"success":false,"error":"transaction belongs to another user"}`)
			return nil
		},
	})
	err := store.Upsert(ctx, sampleTransaction())
	if !errors.Is(err, ErrProcedureRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if !strings.Contains(err.Error(), "another user") {
		t.Fatalf("expected server message in error: %v", err)
	}
}

func TestTransactionStoreUpsertMalformed(t *testing.T) {
	ctx := context.Background()
	for _, payload := range []string{`not json`, `{"error":"x"}`, `null`} {
		store := NewTransactionStore(stubDB{
			getFn: func(_ context.Context, dest any, _ string, _ ...any) error {
				setJSON(dest, payload)
				return nil
			},
		})
		if err := store.Upsert(ctx, sampleTransaction()); !errors.Is(err, ErrMalformedResponse) {
			t.Fatalf("payload %q: expected malformed response, got %v", payload, err)
		}
	}
}

func TestTransactionStoreUpsertTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	store := NewTransactionStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error { return boom },
	})
	if err := store.Upsert(context.Background(), sampleTransaction()); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestTransactionStoreListByUser(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "FROM get_transactions_for_custom_user($1)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "1234" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*[]transactionRow) = []transactionRow{
				{
					ID:        "tx-1",
					Type:      "PURCHASE",
					Weight:    decimal.NewFromInt(10),
					Purity:    decimal.RequireFromString("91.6"),
					Rate:      decimal.NewFromInt(6000),
					FineGold:  decimal.RequireFromString("9.16"),
					Amount:    decimal.NewFromInt(54960),
					CreatedAt: created,
				},
				{
					ID:                "tx-2",
					Type:              "EXCHANGE",
					Reduction:         decimal.NewNullDecimal(decimal.NewFromInt(3)),
					RemainingFineGold: decimal.NewNullDecimal(decimal.Zero),
					CreatedAt:         created,
				},
			}
			return nil
		},
	})
	rows, err := store.ListByUser(ctx, "1234")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("unexpected rows: %#v", rows)
	}
	if rows[0].UserID != "1234" || rows[0].Type != models.TypePurchase || rows[0].Reduction != nil {
		t.Fatalf("unexpected first row: %#v", rows[0])
	}
	if !rows[0].UpdatedAt.Equal(created) {
		t.Fatalf("updated_at should default to created_at")
	}
	if rows[1].Reduction == nil || rows[1].RemainingFineGold == nil {
		t.Fatalf("expected nullable columns to be mapped: %#v", rows[1])
	}
}

func TestTransactionStoreListByUserRejectsUnknownType(t *testing.T) {
	store := NewTransactionStore(stubDB{
		selectFn: func(_ context.Context, dest any, _ string, _ ...any) error {
			*dest.(*[]transactionRow) = []transactionRow{{ID: "tx-1", Type: "GIFT"}}
			return nil
		},
	})
	if _, err := store.ListByUser(context.Background(), "1234"); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestTransactionStoreDeleteAllByUser(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "delete_transactions_for_custom_user($1)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "1234" {
				t.Fatalf("unexpected args: %#v", args)
			}
			setJSON(dest, `{"success":true}`)
			return nil
		},
	})
	if err := store.DeleteAllByUser(ctx, "1234"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreDeleteByUser(t *testing.T) {
	ctx := context.Background()
	store := NewTransactionStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "delete_transaction_for_custom_user($1, $2)") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "1234" || args[1] != "tx-1" {
				t.Fatalf("unexpected args: %#v", args)
			}
			setJSON(dest, `{"success":true}`)
			return nil
		},
	})
	if err := store.DeleteByUser(ctx, "1234", "tx-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransactionStoreDeleteByUserRejected(t *testing.T) {
	store := NewTransactionStore(stubDB{
		getFn: func(_ context.Context, dest any, _ string, _ ...any) error {
			setJSON(dest, `{"success":false,"error":"transaction belongs to another user"}`)
			return nil
		},
	})
	if err := store.DeleteByUser(context.Background(), "1234", "tx-1"); !errors.Is(err, ErrProcedureRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}
