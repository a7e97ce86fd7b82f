package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var ErrUnknownTransactionType = errors.New("unknown transaction type")

type TransactionType string

const (
	TypeExchange TransactionType = "EXCHANGE"
	TypePurchase TransactionType = "PURCHASE"
	TypeSale     TransactionType = "SALE"
)

func ParseTransactionType(raw string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(raw)))
	if !t.Valid() {
		return "", ErrUnknownTransactionType
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	switch t {
	case TypeExchange, TypePurchase, TypeSale:
		return true
	}
	return false
}

// Transaction is one counter entry. FineGold, Amount and RemainingFineGold
// are derived from the inputs and are never edited directly.
type Transaction struct {
	ID                string           `json:"id"`
	UserID            string           `json:"user_id"`
	Type              TransactionType  `json:"type"`
	Weight            decimal.Decimal  `json:"weight"`
	Purity            decimal.Decimal  `json:"purity"`
	Reduction         *decimal.Decimal `json:"reduction,omitempty"`
	Rate              decimal.Decimal  `json:"rate"`
	FineGold          decimal.Decimal  `json:"fine_gold"`
	Amount            decimal.Decimal  `json:"amount"`
	RemainingFineGold *decimal.Decimal `json:"remaining_fine_gold,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	PendingSync       bool             `json:"pending_sync,omitempty"`
}

// FormData is the raw field snapshot submitted by a terminal.
type FormData struct {
	Weight    string `json:"weight"`
	Purity    string `json:"purity"`
	Reduction string `json:"reduction"`
	Rate      string `json:"rate"`
	Cash      string `json:"cash"`
}

type CalculationResult struct {
	FineGold          decimal.Decimal  `json:"fine_gold"`
	Amount            decimal.Decimal  `json:"amount"`
	RemainingFineGold *decimal.Decimal `json:"remaining_fine_gold,omitempty"`
}
