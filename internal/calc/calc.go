// Package calc converts counter inputs into fine gold and currency amounts.
// Every function is pure; callers may run them on each keystroke.
package calc

import (
	"errors"
	"fmt"

	"goldledger/internal/models"

	"github.com/shopspring/decimal"
)

const (
	FineGoldPlaces = 3
	AmountPlaces   = 2
)

var ErrInvalidTransactionType = errors.New("invalid transaction type")

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Exchange settles in fine gold. A reduction larger than the purity yields a
// negative fine gold figure; it is not clamped here.
func Exchange(weight, purity, reduction, rate, cash decimal.Decimal) models.CalculationResult {
	fineGold := weight.Mul(purity.Sub(reduction)).Div(hundred).Round(FineGoldPlaces)
	amount := fineGold.Mul(rate).Round(AmountPlaces)
	remaining := decimal.Zero
	if cash.IsPositive() && !rate.IsZero() {
		remaining = fineGold.Sub(cash.Div(rate)).Round(FineGoldPlaces)
	}
	return models.CalculationResult{
		FineGold:          fineGold,
		Amount:            amount,
		RemainingFineGold: &remaining,
	}
}

func Purchase(weight, purity, rate decimal.Decimal) models.CalculationResult {
	fineGold := weight.Mul(purity).Div(hundred).Round(FineGoldPlaces)
	return models.CalculationResult{
		FineGold: fineGold,
		Amount:   fineGold.Mul(rate).Round(AmountPlaces),
	}
}

// Sale is denominated in gross weight, so fine gold is the weight as given.
func Sale(weight, rate decimal.Decimal) models.CalculationResult {
	return models.CalculationResult{
		FineGold: weight,
		Amount:   weight.Mul(rate).Round(AmountPlaces),
	}
}

// Calculate dispatches on the transaction type. A nil reduction or cash counts as zero.
func Calculate(txType models.TransactionType, weight, purity, rate decimal.Decimal, reduction, cash *decimal.Decimal) (models.CalculationResult, error) {
	switch txType {
	case models.TypeExchange:
		return Exchange(weight, purity, orZero(reduction), rate, orZero(cash)), nil
	case models.TypePurchase:
		return Purchase(weight, purity, rate), nil
	case models.TypeSale:
		return Sale(weight, rate), nil
	}
	return models.CalculationResult{}, fmt.Errorf("%w: %q", ErrInvalidTransactionType, txType)
}

// Normalize applies the per-type pins: SALE is always 100% pure, EXCHANGE
// always has a rate of 1, and only EXCHANGE carries a reduction.
func Normalize(txType models.TransactionType, purity, rate decimal.Decimal, reduction *decimal.Decimal) (decimal.Decimal, decimal.Decimal, *decimal.Decimal) {
	switch txType {
	case models.TypeSale:
		return hundred, rate, nil
	case models.TypeExchange:
		r := orZero(reduction)
		return purity, one, &r
	}
	return purity, rate, nil
}

func orZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}
