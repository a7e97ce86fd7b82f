package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyAmount   = errors.New("empty amount")
)

// ParseDecimal reads a form or JSON number. Thousands separators are
// tolerated since terminals paste formatted figures.
func ParseDecimal(input string) (decimal.Decimal, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(input), ",", "")
	if trimmed == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, input)
	}
	return value, nil
}

// ParseOptional returns nil for a blank field.
func ParseOptional(input string) (*decimal.Decimal, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	value, err := ParseDecimal(input)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

// FormatGrams pads to the fine gold precision. Values that carry more places,
// such as a SALE weight, are shown as stored.
func FormatGrams(value decimal.Decimal) string {
	return padPlaces(value, 3)
}

func FormatAmount(value decimal.Decimal) string {
	return padPlaces(value, 2)
}

func padPlaces(value decimal.Decimal, places int32) string {
	if value.Exponent() < -places {
		return value.String()
	}
	return value.StringFixed(places)
}
