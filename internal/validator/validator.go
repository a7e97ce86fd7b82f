package validator

import (
	"errors"
	"regexp"

	"goldledger/internal/models"
	"goldledger/internal/money"

	playground "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidUserID = errors.New("invalid user id")
	ErrInvalidPIN    = errors.New("invalid pin")
)

var (
	userIDRegex = regexp.MustCompile(`^[0-9]{4}$`)
	pinRegex    = regexp.MustCompile(`^[0-9]{4,6}$`)
)

var validate = newValidator()

func newValidator() *playground.Validate {
	v := playground.New()
	_ = v.RegisterValidation("dgt", decimalCompare(func(value, bound decimal.Decimal) bool { return value.GreaterThan(bound) }))
	_ = v.RegisterValidation("dgte", decimalCompare(func(value, bound decimal.Decimal) bool { return value.GreaterThanOrEqual(bound) }))
	_ = v.RegisterValidation("dlte", decimalCompare(func(value, bound decimal.Decimal) bool { return value.LessThanOrEqual(bound) }))
	return v
}

func decimalCompare(cmp func(value, bound decimal.Decimal) bool) playground.Func {
	return func(fl playground.FieldLevel) bool {
		value, err := money.ParseDecimal(fl.Field().String())
		if err != nil {
			return false
		}
		bound, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return cmp(value, bound)
	}
}

type fieldRule struct {
	field    string
	label    string
	tags     string
	boundMsg string
}

var (
	weightRule    = fieldRule{"weight", "Weight", "required,dgt=0", "must be greater than 0"}
	purityRule    = fieldRule{"purity", "Purity", "required,dgt=0,dlte=100", "must be between 0 and 100"}
	reductionRule = fieldRule{"reduction", "Reduction", "required,dgte=0", "must be 0 or greater"}
	rateRule      = fieldRule{"rate", "Rate", "required,dgt=0", "must be greater than 0"}
	cashRule      = fieldRule{"cash", "Cash", "omitempty,dgte=0", "must be 0 or greater"}
)

// ValidateTransactionForm returns field name -> message. An empty map means
// the form may be calculated and saved. Fields a type hides are not checked:
// SALE skips purity, only EXCHANGE checks reduction and the optional cash
// settlement, EXCHANGE skips rate.
func ValidateTransactionForm(form models.FormData, txType models.TransactionType) map[string]string {
	errs := map[string]string{}
	if !txType.Valid() {
		errs["type"] = "Type must be EXCHANGE, PURCHASE or SALE"
		return errs
	}
	check(errs, weightRule, form.Weight)
	if txType != models.TypeSale {
		check(errs, purityRule, form.Purity)
	}
	if txType == models.TypeExchange {
		check(errs, reductionRule, form.Reduction)
		check(errs, cashRule, form.Cash)
	} else {
		check(errs, rateRule, form.Rate)
	}
	return errs
}

func check(errs map[string]string, rule fieldRule, value string) {
	err := validate.Var(value, rule.tags)
	if err == nil {
		return
	}
	var fieldErrs playground.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 && fieldErrs[0].Tag() == "required" {
		errs[rule.field] = rule.label + " is required"
		return
	}
	errs[rule.field] = rule.label + " " + rule.boundMsg
}

func ValidateUserID(userID string) error {
	if !userIDRegex.MatchString(userID) {
		return ErrInvalidUserID
	}
	return nil
}

func ValidatePIN(pin string) error {
	if !pinRegex.MatchString(pin) {
		return ErrInvalidPIN
	}
	return nil
}
