package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with currency
type Money struct {
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
	Currency string          `json:"currency" yaml:"currency"`
}

// NewMoney creates a new Money instance with the given amount and currency
func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{
		Amount:   amount,
		Currency: currency,
	}
}

// NewMoneyFromFloat creates a new Money instance from a float64 amount.
// Use this sparingly as float64 can introduce precision errors.
func NewMoneyFromFloat(amount float64, currency string) Money {
	return Money{
		Amount:   decimal.NewFromFloat(amount),
		Currency: currency,
	}
}

// NewMoneyFromString creates a new Money instance from a string amount
func NewMoneyFromString(amount, currency string) (Money, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string '%s': %w", amount, err)
	}
	return Money{
		Amount:   dec,
		Currency: currency,
	}, nil
}

// ZeroMoney returns a Money instance with zero amount in the given currency
func ZeroMoney(currency string) Money {
	return Money{
		Amount:   decimal.Zero,
		Currency: currency,
	}
}

// IsZero returns true if the amount is zero
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Abs returns the absolute value of the money amount
func (m Money) Abs() Money {
	return Money{
		Amount:   m.Amount.Abs(),
		Currency: m.Currency,
	}
}

// Add adds another Money value of the same currency.
// Mismatched currencies are a caller error and return an error rather
// than silently converting.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != "" && other.Currency != "" && m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	currency := m.Currency
	if currency == "" {
		currency = other.Currency
	}
	return Money{
		Amount:   m.Amount.Add(other.Amount),
		Currency: currency,
	}, nil
}

// String returns the amount formatted with two decimal places and the currency code
func (m Money) String() string {
	if m.Currency == "" {
		return m.Amount.StringFixed(2)
	}
	return fmt.Sprintf("%s %s", m.Amount.StringFixed(2), m.Currency)
}

var amountCleanup = regexp.MustCompile(`[^\d.,\-]`)

// ParseAmount parses a currency-formatted string ("1'250.00", "$1,250.00",
// "1 250,00") into a decimal. Thousands separators are stripped and a
// trailing comma-decimal is normalized to a dot.
func ParseAmount(s string) (decimal.Decimal, error) {
	cleaned := amountCleanup.ReplaceAllString(strings.TrimSpace(s), "")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("no numeric content in '%s'", s)
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	if lastComma > lastDot {
		// Comma is the decimal separator; dots are thousands separators.
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", -1)
		// Only the last comma can be decimal; earlier ones were thousands.
		if n := strings.Count(cleaned, "."); n > 1 {
			cleaned = strings.Replace(cleaned, ".", "", n-1)
		}
	} else {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	return decimal.NewFromString(cleaned)
}
