package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "plain integer", input: "250000", expected: "250000"},
		{name: "decimal", input: "1250.50", expected: "1250.5"},
		{name: "dollar sign", input: "$4,500.00", expected: "4500"},
		{name: "swiss thousands separator", input: "1'250.00", expected: "1250"},
		{name: "comma decimal", input: "1.250,75", expected: "1250.75"},
		{name: "space thousands", input: "1 250,00", expected: "1250"},
		{name: "negative", input: "-300.25", expected: "-300.25"},
		{name: "currency code prefix", input: "CHF 1'200.00", expected: "1200"},
		{name: "empty", input: "", wantErr: true},
		{name: "no digits", input: "PAID", wantErr: true},
		{name: "lone minus", input: "-", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)),
				"got %s, want %s", got, tt.expected)
		})
	}
}

func TestMoneyAdd(t *testing.T) {
	a := NewMoneyFromFloat(100.50, "USD")
	b := NewMoneyFromFloat(49.50, "USD")

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150.00 USD", sum.String())

	_, err = a.Add(NewMoneyFromFloat(10, "EUR"))
	assert.Error(t, err, "mismatched currencies must not add")

	// Currency-less money adopts the other side's currency.
	sum, err = NewMoneyFromFloat(5, "").Add(b)
	require.NoError(t, err)
	assert.Equal(t, "USD", sum.Currency)
}

func TestMoneyString(t *testing.T) {
	assert.Equal(t, "42.00", NewMoneyFromFloat(42, "").String())
	assert.Equal(t, "0.00 CHF", ZeroMoney("CHF").String())
}
