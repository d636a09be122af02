package dateutils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "ISO", input: "2024-06-15", expected: "2024-06-15"},
		{name: "slash ISO", input: "2024/06/15", expected: "2024-06-15"},
		{name: "european dots", input: "15.06.2024", expected: "2024-06-15"},
		{name: "european slashes", input: "15/06/2024", expected: "2024-06-15"},
		{name: "day first wins ambiguity", input: "03/04/2024", expected: "2024-04-03"},
		{name: "month name", input: "Jan 2, 2024", expected: "2024-01-02"},
		{name: "padded whitespace", input: "  2024-06-15  ", expected: "2024-06-15"},
		{name: "garbage", input: "not a date", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ToISODate(got))
		})
	}
}

func TestTryParseDate(t *testing.T) {
	assert.Nil(t, TryParseDate("Q2 payment"))
	d := TryParseDate("2024-06-15")
	require.NotNil(t, d)
	assert.Equal(t, 2024, d.Year())
}

func TestWithinDays(t *testing.T) {
	day := func(s string) *time.Time {
		d, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return &d
	}

	assert.True(t, WithinDays(day("2024-03-15"), day("2024-03-16"), 1))
	assert.True(t, WithinDays(day("2024-03-16"), day("2024-03-15"), 1))
	assert.False(t, WithinDays(day("2024-03-15"), day("2024-03-18"), 1))
	assert.True(t, WithinDays(day("2024-03-15"), day("2024-03-18"), 5))
	assert.False(t, WithinDays(nil, day("2024-03-15"), 10))
	assert.False(t, WithinDays(day("2024-03-15"), nil, 10))
}
