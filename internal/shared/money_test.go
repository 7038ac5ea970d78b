package shared

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	cases := map[string]struct {
		in   float64
		want string
	}{
		"rounds up":     {1234.567, "1,234.57"},
		"rounds down":   {1234.561, "1,234.56"},
		"negative":      {-1234.56, "-1,234.56"},
		"zero":          {0, "0.00"},
		"whole":         {1234, "1,234.00"},
		"one decimal":   {1234.5, "1,234.50"},
		"millions":      {1234567.89, "1,234,567.89"},
		"not a number":  {math.NaN(), "0.00"},
		"negative zero": {-0.001, "0.00"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatCurrency(tc.in))
		})
	}
}

func TestNormalizeNumberInput(t *testing.T) {
	assert.Equal(t, "123", NormalizeNumberInput("abc123def"))
	assert.Equal(t, "12.34", NormalizeNumberInput("12.34"))
	assert.Equal(t, "12.34", NormalizeNumberInput("12.3.4"))
	assert.Equal(t, "123", NormalizeNumberInput("0123"))
	assert.Equal(t, "12.34", NormalizeNumberInput("012.34"))
	assert.Equal(t, "0.56", NormalizeNumberInput("0.56"))
	assert.Equal(t, "0", NormalizeNumberInput("0"))
	assert.Equal(t, "0", NormalizeNumberInput("000"))
	assert.Equal(t, "", NormalizeNumberInput(""))
}

func TestParseAmount(t *testing.T) {
	valid := map[string]float64{
		"1,250.50": 1250.5,
		" 80 ":     80,
		"0.1":      0.1,
		".5":       0.5,
		"-50":      -50,
		"0":        0,
	}
	for in, want := range valid {
		got, err := ParseAmount(in)
		if assert.NoError(t, err, in) {
			assert.InDelta(t, want, got, 1e-9, in)
		}
	}

	for _, in := range []string{"", "-", ".", "1.2.3", "5e1", "Inf", "NaN", "0x10", "12abc", "1 000", "--5", "$10"} {
		_, err := ParseAmount(in)
		assert.ErrorIs(t, err, ErrNotANumber, in)
	}
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(15000), Cents(150.00))
	assert.Equal(t, int64(30), Cents(0.1+0.2))
}

func TestNewPagination(t *testing.T) {
	p := NewPagination(1, 10, 23)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNext)
	assert.False(t, p.HasPrev)

	p = NewPagination(3, 10, 23)
	assert.False(t, p.HasNext)
	assert.True(t, p.HasPrev)

	empty := NewPagination(1, 10, 0)
	assert.Equal(t, 1, empty.TotalPages)
	assert.False(t, empty.HasNext)

	assert.Equal(t, 0, ZeroBased(1))
	assert.Equal(t, 2, ZeroBased(3))
}
