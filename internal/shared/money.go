package shared

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var currencyPrinter = message.NewPrinter(language.English)

// FormatCurrency renders an amount with two fraction digits and thousands
// separators ("1,234.57"). NaN and infinities render as "0.00".
func FormatCurrency(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	// Avoid "-0.00" for amounts that round to zero.
	if math.Abs(v) < 0.005 {
		v = 0
	}
	return currencyPrinter.Sprintf("%.2f", v)
}

// Cents converts an amount to whole cents for comparisons.
func Cents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// ErrNotANumber is returned by ParseAmount for text that is not a plain
// decimal number.
var ErrNotANumber = errors.New("not a number")

// ParseAmount reads a complete amount such as "1,250.50". Comma thousands
// separators are dropped; exponents, infinities and any other character
// are rejected. A leading minus is kept so that validation, not parsing,
// reports non-positive amounts.
func ParseAmount(in string) (float64, error) {
	s := strings.ReplaceAll(strings.TrimSpace(in), ",", "")
	digits := strings.TrimPrefix(s, "-")
	if digits == "" || digits == "." ||
		strings.Trim(digits, "0123456789.") != "" ||
		strings.Count(digits, ".") > 1 {
		return 0, ErrNotANumber
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, ErrNotANumber
	}
	return v, nil
}

// NormalizeNumberInput cleans a number field as it is being typed: it keeps
// digits and the first decimal point and drops leading zeros of the
// integer part. It is a keystroke filter, not a parser; complete values go
// through ParseAmount.
func NormalizeNumberInput(in string) string {
	var b strings.Builder
	seenDot := false
	for _, r := range in {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !seenDot:
			seenDot = true
			b.WriteRune(r)
		}
	}
	return trimLeadingZeros(b.String())
}

func trimLeadingZeros(s string) string {
	if s == "" || s == "0" {
		return s
	}
	intPart, frac, hasDot := strings.Cut(s, ".")
	intPart = strings.TrimLeft(intPart, "0")
	if intPart == "" {
		intPart = "0"
	}
	if hasDot {
		return intPart + "." + frac
	}
	return intPart
}
