// Package money parses and formats rupiah amounts written the Indonesian
// way: "." groups thousands, "," starts the (unused) fraction.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrInvalidAmount = errors.New("invalid amount")

var printer = message.NewPrinter(language.Indonesian)

// Parse reads "1.234.567", "Rp 1.234.567" or "-5.000" into an integer.
// A fraction is accepted only when it is all zeros ("10.000,00").
func Parse(s string) (int64, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimPrefix(raw, "Rp")
	raw = strings.TrimSpace(raw)

	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	if whole, frac, ok := strings.Cut(raw, ","); ok {
		if strings.Trim(frac, "0") != "" {
			return 0, fmt.Errorf("%q has a fractional part: %w", s, ErrInvalidAmount)
		}
		raw = whole
	}
	if strings.Contains(raw, ".") {
		if !validGrouping(raw) {
			return 0, fmt.Errorf("%q has misplaced separators: %w", s, ErrInvalidAmount)
		}
		raw = strings.ReplaceAll(raw, ".", "")
	}
	if raw == "" {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
		}
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q: %w", s, ErrInvalidAmount)
	}
	if neg {
		n = -n
	}
	return n, nil
}

// validGrouping reports whether every "." sits between thousands groups:
// the first group has 1 to 3 digits, every later group exactly 3.
func validGrouping(raw string) bool {
	groups := strings.Split(raw, ".")
	if n := len(groups[0]); n < 1 || n > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// Format groups thousands with ".": 1234567 -> "1.234.567".
func Format(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatRupiah prefixes the grouped amount: "Rp 1.234.567", "-Rp 5.000".
func FormatRupiah(n int64) string {
	if n < 0 {
		return "-Rp " + Format(-n)
	}
	return "Rp " + Format(n)
}
