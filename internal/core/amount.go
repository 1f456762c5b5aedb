// Package core provides amount parsing and handling utilities.
//
// This file contains the functions that turn captured mail text into
// non-negative decimal amounts and format them as yen for display.
package core

import (
	"errors"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// ParseAmount parses a non-negative decimal string.
//
// Surrounding whitespace is ignored. Negative values and anything
// decimal.NewFromString rejects return ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("10000")  -> 10000, nil
//	ParseAmount("12.5")   -> 12.5, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// NormalizeAmount is ParseAmount with every failure mapped to zero.
func NormalizeAmount(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// CleanYenAmount strips the yen sign and thousands separators from a captured
// amount such as "¥10,000".
func CleanYenAmount(s string) string {
	r := strings.NewReplacer("¥", "", "￥", "", ",", "", "，", "")
	return strings.TrimSpace(r.Replace(s))
}

// FormatYen renders d rounded half-even to whole yen with thousands
// separators, e.g. "¥12,345".
func FormatYen(d decimal.Decimal) string {
	return "¥" + humanize.Comma(d.RoundBank(0).IntPart())
}
