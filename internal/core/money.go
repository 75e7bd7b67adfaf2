// Package core provides money parsing and handling utilities.
//
// This file contains the parsers used for transaction amounts and budget
// limits. Values are parsed as decimals and stored as float64.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a signed decimal amount.
//
// Anything that is not a plain decimal number (including "NaN", "Inf" and the
// empty string) fails with ErrInvalidPayload, as does a number too large for
// a float64.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("-5")    -> -5, nil
//	ParseAmount("abc")   -> 0, ErrInvalidPayload
func ParseAmount(s string) (float64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	return toFinite(d)
}

// ParseLimit parses a budget limit, which must be zero or positive.
func ParseLimit(s string) (float64, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return 0, err
	}
	if d.IsNegative() {
		return 0, ErrInvalidPayload
	}
	return toFinite(d)
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidPayload
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidPayload
	}
	return d, nil
}

func toFinite(d decimal.Decimal) (float64, error) {
	f := d.InexactFloat64()
	if !IsFinite(f) {
		return 0, ErrInvalidPayload
	}
	return f, nil
}

// IsFinite reports whether f is neither NaN nor an infinity.
func IsFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
