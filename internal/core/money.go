// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from strings,
// converting between cents and decimal representations and formatting
// amounts for Brazilian Portuguese display.
package core

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is an amount held in integer cents.
type Money struct {
	Cents int64
}

// maxSafeCents keeps conversions to float64 exact.
const maxSafeCents = 1 << 53

var brPrinter = message.NewPrinter(language.BrazilianPortuguese)

// MoneyFromFloat rounds a decimal amount half away from zero to cents.
func MoneyFromFloat(v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Money{}, ErrInvalidAmount
	}
	cents := math.Round(v * 100)
	if math.Abs(cents) > maxSafeCents {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: int64(cents)}, nil
}

// Float returns the amount as a decimal number, for the JSON wire format.
func (m Money) Float() float64 {
	return float64(m.Cents) / 100.0
}

// Validate rejects negative amounts. Zero is allowed: an item may have nothing executed yet.
func (m Money) Validate() error {
	if m.Cents < 0 || m.Cents > maxSafeCents {
		return ErrInvalidAmount
	}
	return nil
}

// FormatBRL renders the amount with pt-BR separators and two decimals, e.g. 1.000,50.
func (m Money) FormatBRL() string {
	return brPrinter.Sprintf("%.2f", m.Float())
}

// ParseDecimalToCents converts a decimal string to cents with proper rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and performs
// half-up rounding on the third decimal place. An empty string is zero, matching
// the form behaviour where a blank amount means nothing planned or executed.
// Exponent notation (1e3, 1.5E2), which JSON allows for numbers, is accepted.
// Negative values and malformed input are rejected.
//
// Examples:
//
//	ParseDecimalToCents("12.34") -> 1234, nil
//	ParseDecimalToCents("12,34") -> 1234, nil
//	ParseDecimalToCents("12.345") -> 1235, nil
//	ParseDecimalToCents("1.5E2") -> 15000, nil
//	ParseDecimalToCents("") -> 0, nil
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return parseExponentToCents(s)
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) || r > unicode.MaxASCII {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if iv > maxSafeCents/100 {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

func parseExponentToCents(s string) (int64, error) {
	for _, r := range s {
		if !strings.ContainsRune("0123456789.eE+-", r) {
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, ErrInvalidAmount
	}
	m, err := MoneyFromFloat(v)
	if err != nil {
		return 0, err
	}
	return m.Cents, nil
}
