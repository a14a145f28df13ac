// File: money.go
// Title: Money Token
// Description: Matches decimal amounts like $1,000.00 or 25€ and extracts
//              them as integer cents.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

package cmdpattern

import (
	"strconv"
)

// DefaultSymbols are the currency symbols accepted by money tokens
var DefaultSymbols = []rune{'$', '€', '£', '¥'}

const (
	thousandsSeparator = ','
	decimalSeparator   = '.'
	groupSize          = 3
	fractionDigits     = 2

	// keeps whole*100 within int64
	maxWholeDigits = 15
)

// Money matches an amount with at most two fractional digits, optional
// thousands separators and an optional leading and/or trailing symbol.
//
// Rules:
//   - a leading zero is only allowed as the sole integer digit
//   - the first group before a separator has 1-3 digits, every later one 3
//   - the fraction has 0 or 2 digits; "5." is accepted, "5.5" is not
//   - a trailing symbol ends the token and requires a well-formed amount
type Money struct {
	base
	symbols []rune
}

// NewMoney creates a money token. Options: Optional, Symbols.
func NewMoney(id string, opts ...Option) *Money {
	o := applyOptions(id, opts)
	symbols := o.symbols
	if symbols == nil {
		symbols = DefaultSymbols
	}
	return &Money{base: base{id: o.id, optional: o.optional}, symbols: symbols}
}

func (m *Money) Kind() Kind    { return KindMoney }
func (m *Money) Scan() Scanner { return &moneyScanner{money: m} }

func (m *Money) isSymbol(r rune) bool {
	for _, s := range m.symbols {
		if s == r {
			return true
		}
	}
	return false
}

type moneyScanner struct {
	money *Money

	whole []byte
	frac  []byte

	separated bool // a thousands separator was read
	group     int  // digits in the current group after a separator
	fraction  bool // the decimal separator was read
	trailing  bool // the trailing symbol was read

	done finished
}

func (s *moneyScanner) Start(r rune) bool {
	*s = moneyScanner{money: s.money, whole: s.whole[:0], frac: s.frac[:0]}
	if s.money.isSymbol(r) {
		return true
	}
	return s.Next(r)
}

func (s *moneyScanner) Next(r rune) bool {
	if s.trailing {
		return false
	}

	switch {
	case isDigit(r):
		return s.digit(byte(r))

	case r == thousandsSeparator:
		if s.fraction || len(s.whole) == 0 || s.soleZero() {
			return false
		}
		if s.separated {
			if s.group != groupSize {
				return false
			}
		} else if len(s.whole) > groupSize {
			return false
		}
		s.separated = true
		s.group = 0
		return true

	case r == decimalSeparator:
		if s.fraction || len(s.whole) == 0 || !s.groupsComplete() {
			return false
		}
		s.fraction = true
		return true

	case s.money.isSymbol(r):
		if !s.wellFormed() {
			return false
		}
		s.trailing = true
		return true
	}

	return false
}

func (s *moneyScanner) digit(d byte) bool {
	if s.fraction {
		if len(s.frac) == fractionDigits {
			return false
		}
		s.frac = append(s.frac, d)
		return true
	}

	if s.soleZero() || len(s.whole) == maxWholeDigits {
		return false
	}
	if s.separated {
		if s.group == groupSize {
			return false
		}
		s.group++
	}
	s.whole = append(s.whole, d)
	return true
}

func (s *moneyScanner) soleZero() bool {
	return len(s.whole) == 1 && s.whole[0] == '0'
}

func (s *moneyScanner) groupsComplete() bool {
	return !s.separated || s.group == groupSize
}

func (s *moneyScanner) wellFormed() bool {
	if len(s.whole) == 0 || !s.groupsComplete() {
		return false
	}
	return len(s.frac) == 0 || len(s.frac) == fractionDigits
}

func (s *moneyScanner) Finish() bool {
	return s.done.set(s.wellFormed())
}

func (s *moneyScanner) Extract() (Value, error) {
	if err := s.done.take(KindMoney); err != nil {
		return Value{}, err
	}

	whole, err := strconv.ParseInt(string(s.whole), 10, 64)
	if err != nil {
		return Value{}, err
	}
	cents := whole * 100
	if len(s.frac) == fractionDigits {
		frac, err := strconv.ParseInt(string(s.frac), 10, 64)
		if err != nil {
			return Value{}, err
		}
		cents += frac
	}

	s.whole = s.whole[:0]
	s.frac = s.frac[:0]
	return Value{Kind: KindMoney, Text: formatCents(cents), Cents: cents}, nil
}
