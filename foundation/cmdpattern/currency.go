// File: currency.go
// Title: Currency Token
// Description: Matches three letter currency codes.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

package cmdpattern

const currencyLength = 3

// Currency matches exactly three upper case letters, e.g. USD
type Currency struct {
	base
}

// NewCurrency creates a currency token
func NewCurrency(id string, opts ...Option) *Currency {
	o := applyOptions(id, opts)
	return &Currency{base: base{id: o.id, optional: o.optional}}
}

func (c *Currency) Kind() Kind    { return KindCurrency }
func (c *Currency) Scan() Scanner { return &currencyScanner{} }

type currencyScanner struct {
	code []rune
	done finished
}

func (s *currencyScanner) Start(r rune) bool {
	s.code = s.code[:0]
	s.done = finished{}
	return s.Next(r)
}

func (s *currencyScanner) Next(r rune) bool {
	if len(s.code) == currencyLength || !isUpper(r) {
		return false
	}
	s.code = append(s.code, r)
	return true
}

func (s *currencyScanner) Finish() bool {
	return s.done.set(len(s.code) == currencyLength)
}

func (s *currencyScanner) Extract() (Value, error) {
	if err := s.done.take(KindCurrency); err != nil {
		return Value{}, err
	}
	v := Value{Kind: KindCurrency, Text: string(s.code)}
	s.code = s.code[:0]
	return v, nil
}
