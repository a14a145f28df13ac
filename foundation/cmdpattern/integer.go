// File: integer.go
// Title: Integer Token
// Description: Matches non-negative integers that fit into 32 bits.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

package cmdpattern

import (
	"math"
	"strconv"
)

// digits after which the value is checked against math.MaxInt32
const integerCheckDigits = 9

// Integer matches a run of digits that fits into a signed 32 bit integer.
// The value keeps its textual form; use Value.Int to parse it.
type Integer struct {
	base
}

// NewInteger creates an integer token
func NewInteger(id string, opts ...Option) *Integer {
	o := applyOptions(id, opts)
	return &Integer{base: base{id: o.id, optional: o.optional}}
}

func (i *Integer) Kind() Kind    { return KindInteger }
func (i *Integer) Scan() Scanner { return &integerScanner{} }

type integerScanner struct {
	digits []byte
	done   finished
}

func (s *integerScanner) Start(r rune) bool {
	s.digits = s.digits[:0]
	s.done = finished{}
	return s.Next(r)
}

func (s *integerScanner) Next(r rune) bool {
	if !isDigit(r) {
		return false
	}
	s.digits = append(s.digits, byte(r))
	if len(s.digits) > integerCheckDigits {
		n, err := strconv.ParseInt(string(s.digits), 10, 64)
		if err != nil || n > math.MaxInt32 {
			return false
		}
	}
	return true
}

func (s *integerScanner) Finish() bool {
	return s.done.set(len(s.digits) > 0)
}

func (s *integerScanner) Extract() (Value, error) {
	if err := s.done.take(KindInteger); err != nil {
		return Value{}, err
	}
	v := Value{Kind: KindInteger, Text: string(s.digits)}
	s.digits = s.digits[:0]
	return v, nil
}
