// File: literal.go
// Title: Literal Token
// Description: Matches a fixed keyword such as "$loan".
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

package cmdpattern

import (
	"unicode"
)

// Literal matches an exact sequence of characters. It yields a value only
// when it was given an id, which lets callers test for optional keywords.
type Literal struct {
	base
	text       []rune
	ignoreCase bool
}

// NewLiteral creates a literal token. Options: Optional, IgnoreCase, WithID.
func NewLiteral(text string, opts ...Option) *Literal {
	o := applyOptions("", opts)
	return &Literal{
		base:       base{id: o.id, optional: o.optional},
		text:       []rune(text),
		ignoreCase: o.ignoreCase,
	}
}

func (l *Literal) Kind() Kind { return KindLiteral }

// Text returns the literal text
func (l *Literal) Text() string { return string(l.text) }

func (l *Literal) Scan() Scanner { return &literalScanner{lit: l} }

type literalScanner struct {
	lit  *Literal
	read []rune
	done finished
}

func (s *literalScanner) Start(r rune) bool {
	s.read = s.read[:0]
	s.done = finished{}
	return s.Next(r)
}

func (s *literalScanner) Next(r rune) bool {
	pos := len(s.read)
	if pos >= len(s.lit.text) {
		return false
	}
	want := s.lit.text[pos]
	if r != want && !(s.lit.ignoreCase && unicode.ToLower(r) == unicode.ToLower(want)) {
		return false
	}
	s.read = append(s.read, r)
	return true
}

func (s *literalScanner) Finish() bool {
	return s.done.set(len(s.lit.text) > 0 && len(s.read) == len(s.lit.text))
}

func (s *literalScanner) Extract() (Value, error) {
	if err := s.done.take(KindLiteral); err != nil {
		return Value{}, err
	}
	v := Value{Kind: KindLiteral, Text: string(s.read)}
	s.read = s.read[:0]
	return v, nil
}
