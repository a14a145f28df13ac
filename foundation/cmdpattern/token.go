// File: token.go
// Title: Token and Scanner Contracts
// Description: Token is the immutable grammar element of a pattern, Scanner
//              carries the state of one attempt to read that token.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

package cmdpattern

import (
	mdwerror "github.com/msto63/lendbot/foundation/core/error"
)

// Token is one element of a pattern's grammar
type Token interface {
	// ID labels the extracted value; empty for anonymous tokens
	ID() string
	// Optional reports whether the pattern may match without this token
	Optional() bool
	Kind() Kind
	// Scan returns fresh state for a single attempt
	Scan() Scanner
}

// Scanner reads one token character by character.
//
// Start is called with the first character, Next with every following one
// until the token boundary. A false return from either rejects the attempt.
// Finish reports whether the characters read form a complete token and
// Extract converts them into a Value. Extract is only valid after Finish
// returned true and may be called once.
type Scanner interface {
	Start(r rune) bool
	Next(r rune) bool
	Finish() bool
	Extract() (Value, error)
}

// Delimiter is implemented by scanners that end on their own terminator
// instead of at whitespace.
type Delimiter interface {
	// Delimited reports whether whitespace is part of the token
	Delimited() bool
	// Closed reports whether the terminator has been read
	Closed() bool
}

// Option configures a token
type Option func(*tokenOptions)

type tokenOptions struct {
	id         string
	optional   bool
	ignoreCase bool
	symbols    []rune
}

// Optional marks a token as optional
func Optional() Option {
	return func(o *tokenOptions) { o.optional = true }
}

// IgnoreCase makes a literal compare case-insensitively
func IgnoreCase() Option {
	return func(o *tokenOptions) { o.ignoreCase = true }
}

// WithID sets the id of a token. Literals are anonymous unless given one.
func WithID(id string) Option {
	return func(o *tokenOptions) { o.id = id }
}

// Symbols replaces the currency symbols accepted by a money token
func Symbols(symbols ...rune) Option {
	return func(o *tokenOptions) { o.symbols = append([]rune(nil), symbols...) }
}

func applyOptions(id string, opts []Option) tokenOptions {
	o := tokenOptions{id: id}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type base struct {
	id       string
	optional bool
}

func (b base) ID() string     { return b.id }
func (b base) Optional() bool { return b.optional }

// finished guards Extract for all scanners
type finished struct {
	ok bool
}

func (f *finished) set(ok bool) bool {
	f.ok = ok
	return ok
}

func (f *finished) take(kind Kind) error {
	if !f.ok {
		return mdwerror.New("extract called before a successful finish").
			WithCode(mdwerror.CodeMatchState).
			WithOperation("cmdpattern.Extract").
			WithDetail("kind", kind.String())
	}
	f.ok = false
	return nil
}

func isNameRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || isDigit(r) || r == '-' || r == '_'
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isUpper(r rune) bool {
	return r >= 'A' && r <= 'Z'
}
