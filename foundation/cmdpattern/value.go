// File: value.go
// Title: Token Kinds and Extracted Values
// Description: Defines the token kinds, the typed Value produced by a
//              token and the ordered Groups returned by a match.
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

// Kind identifies the token variant that produced a value
type Kind int

const (
	KindLiteral Kind = iota
	KindUsername
	KindMoney
	KindCurrency
	KindInteger
	KindQuoted
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindUsername:
		return "username"
	case KindMoney:
		return "money"
	case KindCurrency:
		return "currency"
	case KindInteger:
		return "integer"
	case KindQuoted:
		return "quoted"
	default:
		return "unknown"
	}
}

// Value is the typed result extracted from one token.
// Text holds the textual form for every kind; Cents is only set for money.
type Value struct {
	Kind  Kind
	Text  string
	Cents int64
}

// String returns the textual form of the value
func (v Value) String() string {
	if v.Kind == KindMoney {
		return formatCents(v.Cents)
	}
	return v.Text
}

// Int parses the value as a 32 bit integer
func (v Value) Int() (int, error) {
	n, err := strconv.ParseInt(v.Text, 10, 32)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func formatCents(cents int64) string {
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100
	if frac < 10 {
		return whole + ".0" + strconv.FormatInt(frac, 10)
	}
	return whole + "." + strconv.FormatInt(frac, 10)
}

// Param is one identified value of a match
type Param struct {
	ID    string
	Value Value
}

// Groups holds the identified values of a match in declared token order.
// Optional tokens that did not match are absent.
type Groups []Param

// Get returns the value with the given id
func (g Groups) Get(id string) (Value, bool) {
	for _, p := range g {
		if p.ID == id {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Has reports whether a value with the given id was matched
func (g Groups) Has(id string) bool {
	_, ok := g.Get(id)
	return ok
}

// Money returns the amount in cents for a money value
func (g Groups) Money(id string) (int64, bool) {
	v, ok := g.Get(id)
	if !ok || v.Kind != KindMoney {
		return 0, false
	}
	return v.Cents, true
}

// Text returns the text of a value, or def when it is absent
func (g Groups) Text(id, def string) string {
	if v, ok := g.Get(id); ok {
		return v.Text
	}
	return def
}

// Len returns the number of matched values
func (g Groups) Len() int {
	return len(g)
}

// IDs returns the ids of all matched values in order
func (g Groups) IDs() []string {
	ids := make([]string, len(g))
	for i, p := range g {
		ids[i] = p.ID
	}
	return ids
}
