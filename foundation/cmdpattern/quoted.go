// File: quoted.go
// Title: Quoted String Token
// Description: Matches a phrase in single or double quotes, or a single
//              bare word when the token is required.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

package cmdpattern

// Quoted matches free text. A phrase opened by ' or " runs up to the same
// quote character and may contain whitespace. Optional quoted tokens accept
// only that form so they never swallow an unrelated word; required ones fall
// back to a single bare word.
type Quoted struct {
	base
}

// NewQuoted creates a quoted string token
func NewQuoted(id string, opts ...Option) *Quoted {
	o := applyOptions(id, opts)
	return &Quoted{base: base{id: o.id, optional: o.optional}}
}

func (q *Quoted) Kind() Kind    { return KindQuoted }
func (q *Quoted) Scan() Scanner { return &quotedScanner{optional: q.optional} }

func isQuote(r rune) bool {
	return r == '"' || r == '\''
}

type quotedScanner struct {
	optional bool

	quote  rune // zero for a bare word
	closed bool
	text   []rune
	done   finished
}

var _ Delimiter = (*quotedScanner)(nil)

func (s *quotedScanner) Start(r rune) bool {
	s.quote = 0
	s.closed = false
	s.text = s.text[:0]
	s.done = finished{}

	if isQuote(r) {
		s.quote = r
		return true
	}
	if s.optional {
		return false
	}
	s.text = append(s.text, r)
	return true
}

func (s *quotedScanner) Next(r rune) bool {
	if s.closed {
		return false
	}
	if s.quote != 0 && r == s.quote {
		s.closed = true
		return true
	}
	s.text = append(s.text, r)
	return true
}

func (s *quotedScanner) Delimited() bool { return s.quote != 0 }
func (s *quotedScanner) Closed() bool    { return s.closed }

func (s *quotedScanner) Finish() bool {
	if s.quote != 0 {
		return s.done.set(s.closed)
	}
	return s.done.set(len(s.text) > 0)
}

func (s *quotedScanner) Extract() (Value, error) {
	if err := s.done.take(KindQuoted); err != nil {
		return Value{}, err
	}
	v := Value{Kind: KindQuoted, Text: string(s.text)}
	s.text = s.text[:0]
	return v, nil
}
