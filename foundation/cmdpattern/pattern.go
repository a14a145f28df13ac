// File: pattern.go
// Title: Pattern and Builder
// Description: Assembles tokens into an immutable pattern and validates
//              the grammar at build time.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

package cmdpattern

import (
	"strings"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
)

// Pattern is an immutable, ordered grammar of tokens
type Pattern struct {
	name   string
	tokens []Token
}

// New builds a pattern from tokens. It fails when no token is required,
// since such a pattern would match the empty text everywhere.
func New(name string, tokens ...Token) (*Pattern, error) {
	if len(tokens) == 0 {
		return nil, invalidPattern(name, "pattern has no tokens")
	}

	required := false
	seen := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if tok == nil {
			return nil, invalidPattern(name, "pattern contains a nil token")
		}
		if !tok.Optional() {
			required = true
		}
		if lit, ok := tok.(*Literal); ok && len(lit.text) == 0 {
			return nil, invalidPattern(name, "literal token is empty")
		}
		if id := tok.ID(); id != "" {
			if seen[id] {
				return nil, invalidPattern(name, "duplicate token id").WithDetail("id", id)
			}
			seen[id] = true
		}
	}
	if !required {
		return nil, invalidPattern(name, "pattern has no required token")
	}

	return &Pattern{name: name, tokens: append([]Token(nil), tokens...)}, nil
}

func invalidPattern(name, message string) *mdwerror.Error {
	return mdwerror.New(message).
		WithCode(mdwerror.CodePatternInvalid).
		WithOperation("cmdpattern.New").
		WithDetail("pattern", name)
}

// Name returns the pattern name
func (p *Pattern) Name() string { return p.name }

// Tokens returns a copy of the pattern's tokens
func (p *Pattern) Tokens() []Token {
	return append([]Token(nil), p.tokens...)
}

// Matcher returns a matcher scanning text for this pattern
func (p *Pattern) Matcher(text string) *Matcher {
	return &Matcher{pattern: p, text: []rune(text)}
}

// FindFirst returns the values of the first match in text
func (p *Pattern) FindFirst(text string) (Groups, bool, error) {
	m := p.Matcher(text)
	if !m.Find() {
		return nil, false, nil
	}
	groups, err := m.Group()
	if err != nil {
		return nil, false, err
	}
	return groups, true, nil
}

// String returns a usage line such as `$loan <amount> [currency] ["memo"]`
func (p *Pattern) String() string {
	parts := make([]string, 0, len(p.tokens))
	for _, tok := range p.tokens {
		parts = append(parts, usage(tok))
	}
	return strings.Join(parts, " ")
}

func usage(tok Token) string {
	var part string
	switch t := tok.(type) {
	case *Literal:
		part = t.Text()
	case *Quoted:
		part = `"` + label(tok) + `"`
	default:
		part = "<" + label(tok) + ">"
	}
	if tok.Optional() {
		if _, ok := tok.(*Literal); ok || tok.Kind() == KindQuoted {
			return "[" + part + "]"
		}
		return "[" + label(tok) + "]"
	}
	return part
}

func label(tok Token) string {
	if id := tok.ID(); id != "" {
		return id
	}
	return tok.Kind().String()
}

// Builder assembles a pattern token by token
type Builder struct {
	name   string
	tokens []Token
}

// NewBuilder creates a builder for a named pattern
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Literal appends a keyword
func (b *Builder) Literal(text string, opts ...Option) *Builder {
	return b.Add(NewLiteral(text, opts...))
}

// Username appends a user reference
func (b *Builder) Username(id string, opts ...Option) *Builder {
	return b.Add(NewUsername(id, opts...))
}

// Money appends an amount
func (b *Builder) Money(id string, opts ...Option) *Builder {
	return b.Add(NewMoney(id, opts...))
}

// Currency appends a currency code
func (b *Builder) Currency(id string, opts ...Option) *Builder {
	return b.Add(NewCurrency(id, opts...))
}

// Integer appends an integer
func (b *Builder) Integer(id string, opts ...Option) *Builder {
	return b.Add(NewInteger(id, opts...))
}

// Quoted appends a quoted phrase
func (b *Builder) Quoted(id string, opts ...Option) *Builder {
	return b.Add(NewQuoted(id, opts...))
}

// Add appends any token
func (b *Builder) Add(tok Token) *Builder {
	b.tokens = append(b.tokens, tok)
	return b
}

// Build validates the grammar and returns the pattern
func (b *Builder) Build() (*Pattern, error) {
	return New(b.name, b.tokens...)
}

// MustBuild is like Build but panics on an invalid grammar.
// Use it for patterns defined at program start.
func (b *Builder) MustBuild() *Pattern {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}
