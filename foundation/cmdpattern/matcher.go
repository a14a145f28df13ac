// File: matcher.go
// Title: Pattern Matcher
// Description: Scans a text for successive occurrences of a pattern and
//              extracts the values of the last occurrence found.
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

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
)

// Matcher finds occurrences of one pattern in one text.
// A Matcher is not safe for concurrent use.
type Matcher struct {
	pattern *Pattern
	text    []rune
	pos     int

	// last match, valid while ready is set
	start   int
	end     int
	matched []int
	ready   bool
	found   bool
}

// Find advances to the next occurrence of the pattern and reports whether
// one was found. Matches do not overlap. Every failed attempt moves the
// cursor past the word it started at, so Find always terminates.
func (m *Matcher) Find() bool {
	m.ready = false
	m.found = false

	for {
		m.pos = m.skipSpace(m.pos)
		if m.pos >= len(m.text) {
			return false
		}

		start := m.pos
		if end, matched, ok := m.attempt(start); ok {
			m.start = start
			m.end = end
			m.matched = matched
			m.ready = true
			m.found = true
			m.pos = end
			return true
		}
		m.pos = m.wordEnd(start)
	}
}

// attempt tries every token of the pattern at pos. Failed optional tokens
// are skipped without consuming input.
func (m *Matcher) attempt(pos int) (int, []int, bool) {
	end := pos
	var matched []int

	for i, tok := range m.pattern.tokens {
		at := m.skipSpace(end)
		next, ok := m.feed(tok.Scan(), at)
		if !ok {
			if tok.Optional() {
				continue
			}
			return 0, nil, false
		}
		matched = append(matched, i)
		end = next
	}
	return end, matched, true
}

// feed runs one scanner from pos up to the token boundary and returns the
// position after the token
func (m *Matcher) feed(sc Scanner, pos int) (int, bool) {
	if pos >= len(m.text) || !sc.Start(m.text[pos]) {
		return pos, false
	}
	pos++

	delim, _ := sc.(Delimiter)
	for pos < len(m.text) {
		if delim != nil && delim.Delimited() {
			if delim.Closed() {
				break
			}
		} else if unicode.IsSpace(m.text[pos]) {
			break
		}
		if !sc.Next(m.text[pos]) {
			return pos, false
		}
		pos++
	}

	if !sc.Finish() {
		return pos, false
	}
	return pos, true
}

// Group extracts the values of the last match. It re-reads every matched
// token from the start of the match. Group may be called once per
// successful Find.
func (m *Matcher) Group() (Groups, error) {
	if !m.ready {
		return nil, mdwerror.New("group requires a preceding successful find").
			WithCode(mdwerror.CodeMatchState).
			WithOperation("cmdpattern.Group").
			WithDetail("pattern", m.pattern.name)
	}
	m.ready = false

	groups := make(Groups, 0, len(m.matched))
	pos := m.start
	for _, i := range m.matched {
		tok := m.pattern.tokens[i]
		sc := tok.Scan()

		end, ok := m.feed(sc, m.skipSpace(pos))
		if !ok {
			return nil, mdwerror.New("matched token could not be read again").
				WithCode(mdwerror.CodeInternal).
				WithOperation("cmdpattern.Group").
				WithDetail("pattern", m.pattern.name).
				WithDetail("token", label(tok))
		}
		v, err := sc.Extract()
		if err != nil {
			return nil, mdwerror.Wrap(err, "extract token").WithDetail("token", label(tok))
		}
		if id := tok.ID(); id != "" {
			groups = append(groups, Param{ID: id, Value: v})
		}
		pos = end
	}
	return groups, nil
}

// Start returns the byte offset of the last match in the text
func (m *Matcher) Start() int {
	if !m.found {
		return -1
	}
	return len(string(m.text[:m.start]))
}

// End returns the byte offset just after the last match
func (m *Matcher) End() int {
	if !m.found {
		return -1
	}
	return len(string(m.text[:m.end]))
}

// Text returns the text of the last match
func (m *Matcher) Text() string {
	if !m.found {
		return ""
	}
	return string(m.text[m.start:m.end])
}

// Reset rewinds the matcher to the beginning of the text
func (m *Matcher) Reset() {
	m.pos = 0
	m.start, m.end = 0, 0
	m.matched = nil
	m.ready = false
	m.found = false
}

func (m *Matcher) skipSpace(pos int) int {
	for pos < len(m.text) && unicode.IsSpace(m.text[pos]) {
		pos++
	}
	return pos
}

func (m *Matcher) wordEnd(pos int) int {
	for pos < len(m.text) && !unicode.IsSpace(m.text[pos]) {
		pos++
	}
	return pos
}
