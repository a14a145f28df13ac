// File: username.go
// Title: Username Token
// Description: Matches references to platform users in their bare form
//              (/u/name, u/name) and in the markdown link form the platform
//              renders them as ([u/name](https://www.reddit.com/u/name)).
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
)

const (
	minUsernameLength = 3
	// shortest link section "(x/y)" that can hold a profile path
	minLinkLength = 5
)

var (
	linkSchemes    = []string{"https://", "http://"}
	linkSubdomains = []string{"old.", "np.", "new."}
	linkHost       = "reddit.com"
	profilePaths   = []string{"/u/", "/user/"}
)

// Username matches a user reference and extracts the bare name.
//
// In link form the visible text may be name, u/name or /u/name and the link
// target must point at the profile of exactly the same name.
type Username struct {
	base
}

// NewUsername creates a username token
func NewUsername(id string, opts ...Option) *Username {
	o := applyOptions(id, opts)
	return &Username{base: base{id: o.id, optional: o.optional}}
}

func (u *Username) Kind() Kind    { return KindUsername }
func (u *Username) Scan() Scanner { return &usernameScanner{} }

type usernamePhase int

const (
	phaseBareSlash  usernamePhase = iota // read "/", expecting "u"
	phaseBareU                           // read "u", expecting "/"
	phaseBareName                        // reading the name
	phaseVisible                         // inside [ ]
	phaseLinkOpen                        // read "]", expecting "("
	phaseLinkTarget                      // inside ( )
	phaseLinkClosed                      // read ")"
)

type usernameScanner struct {
	phase   usernamePhase
	name    []rune
	visible []rune
	target  []rune
	done    finished
}

func (s *usernameScanner) Start(r rune) bool {
	s.name = s.name[:0]
	s.visible = s.visible[:0]
	s.target = s.target[:0]
	s.done = finished{}

	switch r {
	case '/':
		s.phase = phaseBareSlash
	case 'u':
		s.phase = phaseBareU
	case '[':
		s.phase = phaseVisible
	default:
		return false
	}
	return true
}

func (s *usernameScanner) Next(r rune) bool {
	switch s.phase {
	case phaseBareSlash:
		if r != 'u' {
			return false
		}
		s.phase = phaseBareU
	case phaseBareU:
		if r != '/' {
			return false
		}
		s.phase = phaseBareName
	case phaseBareName:
		if !isNameRune(r) {
			return false
		}
		s.name = append(s.name, r)
	case phaseVisible:
		if r == ']' {
			s.phase = phaseLinkOpen
			return true
		}
		if !isNameRune(r) && r != '/' {
			return false
		}
		s.visible = append(s.visible, r)
	case phaseLinkOpen:
		if r != '(' {
			return false
		}
		s.target = append(s.target, r)
		s.phase = phaseLinkTarget
	case phaseLinkTarget:
		if r == '(' {
			return false
		}
		s.target = append(s.target, r)
		if r == ')' {
			s.phase = phaseLinkClosed
		}
	default:
		return false
	}
	return true
}

func (s *usernameScanner) Finish() bool {
	switch s.phase {
	case phaseBareName:
		return s.done.set(len(s.name) >= minUsernameLength)
	case phaseLinkClosed:
		return s.done.set(s.resolveLink())
	}
	return s.done.set(false)
}

// resolveLink checks the link form and stores the name on success
func (s *usernameScanner) resolveLink() bool {
	if len(s.target) < minLinkLength {
		return false
	}

	name := string(s.visible)
	if rest, ok := cutPrefix(name, "/u/", "u/"); ok {
		name = rest
	}
	if !validName(name) {
		return false
	}

	// strip the parentheses
	target := string(s.target[1 : len(s.target)-1])
	linked, ok := profileName(target)
	if !ok || linked != name {
		return false
	}

	s.name = append(s.name[:0], []rune(name)...)
	return true
}

func (s *usernameScanner) Extract() (Value, error) {
	if err := s.done.take(KindUsername); err != nil {
		return Value{}, err
	}
	v := Value{Kind: KindUsername, Text: string(s.name)}
	s.name = s.name[:0]
	return v, nil
}

// profileName returns the user name a profile link points to. Accepted:
// [scheme][www.][old.|np.|new.]reddit.com/u/name and the site relative
// /u/name, each with /user/ in place of /u/ and an optional trailing slash.
func profileName(target string) (string, bool) {
	rest, hasScheme := cutPrefixFold(target, linkSchemes...)
	rest, hasWWW := cutPrefixFold(rest, "www.")
	rest, hasSub := cutPrefixFold(rest, linkSubdomains...)
	rest, hasHost := cutPrefixFold(rest, linkHost)
	if (hasScheme || hasWWW || hasSub) && !hasHost {
		return "", false
	}

	rest, ok := cutPrefix(rest, profilePaths...)
	if !ok {
		return "", false
	}
	rest = strings.TrimSuffix(rest, "/")
	return rest, validName(rest)
}

func validName(name string) bool {
	if len(name) < minUsernameLength {
		return false
	}
	for _, r := range name {
		if !isNameRune(r) {
			return false
		}
	}
	return true
}

func cutPrefix(s string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(s, p); ok {
			return rest, true
		}
	}
	return s, false
}

func cutPrefixFold(s string, prefixes ...string) (string, bool) {
	for _, p := range prefixes {
		if len(s) >= len(p) && strings.EqualFold(s[:len(p)], p) {
			return s[len(p):], true
		}
	}
	return s, false
}
