// File: doc.go
// Title: Command Pattern Package Documentation
// Description: Token based matcher that locates bot commands inside
//              free-form text and extracts their typed parameters.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial implementation

/*
Package cmdpattern finds commands such as "$loan 50 EUR" inside arbitrary
text and extracts their parameters as typed values.

A Pattern is an ordered list of Tokens built once at startup:

	loan := cmdpattern.NewBuilder("loan").
		Literal("$loan").
		Money("amount").
		Currency("currency", cmdpattern.Optional()).
		MustBuild()

For each input a Matcher walks the text. Find reports whether the next
occurrence exists, Group re-reads that occurrence and returns its values:

	m := loan.Matcher("please $loan 500 thanks")
	for m.Find() {
		groups, err := m.Group()
		...
		cents, _ := groups.Money("amount") // 50000
	}

Token kinds:

  - Literal: an exact keyword, optionally case-insensitive
  - Username: /u/name, u/name or a markdown link [u/name](https://reddit.com/u/name)
  - Money: 1,000.00 with an optional leading or trailing symbol, in cents
  - Currency: a three letter upper case code such as USD
  - Integer: a non-negative 32 bit integer, returned as text
  - Quoted: "a quoted phrase" or, when required, a single bare word

Tokens are immutable and every match attempt works on a fresh Scanner, so a
Pattern may be shared between goroutines. A Matcher holds a cursor and the
last match and must stay on one goroutine.
*/
package cmdpattern
