// File: matcher_test.go
// Title: Pattern and Matcher Unit Tests
// Description: Tests for building patterns, finding occurrences in text,
//              optional token rollback and value extraction.
// Author: msto63
// Version: v0.1.0
// Created: 2026-10-14
// Modified: 2026-10-14
//
// Change History:
// - 2026-10-14 v0.1.0: Initial test suite

package cmdpattern

import (
	"strings"
	"sync"
	"testing"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
)

func loanPattern() *Pattern {
	return NewBuilder("loan").
		Literal("$loan").
		Money("amount").
		Currency("currency", Optional()).
		Quoted("memo", Optional()).
		MustBuild()
}

func checkPattern() *Pattern {
	return NewBuilder("check").
		Literal("$check").
		Username("user").
		Literal("full", Optional(), IgnoreCase(), WithID("full")).
		MustBuild()
}

func TestBuildRejectsInvalidGrammar(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
	}{
		{"no tokens", NewBuilder("empty")},
		{"only optional tokens", NewBuilder("optional").Currency("c", Optional()).Quoted("q", Optional())},
		{"empty literal", NewBuilder("blank").Literal("")},
		{"duplicate id", NewBuilder("dup").Money("amount").Money("amount")},
		{"nil token", NewBuilder("nil").Literal("$x").Add(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := tt.builder.Build()
			if err == nil {
				t.Fatalf("Build() = %v, want error", p)
			}
			if !mdwerror.HasCode(err, mdwerror.CodePatternInvalid) {
				t.Errorf("Build() error code = %v, want PATTERN_INVALID", mdwerror.GetCode(err))
			}
		})
	}
}

func TestMustBuildPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustBuild() did not panic")
		}
		err, ok := r.(error)
		if !ok || !mdwerror.HasCode(err, mdwerror.CodePatternInvalid) {
			t.Errorf("panic value = %v, want PATTERN_INVALID error", r)
		}
	}()
	NewBuilder("bad").Integer("id", Optional()).MustBuild()
}

func TestFindAndGroupRoundTrip(t *testing.T) {
	p := NewBuilder("loan").Literal("$loan").Money("money").MustBuild()
	m := p.Matcher("please $loan 500 thanks")

	if !m.Find() {
		t.Fatal("Find() = false, want true")
	}
	groups, err := m.Group()
	if err != nil {
		t.Fatalf("Group() error = %v", err)
	}
	if groups.Len() != 1 {
		t.Fatalf("Group() returned %d values, want 1: %v", groups.Len(), groups.IDs())
	}
	if cents, ok := groups.Money("money"); !ok || cents != 50000 {
		t.Errorf("money = %d, %v, want 50000", cents, ok)
	}
	if m.Text() != "$loan 500" {
		t.Errorf("Text() = %q, want %q", m.Text(), "$loan 500")
	}
	if m.Find() {
		t.Error("second Find() = true, want false")
	}
}

func TestGroupMisuse(t *testing.T) {
	p := NewBuilder("loan").Literal("$loan").Money("money").MustBuild()

	t.Run("without find", func(t *testing.T) {
		m := p.Matcher("$loan 5")
		if _, err := m.Group(); !mdwerror.HasCode(err, mdwerror.CodeMatchState) {
			t.Errorf("Group() error = %v, want MATCH_STATE", err)
		}
	})

	t.Run("twice", func(t *testing.T) {
		m := p.Matcher("$loan 5")
		if !m.Find() {
			t.Fatal("Find() = false")
		}
		if _, err := m.Group(); err != nil {
			t.Fatalf("first Group() error = %v", err)
		}
		if _, err := m.Group(); !mdwerror.HasCode(err, mdwerror.CodeMatchState) {
			t.Errorf("second Group() error = %v, want MATCH_STATE", err)
		}
	})

	t.Run("after failed find", func(t *testing.T) {
		m := p.Matcher("$loan 5")
		m.Find()
		m.Find()
		if _, err := m.Group(); !mdwerror.HasCode(err, mdwerror.CodeMatchState) {
			t.Errorf("Group() error = %v, want MATCH_STATE", err)
		}
	})
}

func TestOptionalTokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantIDs  []string
		currency string
		memo     string
	}{
		{"amount only", "$loan 50", []string{"amount"}, "", ""},
		{"with currency", "$loan 50 EUR", []string{"amount", "currency"}, "EUR", ""},
		{"lower case currency is not a currency", "$loan 50 eur", []string{"amount"}, "", ""},
		{"bare word is not a memo", "$loan 50 hello", []string{"amount"}, "", ""},
		{"quoted memo keeps spaces", `$loan 50 "for rent and food"`, []string{"amount", "memo"}, "", "for rent and food"},
		{"currency and memo", `$loan 50 USD 'bus fare'`, []string{"amount", "currency", "memo"}, "USD", "bus fare"},
		{"memo without currency", `$loan 1,200.50 "x"`, []string{"amount", "memo"}, "", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups, ok, err := loanPattern().FindFirst(tt.input)
			if err != nil || !ok {
				t.Fatalf("FindFirst(%q) = %v, %v", tt.input, ok, err)
			}
			if got := strings.Join(groups.IDs(), ","); got != strings.Join(tt.wantIDs, ",") {
				t.Errorf("ids = %s, want %s", got, strings.Join(tt.wantIDs, ","))
			}
			if got := groups.Text("currency", ""); got != tt.currency {
				t.Errorf("currency = %q, want %q", got, tt.currency)
			}
			if got := groups.Text("memo", ""); got != tt.memo {
				t.Errorf("memo = %q, want %q", got, tt.memo)
			}
		})
	}
}

func TestOptionalLiteral(t *testing.T) {
	tests := []struct {
		input    string
		wantFull bool
	}{
		{"$check /u/alice", false},
		{"$check /u/alice full", true},
		{"$check /u/alice FULL", true},
		{"$check /u/alice fully", false},
		{"$check /u/alice please full", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			groups, ok, err := checkPattern().FindFirst(tt.input)
			if err != nil || !ok {
				t.Fatalf("FindFirst() = %v, %v", ok, err)
			}
			if groups.Text("user", "") != "alice" {
				t.Errorf("user = %q, want alice", groups.Text("user", ""))
			}
			if groups.Has("full") != tt.wantFull {
				t.Errorf("Has(full) = %v, want %v", groups.Has("full"), tt.wantFull)
			}
		})
	}
}

func TestFindNoMatch(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"nothing to see here",
		"$loan",
		"$loan abc",
		"$loan500",
		"$loan 5.5",
		"$loan $50,00",
		"loan 500",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			if loanPattern().Matcher(input).Find() {
				t.Errorf("Find(%q) = true, want false", input)
			}
		})
	}
}

func TestFindSkipsFailedAttempts(t *testing.T) {
	groups, ok, err := loanPattern().FindFirst("$loan abc $loan $loan 25")
	if err != nil || !ok {
		t.Fatalf("FindFirst() = %v, %v", ok, err)
	}
	if cents, _ := groups.Money("amount"); cents != 2500 {
		t.Errorf("amount = %d, want 2500", cents)
	}
}

func TestFindSuccessiveMatches(t *testing.T) {
	p := NewBuilder("paid").Literal("$paid").Username("user").Money("amount").MustBuild()
	text := "$paid u/bob 10 and later $paid [carl](https://www.reddit.com/u/carl) $20.50 too"
	m := p.Matcher(text)

	var users []string
	var amounts []int64
	for m.Find() {
		groups, err := m.Group()
		if err != nil {
			t.Fatalf("Group() error = %v", err)
		}
		users = append(users, groups.Text("user", ""))
		cents, _ := groups.Money("amount")
		amounts = append(amounts, cents)
	}

	if strings.Join(users, ",") != "bob,carl" {
		t.Errorf("users = %v, want [bob carl]", users)
	}
	if len(amounts) != 2 || amounts[0] != 1000 || amounts[1] != 2050 {
		t.Errorf("amounts = %v, want [1000 2050]", amounts)
	}
}

func TestMatcherOffsets(t *testing.T) {
	text := "¡hola! $loan 10€ gracias"
	m := loanPattern().Matcher(text)

	if m.Start() != -1 || m.End() != -1 {
		t.Errorf("offsets before Find = %d, %d, want -1", m.Start(), m.End())
	}
	if !m.Find() {
		t.Fatal("Find() = false")
	}

	wantStart := strings.Index(text, "$loan")
	wantEnd := strings.Index(text, " gracias")
	if m.Start() != wantStart || m.End() != wantEnd {
		t.Errorf("offsets = %d..%d, want %d..%d", m.Start(), m.End(), wantStart, wantEnd)
	}
	if text[m.Start():m.End()] != m.Text() {
		t.Errorf("Text() = %q, want %q", m.Text(), text[m.Start():m.End()])
	}
}

func TestMatcherReset(t *testing.T) {
	m := loanPattern().Matcher("$loan 1")
	if !m.Find() || m.Find() {
		t.Fatal("expected exactly one match")
	}
	m.Reset()
	if !m.Find() {
		t.Error("Find() after Reset() = false")
	}
}

func TestFindTerminates(t *testing.T) {
	patterns := []*Pattern{
		loanPattern(),
		checkPattern(),
		NewBuilder("quoted").Quoted("q").MustBuild(),
		NewBuilder("id").Currency("c", Optional()).Integer("id").Quoted("q", Optional()).MustBuild(),
	}
	inputs := []string{
		"",
		"a",
		`"`,
		`" unterminated quote $loan 5`,
		"$loan 5 $loan 6 $loan 7",
		"[u/x](  ) [abc](/u/abc) 12 USD 13",
		strings.Repeat("$loan ", 50),
		"\t\n 1 2 3 \"a b\" 'c' 9999999999",
	}

	for _, p := range patterns {
		for _, input := range inputs {
			m := p.Matcher(input)
			limit := len([]rune(input)) + 1
			n := 0
			for m.Find() {
				if _, err := m.Group(); err != nil {
					t.Fatalf("%s: Group() error = %v", p.Name(), err)
				}
				n++
				if n > limit {
					t.Fatalf("%s: Find(%q) did not terminate", p.Name(), input)
				}
			}
		}
	}
}

func TestRequiredQuotedFallsBackToWord(t *testing.T) {
	p := NewBuilder("note").Literal("$note").Quoted("text").Integer("n", Optional()).MustBuild()

	groups, ok, err := p.FindFirst("$note hello 5")
	if err != nil || !ok {
		t.Fatalf("FindFirst() = %v, %v", ok, err)
	}
	if groups.Text("text", "") != "hello" {
		t.Errorf("text = %q, want hello", groups.Text("text", ""))
	}
	if groups.Text("n", "") != "5" {
		t.Errorf("n = %q, want 5", groups.Text("n", ""))
	}
}

func TestPatternString(t *testing.T) {
	tests := []struct {
		pattern *Pattern
		want    string
	}{
		{loanPattern(), `$loan <amount> [currency] ["memo"]`},
		{checkPattern(), `$check <user> [full]`},
		{NewBuilder("id").Literal("$paid_with_id").Integer("loan_id").Money("amount").MustBuild(), `$paid_with_id <loan_id> <amount>`},
		{NewBuilder("anon").Literal("$x").Add(NewMoney("")).MustBuild(), `$x <money>`},
	}

	for _, tt := range tests {
		t.Run(tt.pattern.Name(), func(t *testing.T) {
			if got := tt.pattern.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnonymousTokensAreOmitted(t *testing.T) {
	p := NewBuilder("anon").Literal("$x").Add(NewMoney("")).Currency("currency").MustBuild()

	groups, ok, err := p.FindFirst("$x 5 USD")
	if err != nil || !ok {
		t.Fatalf("FindFirst() = %v, %v", ok, err)
	}
	if got := strings.Join(groups.IDs(), ","); got != "currency" {
		t.Errorf("ids = %s, want currency", got)
	}
}

func TestPatternSharedBetweenGoroutines(t *testing.T) {
	p := loanPattern()

	var wg sync.WaitGroup
	errs := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			groups, ok, err := p.FindFirst(`hey $loan 1,000.25 EUR "shared memo"`)
			if err != nil || !ok {
				errs <- "no match"
				return
			}
			if cents, _ := groups.Money("amount"); cents != 100025 {
				errs <- "wrong amount"
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for e := range errs {
		t.Error(e)
	}
}
