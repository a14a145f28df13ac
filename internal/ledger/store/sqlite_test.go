package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *SQLiteLedgerStore {
	t.Helper()
	s, err := NewSQLiteLedgerStore(SQLiteLedgerConfig{Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatalf("NewSQLiteLedgerStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createLoan(t *testing.T, s *SQLiteLedgerStore, lender, borrower string, cents int64, currency string) *Loan {
	t.Helper()
	loan := &Loan{Lender: lender, Borrower: borrower, PrincipalCents: cents, Currency: currency}
	if err := s.CreateLoan(context.Background(), loan); err != nil {
		t.Fatalf("CreateLoan() error = %v", err)
	}
	return loan
}

func TestEnsureUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.EnsureUser(ctx, "Alice")
	if err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}
	again, err := s.EnsureUser(ctx, "alice")
	if err != nil {
		t.Fatalf("EnsureUser() error = %v", err)
	}

	if first.ID != again.ID {
		t.Errorf("user ids differ: %d vs %d", first.ID, again.ID)
	}
	if again.Username != "Alice" {
		t.Errorf("Username = %q, want first spelling Alice", again.Username)
	}

	if _, err := s.EnsureUser(ctx, ""); err == nil {
		t.Error("EnsureUser(\"\") should fail")
	}
}

func TestGetUserMissing(t *testing.T) {
	s := newTestStore(t)

	u, err := s.GetUser(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if u != nil {
		t.Errorf("GetUser() = %+v, want nil", u)
	}
}

func TestCreateAndGetLoan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loan := &Loan{
		Lender:         "alice",
		Borrower:       "bob",
		PrincipalCents: 5000,
		Currency:       "USD",
		Memo:           "rent",
		ThreadID:       "t3_abc",
	}
	if err := s.CreateLoan(ctx, loan); err != nil {
		t.Fatalf("CreateLoan() error = %v", err)
	}
	if loan.ID == 0 {
		t.Fatal("CreateLoan() did not set ID")
	}

	got, err := s.GetLoan(ctx, loan.ID)
	if err != nil {
		t.Fatalf("GetLoan() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetLoan() = nil")
	}
	if got.Lender != "alice" || got.Borrower != "bob" {
		t.Errorf("parties = %s -> %s", got.Lender, got.Borrower)
	}
	if got.PrincipalCents != 5000 || got.Outstanding() != 5000 {
		t.Errorf("principal = %d outstanding = %d", got.PrincipalCents, got.Outstanding())
	}
	if got.Memo != "rent" || got.ThreadID != "t3_abc" || got.Currency != "USD" {
		t.Errorf("loan fields = %+v", got)
	}
	if got.Unpaid || got.Settled() {
		t.Errorf("fresh loan unpaid=%v settled=%v", got.Unpaid, got.Settled())
	}

	missing, err := s.GetLoan(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("GetLoan(999) = %v, %v, want nil, nil", missing, err)
	}
}

func TestCreateLoanRejectsZero(t *testing.T) {
	s := newTestStore(t)
	err := s.CreateLoan(context.Background(), &Loan{Lender: "a", Borrower: "b", Currency: "USD"})
	if err == nil {
		t.Error("CreateLoan() with zero principal should fail")
	}
}

func TestListLoansFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createLoan(t, s, "alice", "bob", 1000, "USD")
	createLoan(t, s, "alice", "bob", 2000, "EUR")
	createLoan(t, s, "carol", "bob", 3000, "USD")
	paid := createLoan(t, s, "alice", "dave", 500, "USD")
	if err := s.AddRepayment(ctx, &Repayment{LoanID: paid.ID, AmountCents: 500}); err != nil {
		t.Fatalf("AddRepayment() error = %v", err)
	}

	tests := []struct {
		name   string
		filter LoanFilter
		want   int
	}{
		{"all", LoanFilter{}, 4},
		{"by lender", LoanFilter{Lender: "ALICE"}, 3},
		{"by borrower", LoanFilter{Borrower: "bob"}, 3},
		{"by pair and currency", LoanFilter{Lender: "alice", Borrower: "bob", Currency: "USD"}, 1},
		{"outstanding only", LoanFilter{Lender: "alice", OutstandingOnly: true}, 2},
		{"limit", LoanFilter{Limit: 2}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loans, err := s.ListLoans(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListLoans() error = %v", err)
			}
			if len(loans) != tt.want {
				t.Errorf("ListLoans() returned %d loans, want %d", len(loans), tt.want)
			}
		})
	}
}

func TestListLoansOldestFirst(t *testing.T) {
	s := newTestStore(t)

	a := createLoan(t, s, "alice", "bob", 100, "USD")
	b := createLoan(t, s, "alice", "bob", 200, "USD")

	loans, err := s.ListLoans(context.Background(), LoanFilter{Lender: "alice"})
	if err != nil {
		t.Fatalf("ListLoans() error = %v", err)
	}
	if len(loans) != 2 || loans[0].ID != a.ID || loans[1].ID != b.ID {
		t.Errorf("ListLoans() order wrong: %+v", loans)
	}
}

func TestAddRepayments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createLoan(t, s, "alice", "bob", 1000, "USD")
	b := createLoan(t, s, "alice", "bob", 1000, "USD")

	err := s.AddRepayments(ctx, []*Repayment{
		{LoanID: a.ID, AmountCents: 1000},
		{LoanID: b.ID, AmountCents: 250},
	})
	if err != nil {
		t.Fatalf("AddRepayments() error = %v", err)
	}

	gotA, _ := s.GetLoan(ctx, a.ID)
	gotB, _ := s.GetLoan(ctx, b.ID)
	if !gotA.Settled() {
		t.Errorf("loan a repaid = %d, want settled", gotA.RepaidCents)
	}
	if gotB.Outstanding() != 750 {
		t.Errorf("loan b outstanding = %d, want 750", gotB.Outstanding())
	}

	reps, err := s.GetRepayments(ctx, b.ID)
	if err != nil {
		t.Fatalf("GetRepayments() error = %v", err)
	}
	if len(reps) != 1 || reps[0].AmountCents != 250 || reps[0].ID == 0 {
		t.Errorf("GetRepayments() = %+v", reps)
	}
}

func TestAddRepaymentsAtomic(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := createLoan(t, s, "alice", "bob", 1000, "USD")
	b := createLoan(t, s, "alice", "bob", 100, "USD")

	err := s.AddRepayments(ctx, []*Repayment{
		{LoanID: a.ID, AmountCents: 500},
		{LoanID: b.ID, AmountCents: 101},
	})
	if !errors.Is(err, ErrOverpayment) {
		t.Fatalf("AddRepayments() error = %v, want ErrOverpayment", err)
	}

	got, _ := s.GetLoan(ctx, a.ID)
	if got.RepaidCents != 0 {
		t.Errorf("first repayment was kept after rollback: repaid = %d", got.RepaidCents)
	}

	err = s.AddRepayment(ctx, &Repayment{LoanID: 42, AmountCents: 1})
	if !errors.Is(err, ErrLoanNotFound) {
		t.Errorf("AddRepayment(unknown) error = %v, want ErrLoanNotFound", err)
	}
}

func TestMarkUnpaid(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createLoan(t, s, "alice", "bob", 1000, "USD")
	createLoan(t, s, "alice", "bob", 2000, "EUR")
	settled := createLoan(t, s, "alice", "bob", 300, "USD")
	createLoan(t, s, "carol", "bob", 100, "USD")
	if err := s.AddRepayment(ctx, &Repayment{LoanID: settled.ID, AmountCents: 300}); err != nil {
		t.Fatalf("AddRepayment() error = %v", err)
	}

	n, err := s.MarkUnpaid(ctx, "Alice", "BOB")
	if err != nil {
		t.Fatalf("MarkUnpaid() error = %v", err)
	}
	if n != 2 {
		t.Errorf("MarkUnpaid() = %d, want 2", n)
	}

	// already flagged loans are not counted again
	n, err = s.MarkUnpaid(ctx, "alice", "bob")
	if err != nil || n != 0 {
		t.Errorf("second MarkUnpaid() = %d, %v, want 0", n, err)
	}

	n, err = s.MarkUnpaid(ctx, "nobody", "bob")
	if err != nil || n != 0 {
		t.Errorf("MarkUnpaid(unknown) = %d, %v, want 0", n, err)
	}
}

func TestConfirmations(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := &Confirmation{Author: "bob", Counterparty: "alice", AmountCents: 2000, Currency: "USD"}
	if err := s.AddConfirmation(ctx, c); err != nil {
		t.Fatalf("AddConfirmation() error = %v", err)
	}
	if c.ID == 0 {
		t.Error("AddConfirmation() did not set ID")
	}

	n, err := s.CountConfirmations(ctx, "BOB")
	if err != nil || n != 1 {
		t.Errorf("CountConfirmations(bob) = %d, %v, want 1", n, err)
	}
	n, err = s.CountConfirmations(ctx, "alice")
	if err != nil || n != 0 {
		t.Errorf("CountConfirmations(alice) = %d, %v, want 0", n, err)
	}
}

func TestProcessed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	done, err := s.IsProcessed(ctx, "t1_x")
	if err != nil || done {
		t.Fatalf("IsProcessed() before mark = %v, %v", done, err)
	}

	if err := s.MarkProcessed(ctx, "t1_x"); err != nil {
		t.Fatalf("MarkProcessed() error = %v", err)
	}
	if err := s.MarkProcessed(ctx, "t1_x"); err != nil {
		t.Fatalf("second MarkProcessed() error = %v", err)
	}

	done, err = s.IsProcessed(ctx, "t1_x")
	if err != nil || !done {
		t.Errorf("IsProcessed() after mark = %v, %v", done, err)
	}

	if err := s.MarkProcessed(ctx, ""); err == nil {
		t.Error("MarkProcessed(\"\") should fail")
	}
}

func TestStatistics(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	createLoan(t, s, "alice", "bob", 1000, "USD")
	createLoan(t, s, "alice", "carol", 500, "EUR")
	s.MarkProcessed(ctx, "m1")

	stats, err := s.Statistics(ctx)
	if err != nil {
		t.Fatalf("Statistics() error = %v", err)
	}

	if stats["total_loans"] != int64(2) {
		t.Errorf("total_loans = %v", stats["total_loans"])
	}
	if stats["total_users"] != int64(3) {
		t.Errorf("total_users = %v", stats["total_users"])
	}
	if stats["processed_messages"] != int64(1) {
		t.Errorf("processed_messages = %v", stats["processed_messages"])
	}
	outstanding, ok := stats["outstanding_cents"].(map[string]int64)
	if !ok || outstanding["USD"] != 1000 || outstanding["EUR"] != 500 {
		t.Errorf("outstanding_cents = %v", stats["outstanding_cents"])
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}
