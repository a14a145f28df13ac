package service

import (
	"context"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/ledger/store"
)

// Summary is a user's lending history as shown by a check command
type Summary struct {
	Username      string
	Known         bool
	AsLender      []*store.Loan
	AsBorrower    []*store.Loan
	Confirmations int64
}

// Summary collects the loans a user took part in
func (s *Service) Summary(ctx context.Context, username string) (*Summary, error) {
	const op = "service.Summary"

	if username == "" {
		return nil, mdwerror.New("username is required").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation(op)
	}

	sum := &Summary{Username: username}

	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		return nil, dbError(op, err)
	}
	if user == nil {
		return sum, nil
	}
	sum.Known = true
	sum.Username = user.Username

	if sum.AsLender, err = s.store.ListLoans(ctx, store.LoanFilter{Lender: username}); err != nil {
		return nil, dbError(op, err)
	}
	if sum.AsBorrower, err = s.store.ListLoans(ctx, store.LoanFilter{Borrower: username}); err != nil {
		return nil, dbError(op, err)
	}
	if sum.Confirmations, err = s.store.CountConfirmations(ctx, username); err != nil {
		return nil, dbError(op, err)
	}

	return sum, nil
}

// Repaid returns how many loans the user has paid back in full
func (s *Summary) Repaid() int {
	n := 0
	for _, l := range s.AsBorrower {
		if l.Settled() {
			n++
		}
	}
	return n
}

// Unpaid returns how many of the user's loans were flagged unpaid
func (s *Summary) Unpaid() int {
	n := 0
	for _, l := range s.AsBorrower {
		if l.Unpaid {
			n++
		}
	}
	return n
}

// Open returns the loans the user still owes
func (s *Summary) Open() []*store.Loan {
	var open []*store.Loan
	for _, l := range s.AsBorrower {
		if !l.Settled() {
			open = append(open, l)
		}
	}
	return open
}

// Owed returns the outstanding borrowed amount per currency
func (s *Summary) Owed() map[string]int64 {
	return outstanding(s.AsBorrower)
}

// Lent returns the outstanding lent amount per currency
func (s *Summary) Lent() map[string]int64 {
	return outstanding(s.AsLender)
}

func outstanding(loans []*store.Loan) map[string]int64 {
	totals := make(map[string]int64)
	for _, l := range loans {
		if !l.Settled() {
			totals[l.Currency] += l.Outstanding()
		}
	}
	return totals
}
