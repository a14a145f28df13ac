package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrLoanNotFound is returned when a loan id does not exist
	ErrLoanNotFound = errors.New("loan not found")
	// ErrOverpayment is returned when a repayment exceeds the outstanding amount
	ErrOverpayment = errors.New("repayment exceeds outstanding amount")
)

// User is a platform account known to the ledger
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Loan is money lent from one user to another
type Loan struct {
	ID             int64     `json:"id"`
	Lender         string    `json:"lender"`
	Borrower       string    `json:"borrower"`
	PrincipalCents int64     `json:"principal_cents"`
	RepaidCents    int64     `json:"repaid_cents"`
	Currency       string    `json:"currency"`
	Memo           string    `json:"memo,omitempty"`
	ThreadID       string    `json:"thread_id,omitempty"`
	Unpaid         bool      `json:"unpaid"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Outstanding returns the amount still owed in cents
func (l *Loan) Outstanding() int64 {
	return l.PrincipalCents - l.RepaidCents
}

// Settled reports whether the loan has been repaid in full
func (l *Loan) Settled() bool {
	return l.RepaidCents >= l.PrincipalCents
}

// Repayment is a payment applied to a single loan
type Repayment struct {
	ID          int64     `json:"id"`
	LoanID      int64     `json:"loan_id"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// Confirmation records a borrower confirming they received money
type Confirmation struct {
	ID           int64     `json:"id"`
	Author       string    `json:"author"`
	Counterparty string    `json:"counterparty"`
	AmountCents  int64     `json:"amount_cents"`
	Currency     string    `json:"currency"`
	CreatedAt    time.Time `json:"created_at"`
}

// LoanFilter restricts ListLoans. Empty fields match everything.
type LoanFilter struct {
	Lender          string
	Borrower        string
	Currency        string
	OutstandingOnly bool
	Limit           int
}

// LedgerStore defines the interface for ledger persistence
type LedgerStore interface {
	// User operations
	EnsureUser(ctx context.Context, username string) (*User, error)
	GetUser(ctx context.Context, username string) (*User, error)

	// Loan operations
	CreateLoan(ctx context.Context, loan *Loan) error
	GetLoan(ctx context.Context, id int64) (*Loan, error)
	ListLoans(ctx context.Context, filter LoanFilter) ([]*Loan, error)
	AddRepayment(ctx context.Context, r *Repayment) error
	AddRepayments(ctx context.Context, repayments []*Repayment) error
	GetRepayments(ctx context.Context, loanID int64) ([]*Repayment, error)
	MarkUnpaid(ctx context.Context, lender, borrower string) (int64, error)

	// Confirmation operations
	AddConfirmation(ctx context.Context, c *Confirmation) error
	CountConfirmations(ctx context.Context, username string) (int64, error)

	// Processed message bookkeeping
	MarkProcessed(ctx context.Context, messageID string) error
	IsProcessed(ctx context.Context, messageID string) (bool, error)

	// Utility
	Ping(ctx context.Context) error
	Close() error
	Statistics(ctx context.Context) (map[string]interface{}, error)
}
