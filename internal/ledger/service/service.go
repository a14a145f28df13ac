package service

import (
	"context"
	"errors"
	"strings"

	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/ledger/store"
	"github.com/msto63/lendbot/pkg/core/logging"
)

// DefaultCurrency is used when a command names no currency
const DefaultCurrency = "USD"

// Service applies the lending rules on top of a ledger store
type Service struct {
	store    store.LedgerStore
	currency string
	logger   *logging.Logger
}

// Config holds service configuration
type Config struct {
	Store           store.LedgerStore
	DefaultCurrency string
	Logger          *logging.Logger
}

// NewService creates a new ledger service
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, mdwerror.New("ledger store is required").
			WithCode(mdwerror.CodeConfigError).
			WithOperation("service.NewService")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.New("ledger")
	}

	currency := strings.ToUpper(cfg.DefaultCurrency)
	if currency == "" {
		currency = DefaultCurrency
	}

	return &Service{
		store:    cfg.Store,
		currency: currency,
		logger:   logger,
	}, nil
}

// Store returns the underlying ledger store
func (s *Service) Store() store.LedgerStore {
	return s.store
}

// Currency returns the currency used when none is given
func (s *Service) Currency() string {
	return s.currency
}

func (s *Service) currencyOr(currency string) string {
	if currency == "" {
		return s.currency
	}
	return strings.ToUpper(currency)
}

// LendRequest describes a new loan
type LendRequest struct {
	Lender      string
	Borrower    string
	AmountCents int64
	Currency    string
	Memo        string
	ThreadID    string
}

// Lend records a loan from lender to borrower
func (s *Service) Lend(ctx context.Context, req LendRequest) (*store.Loan, error) {
	const op = "service.Lend"

	if err := checkParties(op, req.Lender, req.Borrower); err != nil {
		return nil, err
	}
	if err := checkAmount(op, req.AmountCents); err != nil {
		return nil, err
	}

	loan := &store.Loan{
		Lender:         req.Lender,
		Borrower:       req.Borrower,
		PrincipalCents: req.AmountCents,
		Currency:       s.currencyOr(req.Currency),
		Memo:           req.Memo,
		ThreadID:       req.ThreadID,
	}
	if err := s.store.CreateLoan(ctx, loan); err != nil {
		return nil, dbError(op, err)
	}

	s.logger.Audit("Loan recorded",
		"loan_id", loan.ID,
		"lender", loan.Lender,
		"borrower", loan.Borrower,
		"amount_cents", loan.PrincipalCents,
		"currency", loan.Currency)

	return loan, nil
}

// RepayResult describes how a payment was spread over loans
type RepayResult struct {
	Repayments []*store.Repayment
	Loans      []*store.Loan
	// RemainingCents is what the borrower still owes the lender in the
	// payment currency after the payment
	RemainingCents int64
	Currency       string
}

// PaidCents returns the total amount applied
func (r *RepayResult) PaidCents() int64 {
	var total int64
	for _, rep := range r.Repayments {
		total += rep.AmountCents
	}
	return total
}

// Repay applies a payment from borrower to lender. It settles the oldest
// outstanding loans in the payment currency first. A payment larger than
// the total outstanding amount is rejected as a whole.
func (s *Service) Repay(ctx context.Context, lender, borrower string, amountCents int64, currency string) (*RepayResult, error) {
	const op = "service.Repay"

	if err := checkParties(op, lender, borrower); err != nil {
		return nil, err
	}
	if err := checkAmount(op, amountCents); err != nil {
		return nil, err
	}
	currency = s.currencyOr(currency)

	loans, err := s.store.ListLoans(ctx, store.LoanFilter{
		Lender:          lender,
		Borrower:        borrower,
		Currency:        currency,
		OutstandingOnly: true,
	})
	if err != nil {
		return nil, dbError(op, err)
	}
	if len(loans) == 0 {
		return nil, mdwerror.Newf("%s has no outstanding %s loans to %s", lender, currency, borrower).
			WithCode(mdwerror.CodeNotFound).
			WithOperation(op).
			WithDetail("lender", lender).
			WithDetail("borrower", borrower).
			WithDetail("currency", currency)
	}

	var outstanding int64
	for _, l := range loans {
		outstanding += l.Outstanding()
	}
	if amountCents > outstanding {
		return nil, overpayment(op, amountCents, outstanding, currency)
	}

	result := &RepayResult{Currency: currency, RemainingCents: outstanding - amountCents}
	left := amountCents
	for _, l := range loans {
		if left == 0 {
			break
		}
		part := l.Outstanding()
		if part > left {
			part = left
		}
		result.Repayments = append(result.Repayments, &store.Repayment{LoanID: l.ID, AmountCents: part})
		l.RepaidCents += part
		result.Loans = append(result.Loans, l)
		left -= part
	}

	if err := s.store.AddRepayments(ctx, result.Repayments); err != nil {
		return nil, dbError(op, err)
	}

	s.logger.Audit("Repayment recorded",
		"lender", lender,
		"borrower", borrower,
		"amount_cents", amountCents,
		"currency", currency,
		"loans", len(result.Repayments))

	return result, nil
}

// RepayLoan applies a payment to one loan. Only the lender of the loan may
// record it.
func (s *Service) RepayLoan(ctx context.Context, lender string, loanID int64, amountCents int64) (*RepayResult, error) {
	const op = "service.RepayLoan"

	if err := checkAmount(op, amountCents); err != nil {
		return nil, err
	}

	loan, err := s.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, dbError(op, err)
	}
	if loan == nil {
		return nil, mdwerror.Newf("loan %d does not exist", loanID).
			WithCode(mdwerror.CodeNotFound).
			WithOperation(op).
			WithDetail("loan_id", loanID)
	}
	if !strings.EqualFold(loan.Lender, lender) {
		return nil, mdwerror.Newf("loan %d belongs to %s", loanID, loan.Lender).
			WithCode(mdwerror.CodeInvalidOperation).
			WithOperation(op).
			WithDetail("loan_id", loanID).
			WithDetail("lender", lender)
	}
	if amountCents > loan.Outstanding() {
		return nil, overpayment(op, amountCents, loan.Outstanding(), loan.Currency).
			WithDetail("loan_id", loanID)
	}

	rep := &store.Repayment{LoanID: loan.ID, AmountCents: amountCents}
	if err := s.store.AddRepayment(ctx, rep); err != nil {
		return nil, dbError(op, err)
	}
	loan.RepaidCents += amountCents

	s.logger.Audit("Repayment recorded",
		"loan_id", loan.ID,
		"lender", loan.Lender,
		"borrower", loan.Borrower,
		"amount_cents", amountCents,
		"currency", loan.Currency)

	return &RepayResult{
		Repayments:     []*store.Repayment{rep},
		Loans:          []*store.Loan{loan},
		RemainingCents: loan.Outstanding(),
		Currency:       loan.Currency,
	}, nil
}

// MarkUnpaid flags every outstanding loan from lender to borrower as
// unpaid and returns how many loans were flagged
func (s *Service) MarkUnpaid(ctx context.Context, lender, borrower string) (int64, error) {
	const op = "service.MarkUnpaid"

	if err := checkParties(op, lender, borrower); err != nil {
		return 0, err
	}

	n, err := s.store.MarkUnpaid(ctx, lender, borrower)
	if err != nil {
		return 0, dbError(op, err)
	}
	if n == 0 {
		return 0, mdwerror.Newf("%s has no open loans to %s", lender, borrower).
			WithCode(mdwerror.CodeNotFound).
			WithOperation(op).
			WithDetail("lender", lender).
			WithDetail("borrower", borrower)
	}

	s.logger.Audit("Loans marked unpaid",
		"lender", lender,
		"borrower", borrower,
		"loans", n)

	return n, nil
}

// Confirm records that borrower confirms receiving money from lender
func (s *Service) Confirm(ctx context.Context, borrower, lender string, amountCents int64, currency string) (*store.Confirmation, error) {
	const op = "service.Confirm"

	if err := checkParties(op, lender, borrower); err != nil {
		return nil, err
	}
	if err := checkAmount(op, amountCents); err != nil {
		return nil, err
	}

	c := &store.Confirmation{
		Author:       borrower,
		Counterparty: lender,
		AmountCents:  amountCents,
		Currency:     s.currencyOr(currency),
	}
	if err := s.store.AddConfirmation(ctx, c); err != nil {
		return nil, dbError(op, err)
	}

	s.logger.Audit("Confirmation recorded",
		"borrower", borrower,
		"lender", lender,
		"amount_cents", amountCents,
		"currency", c.Currency)

	return c, nil
}

func checkParties(op, lender, borrower string) error {
	if lender == "" || borrower == "" {
		return mdwerror.New("lender and borrower are required").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation(op)
	}
	if strings.EqualFold(lender, borrower) {
		return mdwerror.New("lender and borrower must differ").
			WithCode(mdwerror.CodeInvalidOperation).
			WithOperation(op).
			WithDetail("user", lender)
	}
	return nil
}

func checkAmount(op string, cents int64) error {
	if cents <= 0 {
		return mdwerror.New("amount must be positive").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation(op).
			WithDetail("amount_cents", cents)
	}
	return nil
}

func overpayment(op string, amount, outstanding int64, currency string) *mdwerror.Error {
	return mdwerror.New("payment exceeds the outstanding amount").
		WithCode(mdwerror.CodeBusinessRule).
		WithOperation(op).
		WithDetail("amount_cents", amount).
		WithDetail("outstanding_cents", outstanding).
		WithDetail("currency", currency)
}

// dbError classifies a store failure. The sentinel errors of the store
// are rule violations that slipped past the checks above.
func dbError(op string, err error) *mdwerror.Error {
	switch {
	case errors.Is(err, store.ErrOverpayment):
		return mdwerror.Wrap(err, "payment exceeds the outstanding amount").
			WithCode(mdwerror.CodeBusinessRule).
			WithOperation(op)
	case errors.Is(err, store.ErrLoanNotFound):
		return mdwerror.Wrap(err, "loan does not exist").
			WithCode(mdwerror.CodeNotFound).
			WithOperation(op)
	default:
		return mdwerror.Wrap(err, "ledger store failed").
			WithCode(mdwerror.CodeDatabaseError).
			WithOperation(op)
	}
}
