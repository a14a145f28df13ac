package commands

import (
	"context"

	"github.com/msto63/lendbot/foundation/cmdpattern"
	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/ledger/service"
	"github.com/msto63/lendbot/internal/source"
)

// Command names
const (
	CmdLoan       = "loan"
	CmdPaid       = "paid"
	CmdPaidWithID = "paid_with_id"
	CmdUnpaid     = "unpaid"
	CmdConfirm    = "confirm"
	CmdCheck      = "check"
)

// Reply template keys
const (
	KeyLoan      = "loan"
	KeyPaid      = "paid"
	KeyUnpaid    = "unpaid"
	KeyConfirm   = "confirm"
	KeyCheck     = "check"
	KeyCheckFull = "check_full"
	KeyError     = "error"
)

// Grammars of the ledger commands. They never change after start.
var (
	LoanPattern = cmdpattern.NewBuilder(CmdLoan).
		Literal("$loan", cmdpattern.IgnoreCase()).
		Money("amount").
		Currency("currency", cmdpattern.Optional()).
		Quoted("memo", cmdpattern.Optional()).
		MustBuild()

	PaidPattern = cmdpattern.NewBuilder(CmdPaid).
		Literal("$paid", cmdpattern.IgnoreCase()).
		Username("user").
		Money("amount").
		Currency("currency", cmdpattern.Optional()).
		MustBuild()

	PaidWithIDPattern = cmdpattern.NewBuilder(CmdPaidWithID).
		Literal("$paid_with_id", cmdpattern.IgnoreCase()).
		Integer("loan_id").
		Money("amount").
		MustBuild()

	UnpaidPattern = cmdpattern.NewBuilder(CmdUnpaid).
		Literal("$unpaid", cmdpattern.IgnoreCase()).
		Username("user").
		MustBuild()

	ConfirmPattern = cmdpattern.NewBuilder(CmdConfirm).
		Literal("$confirm", cmdpattern.IgnoreCase()).
		Username("user").
		Money("amount").
		Currency("currency", cmdpattern.Optional()).
		MustBuild()

	CheckPattern = cmdpattern.NewBuilder(CmdCheck).
		Literal("$check", cmdpattern.IgnoreCase()).
		Username("user").
		Literal("full", cmdpattern.WithID("full"), cmdpattern.Optional(), cmdpattern.IgnoreCase()).
		MustBuild()
)

// Patterns returns the ledger grammars in registration order
func Patterns() []*cmdpattern.Pattern {
	return []*cmdpattern.Pattern{
		LoanPattern,
		PaidPattern,
		PaidWithIDPattern,
		UnpaidPattern,
		ConfirmPattern,
		CheckPattern,
	}
}

// NewLedgerRegistry registers the ledger commands backed by svc
func NewLedgerRegistry(svc *service.Service) (*Registry, error) {
	h := &ledgerHandlers{svc: svc}
	reg := NewRegistry()

	for _, cmd := range []*Command{
		{
			Name:        CmdLoan,
			Description: "Record a loan to the author of the thread",
			Pattern:     LoanPattern,
			Kinds:       []source.Kind{source.KindComment},
			Handler:     h.loan,
		},
		{
			Name:        CmdPaid,
			Description: "Record a repayment received from a borrower",
			Pattern:     PaidPattern,
			Handler:     h.paid,
		},
		{
			Name:        CmdPaidWithID,
			Description: "Record a repayment for one loan",
			Pattern:     PaidWithIDPattern,
			Handler:     h.paidWithID,
		},
		{
			Name:        CmdUnpaid,
			Description: "Flag a borrower's open loans as unpaid",
			Pattern:     UnpaidPattern,
			Handler:     h.unpaid,
		},
		{
			Name:        CmdConfirm,
			Description: "Confirm money received from a lender",
			Pattern:     ConfirmPattern,
			Handler:     h.confirm,
		},
		{
			Name:        CmdCheck,
			Description: "Show a user's lending history",
			Pattern:     CheckPattern,
			Handler:     h.check,
		},
	} {
		if err := reg.Register(cmd); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

type ledgerHandlers struct {
	svc *service.Service
}

func (h *ledgerHandlers) loan(ctx context.Context, inv *Invocation) (*Reply, error) {
	msg := inv.Message
	if msg.ThreadAuthor == "" {
		return nil, mdwerror.New("loans can only be recorded in a request thread").
			WithCode(mdwerror.CodeInvalidOperation).
			WithOperation("commands.loan")
	}

	amount, _ := inv.Groups.Money("amount")
	loan, err := h.svc.Lend(ctx, service.LendRequest{
		Lender:      msg.Author,
		Borrower:    msg.ThreadAuthor,
		AmountCents: amount,
		Currency:    inv.Groups.Text("currency", ""),
		Memo:        inv.Groups.Text("memo", ""),
		ThreadID:    msg.ThreadID,
	})
	if err != nil {
		return nil, err
	}

	return &Reply{Key: KeyLoan, Data: map[string]interface{}{
		"Loan": loan,
	}}, nil
}

func (h *ledgerHandlers) paid(ctx context.Context, inv *Invocation) (*Reply, error) {
	amount, _ := inv.Groups.Money("amount")
	res, err := h.svc.Repay(ctx,
		inv.Message.Author,
		inv.Groups.Text("user", ""),
		amount,
		inv.Groups.Text("currency", ""))
	if err != nil {
		return nil, err
	}

	return &Reply{Key: KeyPaid, Data: map[string]interface{}{
		"Lender":   inv.Message.Author,
		"Borrower": inv.Groups.Text("user", ""),
		"Result":   res,
	}}, nil
}

func (h *ledgerHandlers) paidWithID(ctx context.Context, inv *Invocation) (*Reply, error) {
	v, _ := inv.Groups.Get("loan_id")
	id, err := v.Int()
	if err != nil {
		return nil, mdwerror.Wrap(err, "loan id is not a number").
			WithCode(mdwerror.CodeInvalidInput).
			WithOperation("commands.paid_with_id")
	}

	amount, _ := inv.Groups.Money("amount")
	res, err := h.svc.RepayLoan(ctx, inv.Message.Author, int64(id), amount)
	if err != nil {
		return nil, err
	}

	loan := res.Loans[0]
	return &Reply{Key: KeyPaid, Data: map[string]interface{}{
		"Lender":   loan.Lender,
		"Borrower": loan.Borrower,
		"Result":   res,
	}}, nil
}

func (h *ledgerHandlers) unpaid(ctx context.Context, inv *Invocation) (*Reply, error) {
	borrower := inv.Groups.Text("user", "")
	n, err := h.svc.MarkUnpaid(ctx, inv.Message.Author, borrower)
	if err != nil {
		return nil, err
	}

	return &Reply{Key: KeyUnpaid, Data: map[string]interface{}{
		"Lender":   inv.Message.Author,
		"Borrower": borrower,
		"Count":    n,
	}}, nil
}

func (h *ledgerHandlers) confirm(ctx context.Context, inv *Invocation) (*Reply, error) {
	amount, _ := inv.Groups.Money("amount")
	c, err := h.svc.Confirm(ctx,
		inv.Message.Author,
		inv.Groups.Text("user", ""),
		amount,
		inv.Groups.Text("currency", ""))
	if err != nil {
		return nil, err
	}

	return &Reply{Key: KeyConfirm, Data: map[string]interface{}{
		"Confirmation": c,
	}}, nil
}

func (h *ledgerHandlers) check(ctx context.Context, inv *Invocation) (*Reply, error) {
	sum, err := h.svc.Summary(ctx, inv.Groups.Text("user", ""))
	if err != nil {
		return nil, err
	}

	key := KeyCheck
	if inv.Groups.Has("full") {
		key = KeyCheckFull
	}
	return &Reply{Key: key, Data: map[string]interface{}{
		"Summary": sum,
	}}, nil
}
