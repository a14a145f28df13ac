package commands

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/msto63/lendbot/foundation/cmdpattern"
	mdwerror "github.com/msto63/lendbot/foundation/core/error"
	"github.com/msto63/lendbot/internal/ledger/service"
	"github.com/msto63/lendbot/internal/ledger/store"
	"github.com/msto63/lendbot/internal/source"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *service.Service) {
	t.Helper()
	st, err := store.NewSQLiteLedgerStore(store.SQLiteLedgerConfig{Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatalf("NewSQLiteLedgerStore() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	svc, err := service.NewService(service.Config{Store: st})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	reg, err := NewLedgerRegistry(svc)
	if err != nil {
		t.Fatalf("NewLedgerRegistry() error = %v", err)
	}
	return NewDispatcher(DispatcherConfig{Registry: reg, BotName: "lendbot"}), svc
}

func comment(author, threadAuthor, body string) *source.Message {
	return &source.Message{
		ID:           "t1_" + author,
		Kind:         source.KindComment,
		Author:       author,
		ThreadID:     "t3_req",
		ThreadAuthor: threadAuthor,
		Body:         body,
	}
}

func dispatch(t *testing.T, d *Dispatcher, msg *source.Message) []*Reply {
	t.Helper()
	replies, err := d.Dispatch(context.Background(), msg)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	return replies
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	cmd := &Command{
		Name:    "ping",
		Pattern: cmdpattern.NewBuilder("ping").Literal("$ping").MustBuild(),
		Handler: func(ctx context.Context, inv *Invocation) (*Reply, error) { return &Reply{Key: "pong"}, nil },
	}

	if err := reg.Register(cmd); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(cmd); !mdwerror.HasCode(err, mdwerror.CodeDuplicateEntry) {
		t.Errorf("duplicate Register() error = %v, want DUPLICATE_ENTRY", err)
	}
	if err := reg.Register(&Command{Name: "broken"}); !mdwerror.HasCode(err, mdwerror.CodeInvalidInput) {
		t.Errorf("incomplete Register() error = %v, want INVALID_INPUT", err)
	}

	if got, ok := reg.Get("ping"); !ok || got != cmd {
		t.Error("Get(ping) did not return the command")
	}
	if len(reg.Commands()) != 1 {
		t.Errorf("Commands() = %d entries", len(reg.Commands()))
	}
}

func TestLedgerRegistryUsage(t *testing.T) {
	d, _ := newTestDispatcher(t)

	want := map[string]string{
		CmdLoan:       `$loan <amount> [currency] ["memo"]`,
		CmdPaid:       `$paid <user> <amount> [currency]`,
		CmdPaidWithID: `$paid_with_id <loan_id> <amount>`,
		CmdUnpaid:     `$unpaid <user>`,
		CmdConfirm:    `$confirm <user> <amount> [currency]`,
		CmdCheck:      `$check <user> [full]`,
	}
	for name, usage := range want {
		cmd, ok := d.registry.Get(name)
		if !ok {
			t.Errorf("command %s not registered", name)
			continue
		}
		if cmd.Usage() != usage {
			t.Errorf("%s usage = %q, want %q", name, cmd.Usage(), usage)
		}
	}
}

func TestPatternsMatchRegistry(t *testing.T) {
	d, _ := newTestDispatcher(t)

	cmds := d.registry.Commands()
	patterns := Patterns()
	if len(cmds) != len(patterns) {
		t.Fatalf("registry has %d commands, Patterns() returns %d", len(cmds), len(patterns))
	}
	for i, cmd := range cmds {
		if cmd.Pattern != patterns[i] {
			t.Errorf("pattern %d = %s, want %s", i, patterns[i].Name(), cmd.Name)
		}
	}
}

func TestDispatchLoan(t *testing.T) {
	d, svc := newTestDispatcher(t)

	replies := dispatch(t, d, comment("alice", "bob", `Sure! $loan $25.50 EUR "bus fare"`))
	if len(replies) != 1 {
		t.Fatalf("Dispatch() returned %d replies, want 1", len(replies))
	}
	r := replies[0]
	if r.Key != KeyLoan || r.Command != CmdLoan {
		t.Fatalf("reply = %+v", r)
	}
	loan := r.Data["Loan"].(*store.Loan)
	if loan.Lender != "alice" || loan.Borrower != "bob" || loan.PrincipalCents != 2550 ||
		loan.Currency != "EUR" || loan.Memo != "bus fare" || loan.ThreadID != "t3_req" {
		t.Errorf("loan = %+v", loan)
	}
	if r.Data["Author"] != "alice" || r.Offset != len("Sure! ") {
		t.Errorf("author = %v offset = %d", r.Data["Author"], r.Offset)
	}

	sum, _ := svc.Summary(context.Background(), "bob")
	if len(sum.AsBorrower) != 1 {
		t.Errorf("bob has %d loans", len(sum.AsBorrower))
	}
}

func TestDispatchLoanOutsideThread(t *testing.T) {
	d, _ := newTestDispatcher(t)

	pm := &source.Message{ID: "pm1", Kind: source.KindMessage, Author: "alice", Body: "$loan 10"}
	if replies := dispatch(t, d, pm); len(replies) != 0 {
		t.Errorf("$loan in a private message produced %d replies", len(replies))
	}

	replies := dispatch(t, d, comment("alice", "", "$loan 10"))
	if len(replies) != 1 || replies[0].Key != KeyError {
		t.Fatalf("replies = %+v, want one error reply", replies)
	}
	if replies[0].Data["Code"] != string(mdwerror.CodeInvalidOperation) {
		t.Errorf("code = %v", replies[0].Data["Code"])
	}
}

func TestDispatchRepaymentFlow(t *testing.T) {
	d, svc := newTestDispatcher(t)
	ctx := context.Background()

	dispatch(t, d, comment("alice", "bob", "$loan 100"))
	dispatch(t, d, comment("alice", "bob", "$loan 50"))

	replies := dispatch(t, d, comment("alice", "bob", "$paid /u/bob 120"))
	if len(replies) != 1 || replies[0].Key != KeyPaid {
		t.Fatalf("replies = %+v", replies)
	}
	res := replies[0].Data["Result"].(*service.RepayResult)
	if res.PaidCents() != 12000 || res.RemainingCents != 3000 {
		t.Errorf("paid = %d remaining = %d", res.PaidCents(), res.RemainingCents)
	}

	// overpaying is reported back, not failed
	replies = dispatch(t, d, comment("alice", "bob", "$paid u/bob 31"))
	if len(replies) != 1 || replies[0].Key != KeyError {
		t.Fatalf("replies = %+v, want error reply", replies)
	}
	if replies[0].Data["Code"] != string(mdwerror.CodeBusinessRule) {
		t.Errorf("code = %v", replies[0].Data["Code"])
	}
	if replies[0].Data["Usage"] != `$paid <user> <amount> [currency]` {
		t.Errorf("usage = %v", replies[0].Data["Usage"])
	}

	open, _ := svc.Store().ListLoans(ctx, store.LoanFilter{OutstandingOnly: true})
	if len(open) != 1 {
		t.Fatalf("%d loans outstanding, want 1", len(open))
	}

	msg := comment("alice", "bob", "")
	msg.Body = "$paid_with_id " + strconv.FormatInt(open[0].ID, 10) + " 30"
	replies = dispatch(t, d, msg)
	if len(replies) != 1 || replies[0].Command != CmdPaidWithID || replies[0].Key != KeyPaid {
		t.Fatalf("replies = %+v", replies)
	}
	if replies[0].Data["Borrower"] != "bob" {
		t.Errorf("borrower = %v", replies[0].Data["Borrower"])
	}
}

func TestDispatchUnpaidConfirmCheck(t *testing.T) {
	d, _ := newTestDispatcher(t)

	dispatch(t, d, comment("alice", "bob", "$loan 10"))

	replies := dispatch(t, d, comment("bob", "bob", "$confirm /u/alice 10"))
	if len(replies) != 1 || replies[0].Key != KeyConfirm {
		t.Fatalf("confirm replies = %+v", replies)
	}

	replies = dispatch(t, d, comment("alice", "bob", "$unpaid /u/bob"))
	if len(replies) != 1 || replies[0].Key != KeyUnpaid || replies[0].Data["Count"] != int64(1) {
		t.Fatalf("unpaid replies = %+v", replies)
	}

	replies = dispatch(t, d, comment("carol", "dave", "$check /u/bob FULL"))
	if len(replies) != 1 || replies[0].Key != KeyCheckFull {
		t.Fatalf("check replies = %+v", replies)
	}
	sum := replies[0].Data["Summary"].(*service.Summary)
	if sum.Unpaid() != 1 || sum.Confirmations != 1 {
		t.Errorf("summary unpaid=%d confirmations=%d", sum.Unpaid(), sum.Confirmations)
	}

	replies = dispatch(t, d, comment("carol", "dave", "$check u/bob"))
	if len(replies) != 1 || replies[0].Key != KeyCheck {
		t.Errorf("short check replies = %+v", replies)
	}
}

func TestDispatchOrderAndMultiple(t *testing.T) {
	d, _ := newTestDispatcher(t)

	replies := dispatch(t, d, comment("carol", "dave", "$check /u/alice and $check /u/bob also $loan 5"))
	if len(replies) != 3 {
		t.Fatalf("Dispatch() returned %d replies, want 3", len(replies))
	}
	if replies[0].Command != CmdCheck || replies[1].Command != CmdCheck || replies[2].Command != CmdLoan {
		t.Errorf("order = %s, %s, %s", replies[0].Command, replies[1].Command, replies[2].Command)
	}
	first := replies[0].Data["Summary"].(*service.Summary)
	if first.Username != "alice" {
		t.Errorf("first check user = %q", first.Username)
	}
}

func TestDispatchIgnores(t *testing.T) {
	d, _ := newTestDispatcher(t)

	tests := []struct {
		name string
		msg  *source.Message
	}{
		{"nil message", nil},
		{"empty body", comment("alice", "bob", "")},
		{"own message", comment("LendBot", "bob", "$loan 10")},
		{"no command", comment("alice", "bob", "thanks for the loan")},
		{"malformed amount", comment("alice", "bob", "$loan 5.5")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if replies := dispatch(t, d, tt.msg); len(replies) != 0 {
				t.Errorf("Dispatch() returned %d replies", len(replies))
			}
		})
	}
}

func TestDispatchInfrastructureError(t *testing.T) {
	boom := errors.New("disk on fire")
	reg := NewRegistry()
	reg.Register(&Command{
		Name:    "fail",
		Pattern: cmdpattern.NewBuilder("fail").Literal("$fail").MustBuild(),
		Handler: func(ctx context.Context, inv *Invocation) (*Reply, error) { return nil, boom },
	})
	d := NewDispatcher(DispatcherConfig{Registry: reg})

	replies, err := d.Dispatch(context.Background(), comment("alice", "bob", "$fail"))
	if !errors.Is(err, boom) || replies != nil {
		t.Errorf("Dispatch() = %v, %v, want infrastructure error", replies, err)
	}
}
