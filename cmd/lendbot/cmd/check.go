package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msto63/lendbot/foundation/cmdpattern"
	"github.com/msto63/lendbot/internal/ledger/service"
	"github.com/msto63/lendbot/internal/ledger/store"
)

var checkFull bool

var checkCmd = &cobra.Command{
	Use:   "check <user>",
	Short: "Shows a member's lending history",
	Long: `Reads a member's loans from the ledger, the same data the $check
command replies with.

Examples:
  lendbot check alice
  lendbot check /u/alice --full`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkFull, "full", false, "list every loan, not only open ones")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config", err)
		return err
	}

	ledgerStore, err := store.NewSQLiteLedgerStore(store.SQLiteLedgerConfig{Path: cfg.Database.Path})
	if err != nil {
		printError("opening ledger", err)
		return err
	}
	defer ledgerStore.Close()

	svc, err := service.NewService(service.Config{
		Store:           ledgerStore,
		DefaultCurrency: cfg.Bot.DefaultCurrency,
		Logger:          newLogger(cfg, "ledger"),
	})
	if err != nil {
		return err
	}

	username := strings.TrimPrefix(strings.TrimPrefix(args[0], "/"), "u/")
	sum, err := svc.Summary(context.Background(), username)
	if err != nil {
		printError("reading ledger", err)
		return err
	}

	fmt.Println(titleStyle.Render("/u/" + sum.Username))
	if !sum.Known {
		fmt.Println(mutedStyle.Render("No history"))
		return nil
	}

	fmt.Println(field("Lent", len(sum.AsLender)))
	fmt.Println(field("Borrowed", len(sum.AsBorrower)))
	fmt.Println(field("Repaid", okStyle.Render(fmt.Sprint(sum.Repaid()))))
	unpaid := fmt.Sprint(sum.Unpaid())
	if sum.Unpaid() > 0 {
		unpaid = errorStyle.Render(unpaid)
	}
	fmt.Println(field("Unpaid", unpaid))
	fmt.Println(field("Confirmed", sum.Confirmations))
	fmt.Println(field("Owes", totals(sum.Owed())))
	fmt.Println(field("Is owed", totals(sum.Lent())))

	loans := sum.Open()
	heading := "Open loans"
	if checkFull {
		loans = append(append([]*store.Loan(nil), sum.AsBorrower...), sum.AsLender...)
		heading = "All loans"
	}
	if len(loans) == 0 {
		return nil
	}

	fmt.Println()
	fmt.Println(titleStyle.Render(heading))
	for _, l := range loans {
		fmt.Println(loanLine(l))
	}
	return nil
}

func loanLine(l *store.Loan) string {
	state := warnStyle.Render("open")
	switch {
	case l.Settled():
		state = okStyle.Render("repaid")
	case l.Unpaid:
		state = errorStyle.Render("unpaid")
	}
	return fmt.Sprintf("  #%-5d %s  /u/%s -> /u/%s  %s of %s  %s",
		l.ID,
		l.CreatedAt.Format("2006-01-02"),
		l.Lender,
		l.Borrower,
		money(l.RepaidCents, l.Currency),
		money(l.PrincipalCents, l.Currency),
		state,
	)
}

// totals formats per-currency amounts in a stable order
func totals(amounts map[string]int64) string {
	if len(amounts) == 0 {
		return "0"
	}
	currencies := make([]string, 0, len(amounts))
	for cur := range amounts {
		currencies = append(currencies, cur)
	}
	sort.Strings(currencies)

	parts := make([]string, 0, len(currencies))
	for _, cur := range currencies {
		parts = append(parts, money(amounts[cur], cur))
	}
	return strings.Join(parts, ", ")
}

func money(cents int64, currency string) string {
	return cmdpattern.Value{Kind: cmdpattern.KindMoney, Cents: cents}.String() + " " + currency
}
