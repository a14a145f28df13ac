package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/msto63/lendbot/pkg/core/config"
	"github.com/msto63/lendbot/pkg/core/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "lendbot",
	Short: "lendbot - Community Lending Bot",
	Long: `lendbot reads commands from community posts and keeps a ledger of
loans between members.

Commands in posts:
  $loan <amount> [currency] ["memo"]     - lend to the thread author
  $paid <user> <amount> [currency]       - record a repayment
  $paid_with_id <loan id> <amount>       - repay one specific loan
  $unpaid <user>                         - flag a borrower's open loans
  $confirm <user> <amount> [currency]    - confirm money was received
  $check <user> [full]                   - show a member's history`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./configs/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the file given by --config, or searches the default
// locations. Without any file the built-in defaults are used.
func loadConfig() (*config.Config, error) {
	if cfgFile != "" {
		return config.Load(cfgFile)
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
		}
		return config.Default(), nil
	}
	return cfg, nil
}

// newLogger creates a component logger from the general settings
func newLogger(cfg *config.Config, name string) *logging.Logger {
	level := cfg.General.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.NewFromConfig(logging.LoggerConfig{
		ServiceName: name,
		Level:       level,
		Format:      cfg.General.LogFormat,
	})
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s %s: %v\n", errorStyle.Render("Error:"), msg, err)
}
