package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/msto63/lendbot/internal/commands"
)

var parseCmd = &cobra.Command{
	Use:   "parse [text]",
	Short: "Shows which commands a text contains",
	Long: `Runs every command grammar over a text and prints each match with its
position and parameters. Without arguments the text is read from stdin.
The ledger is not touched.

Examples:
  lendbot parse '$loan 25.50 EUR "rent"'
  echo '$check /u/alice full' | lendbot parse`,
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			printError("reading stdin", err)
			return err
		}
		text = string(data)
	}

	found := 0
	for _, p := range commands.Patterns() {
		m := p.Matcher(text)
		for m.Find() {
			groups, err := m.Group()
			if err != nil {
				printError("reading match", err)
				return err
			}
			found++

			var b strings.Builder
			b.WriteString(titleStyle.Render(p.Name()))
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  [%d:%d]", m.Start(), m.End())))
			b.WriteString("\n")
			b.WriteString(field("text", m.Text()))
			for _, param := range groups {
				b.WriteString("\n")
				b.WriteString(field(param.ID, param.Value.String()))
			}
			fmt.Println(boxStyle.Render(b.String()))
		}
	}

	if found == 0 {
		fmt.Println(warnStyle.Render("No command found"))
		if verbose {
			for _, p := range commands.Patterns() {
				fmt.Println(mutedStyle.Render("  " + p.String()))
			}
		}
	}
	return nil
}
