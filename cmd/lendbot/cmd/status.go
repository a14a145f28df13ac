package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	coregrpc "github.com/msto63/lendbot/pkg/core/grpc"
)

var statusAddr string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Shows the health of a running bot",
	Long: `Queries the gRPC health endpoint of a running bot for the bot as a
whole and for each of its checks.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusAddr, "addr", "", "health endpoint (default: from config)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		printError("loading config", err)
		return err
	}

	addr := statusAddr
	if addr == "" {
		host := cfg.Health.Host
		if host == "" || host == "0.0.0.0" {
			host = "localhost"
		}
		addr = fmt.Sprintf("%s:%d", host, cfg.Health.Port)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fmt.Println(titleStyle.Render(cfg.General.Name + " status"))
	fmt.Println(mutedStyle.Render(addr))
	fmt.Println()

	clientCfg := coregrpc.DefaultClientConfig(addr)
	name := cfg.General.Name
	services := []struct {
		label   string
		service string
	}{
		{"bot", name},
		{"ledger", name + "/ledger"},
		{"runner", name + "/runner"},
	}

	healthy := true
	for _, s := range services {
		status, err := coregrpc.CheckHealth(ctx, clientCfg, s.service)
		icon := okStyle.Render("[+]")
		text := status.String()
		switch {
		case err != nil:
			icon = errorStyle.Render("[-]")
			text = "unreachable"
			healthy = false
		case text != "SERVING":
			icon = warnStyle.Render("[!]")
			healthy = false
		}
		fmt.Printf("  %s %s %s\n", icon, labelStyle.Render(s.label), text)
	}

	fmt.Println()
	if !healthy {
		fmt.Println(warnStyle.Render("Bot is not healthy"))
		return fmt.Errorf("bot at %s is not healthy", addr)
	}
	fmt.Println(okStyle.Render("Bot is healthy"))
	return nil
}
