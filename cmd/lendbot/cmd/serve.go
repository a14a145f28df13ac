package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/msto63/lendbot/internal/commands"
	"github.com/msto63/lendbot/internal/ledger/service"
	"github.com/msto63/lendbot/internal/ledger/store"
	"github.com/msto63/lendbot/internal/responses"
	"github.com/msto63/lendbot/internal/runner"
	"github.com/msto63/lendbot/internal/source"
	"github.com/msto63/lendbot/pkg/core/config"
	coregrpc "github.com/msto63/lendbot/pkg/core/grpc"
	"github.com/msto63/lendbot/pkg/core/health"
	"github.com/msto63/lendbot/pkg/core/version"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the bot",
	Long: `Starts the bot: polls the inbox, applies ledger commands and posts
replies to the outbox until interrupted.

Examples:
  lendbot serve
  lendbot serve --config ./configs/config.toml -v`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		printError("loading config", err)
		return err
	}
	logger := newLogger(cfg, cfg.General.Name)

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

	registry, err := commands.NewLedgerRegistry(svc)
	if err != nil {
		return err
	}
	dispatcher := commands.NewDispatcher(commands.DispatcherConfig{
		Registry: registry,
		BotName:  cfg.Bot.Username,
		Logger:   newLogger(cfg, "commands"),
	})

	catalog := responses.NewCatalog(cfg.Responses.Dir)
	catalog.SetLogger(newLogger(cfg, "responses"))
	catalog.SetOnReload(func(keys []string) {
		logger.Info("Reply templates loaded", "templates", len(keys))
	})
	if err := catalog.LoadAll(); err != nil {
		printError("loading reply templates", err)
		return err
	}
	if cfg.Responses.Watch {
		if err := catalog.Watch(ctx); err != nil {
			logger.Warn("Template hot reload disabled", "error", err.Error())
		} else {
			defer catalog.Stop()
		}
	}

	src, err := source.NewFileSource(source.FileConfig{
		Inbox:  cfg.Bot.Inbox,
		Outbox: cfg.Bot.Outbox,
		Logger: newLogger(cfg, "source"),
	})
	if err != nil {
		printError("opening message source", err)
		return err
	}

	bot, err := runner.New(runner.Config{
		Source:        src,
		Dispatcher:    dispatcher,
		Renderer:      catalog,
		Ledger:        ledgerStore,
		Interval:      cfg.Bot.PollInterval.Duration,
		ReplyAttempts: cfg.Bot.ReplyAttempts,
		ReplyBackoff:  cfg.Bot.ReplyBackoff.Duration,
		Logger:        newLogger(cfg, "runner"),
	})
	if err != nil {
		return err
	}

	var server *coregrpc.Server
	if cfg.Health.Enabled {
		if server, err = startHealth(ctx, cfg, ledgerStore, bot); err != nil {
			printError("starting health endpoint", err)
			return err
		}
	}

	if err := bot.Start(ctx); err != nil {
		printError("starting bot", err)
		return err
	}

	fmt.Println(titleStyle.Render(version.Info()))
	fmt.Println(field("Account", "/u/"+cfg.Bot.Username))
	fmt.Println(field("Inbox", cfg.Bot.Inbox))
	fmt.Println(field("Outbox", cfg.Bot.Outbox))
	fmt.Println(field("Ledger", cfg.Database.Path))
	if server != nil {
		fmt.Println(field("Health", server.Address()))
	}
	fmt.Println(mutedStyle.Render("Press Ctrl+C to stop"))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())

	cancel()
	if err := bot.Stop(); err != nil {
		logger.Warn("Runner did not stop cleanly", "error", err.Error())
	}
	if server != nil {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		server.StopWithTimeout(stopCtx)
		stopCancel()
	}

	messages, replies := bot.Pending()
	if messages > 0 || replies > 0 {
		logger.Warn("Unfinished work dropped", "messages", messages, "replies", replies)
	}
	return nil
}

// startHealth serves the gRPC health protocol for the ledger and the runner
func startHealth(ctx context.Context, cfg *config.Config, ledger health.Pinger, bot *runner.Runner) (*coregrpc.Server, error) {
	registry := health.NewRegistry(cfg.General.Name, version.Bot)
	registry.Register(health.PingCheck("ledger", ledger))
	registry.Register(bot.HealthCheck())

	coregrpc.SetLogger(newLogger(cfg, "health"))

	serverCfg := coregrpc.DefaultServerConfig()
	serverCfg.Host = cfg.Health.Host
	serverCfg.Port = cfg.Health.Port

	server := coregrpc.NewServer(serverCfg)
	if err := server.StartAsync(); err != nil {
		return nil, err
	}
	go server.WatchHealth(ctx, registry, healthInterval)
	return server, nil
}
