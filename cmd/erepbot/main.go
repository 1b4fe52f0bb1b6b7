package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"erepbot/internal/api"
	"erepbot/internal/bot"
	"erepbot/internal/config"
	"erepbot/internal/db"
	"erepbot/internal/erep"
	"erepbot/internal/journal"
)

func main() {
	cfg := config.LoadCLIFromEnv()

	root := &cobra.Command{
		Use:          "erepbot",
		Short:        "Resource-aware game automation bot",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfg.GatewayURL, "gateway", cfg.GatewayURL, "game gateway base URL")
	root.PersistentFlags().StringVar(&cfg.StatusURL, "status", cfg.StatusURL, "status API base URL of a running bot")

	root.AddCommand(
		newRunCmd(),
		newLoginCmd(&cfg),
		newLogoutCmd(),
		newBattlesCmd(&cfg),
		newDecideCmd(&cfg),
		newJournalCmd(&cfg),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := config.LoadBotFromEnv()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := newLogger(cfg.LogLevel, cfg.LogFormat)
			slog.SetDefault(logger)
			return runBot(ctx, cfg, logger)
		},
	}
}

func runBot(ctx context.Context, cfg config.BotConfig, logger *slog.Logger) error {
	client := erep.NewClient(cfg.GatewayURL, cfg.RequestsPerSecond, logger).
		WithCredentials(cfg.Email, cfg.Password).
		PersistSessions()
	if saved, err := erep.LoadSession(); err == nil {
		client.SetSession(saved)
	}
	if err := client.EnsureSession(ctx); err != nil {
		return err
	}

	spool, err := journal.DefaultSpool()
	if err != nil {
		return fmt.Errorf("journal spool: %w", err)
	}
	var store journal.Store
	var reader api.JournalReader
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		pg := journal.NewPGStore(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		store, reader = pg, pg
	}
	reporter := journal.New(store, spool, logger)

	scheduler, err := bot.NewScheduler(cfg.Options, client, reporter, logger)
	if err != nil {
		return err
	}
	scheduler.Register(time.Now())
	hub := api.NewHub(logger)
	broadcaster := bot.NewBroadcaster(scheduler, hub, cfg.Options.BroadcastEvery, logger)
	statusAPI := api.New(logger, scheduler, hub)
	if reader != nil {
		statusAPI.WithJournal(reader)
	}
	srv := &http.Server{
		Addr:              cfg.StatusAddr,
		Handler:           statusAPI.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	g.Go(func() error {
		return broadcaster.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("status api listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	reporter.Report(ctx, "lifecycle", "Bot started", map[string]any{"tasks": scheduler.Snapshot().Tasks})
	err = g.Wait()
	reporter.Report(context.WithoutCancel(ctx), "lifecycle", "Bot stopped", nil)
	return err
}

func newLoginCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in to the game and save the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			email, err := promptRequired("Email")
			if err != nil {
				return err
			}
			password, err := promptPassword("Password")
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			client := erep.NewClient(cfg.GatewayURL, 0, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
			session, err := client.Login(ctx, email, password)
			if err != nil {
				return err
			}
			if err := erep.SaveSession(session); err != nil {
				return err
			}
			printSuccess(fmt.Sprintf("Logged in as citizen %d.", session.CitizenID))
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the saved session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := erep.ClearSession(); err != nil {
				return err
			}
			printSuccess("Logged out.")
			return nil
		},
	}
}

func newBattlesCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "battles",
		Short: "List fightable battles in priority order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			var out battlesPayload
			if err := getStatus(ctx, cfg.StatusURL, "/v1/battles", &out); err != nil {
				return err
			}
			renderBattles(out.Candidates)
			return nil
		},
	}
}

func newDecideCmd(cfg *config.CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "decide",
		Short: "Show the current fight decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			var status bot.Snapshot
			if err := getStatus(ctx, cfg.StatusURL, "/v1/status", &status); err != nil {
				return err
			}
			var out decisionPayload
			if err := getStatus(ctx, cfg.StatusURL, "/v1/decision", &out); err != nil {
				return err
			}
			renderDecision(status, out)
			return nil
		},
	}
}

func newJournalCmd(cfg *config.CLIConfig) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Journal maintenance",
	}
	journalCmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Replay locally spooled journal events into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()
			pool, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			spool, err := journal.DefaultSpool()
			if err != nil {
				return err
			}
			j := journal.New(journal.NewPGStore(pool), spool, slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
			n, err := j.Sync(ctx)
			if err != nil {
				return err
			}
			if n == 0 {
				printInfo("Nothing to sync.")
				return nil
			}
			printSuccess(fmt.Sprintf("Synced %d journal events.", n))
			return nil
		},
	})

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Show the most recent journal events of a running bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			var out journalPayload
			if err := getStatus(ctx, cfg.StatusURL, fmt.Sprintf("/v1/journal?limit=%d", limit), &out); err != nil {
				return err
			}
			renderJournal(out.Events)
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show")
	journalCmd.AddCommand(listCmd)
	return journalCmd
}

func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return promptRequired(label)
	}
	for {
		fmt.Printf("%s: ", label)
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		if text := strings.TrimSpace(string(raw)); text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}
