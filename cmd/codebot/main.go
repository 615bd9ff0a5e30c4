package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"codebot/internal/bus"
	"codebot/internal/channel"
	"codebot/internal/config"
	"codebot/internal/domain"
	"codebot/internal/health"
	"codebot/internal/prompt"
	"codebot/internal/provider"
	"codebot/internal/relay"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	version    = "0.1.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
)

func main() {
	logger = newLogger("info")

	root := &cobra.Command{
		Use:           "codebot",
		Short:         "CodeBot: a Telegram code assistant backed by Groq",
		Long:          "CodeBot answers code questions in Telegram chats: roasts, translations, complexity analysis, docs and bug fixes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (default: ./"+config.DefaultConfigFile+" if present)")

	root.AddCommand(runCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(versionCmd())

	if err := root.Execute(); err != nil {
		if errors.Is(err, domain.ErrConfigurationMissing) {
			fmt.Fprintf(os.Stderr, "codebot: %v\n", err)
		} else {
			logger.Error("command failed", "error", err)
		}
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// resolveConfigPath returns the --config flag, else the default file when it
// exists, else "" so configuration comes from the environment alone.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if _, err := os.Stat(config.DefaultConfigFile); err == nil {
		return config.DefaultConfigFile
	}
	return ""
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (Telegram polling + relay + health server)",
		Long:  "Connects to Telegram, answers messages until interrupted, and serves /healthz and /metrics. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return err
	}
	logger = newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	profile, err := prompt.LoadProfile(cfg.Prompt.ProfileFile, logger)
	if err != nil {
		return err
	}

	tg := channel.NewTelegram(channel.TelegramConfig{
		Token:       cfg.Telegram.Token,
		ParseMode:   cfg.Telegram.ParseMode,
		PollTimeout: cfg.Telegram.PollTimeout,
		Logger:      logger,
	})
	identity, err := tg.Connect()
	if err != nil {
		return err
	}

	groq := provider.NewGroq(provider.GroqConfig{
		APIKey:  cfg.Completion.APIKey,
		APIBase: cfg.Completion.APIBase,
		Timeout: cfg.Completion.Timeout(),
		Logger:  logger,
	})
	retrier := provider.NewRetrier(provider.RetryConfig{
		Completer:   groq,
		Model:       cfg.Completion.Model,
		Temperature: cfg.Completion.Temperature,
		MaxTokens:   cfg.Completion.MaxTokens,
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay(),
		Logger:      logger,
	})

	messageBus := bus.New(bus.Config{
		BufferSize:     cfg.Relay.BusBuffer,
		PublishTimeout: cfg.Relay.PublishTimeout(),
		Logger:         logger,
	})
	defer messageBus.Close()

	loop := relay.NewLoop(relay.LoopConfig{
		Bus:        messageBus,
		Bot:        identity,
		Gate:       relay.NewGate(identity, cfg.Telegram.TriggerKeywords),
		Composer:   prompt.NewComposer(profile),
		Classifier: prompt.NewClassifier(profile),
		Deliverer: relay.NewDeliverer(relay.DelivererConfig{
			Transport:  tg,
			Completion: retrier,
			Logger:     logger,
		}),
		Transport:       tg,
		FreshnessWindow: cfg.Relay.FreshnessWindow(),
		Concurrency:     cfg.Relay.Concurrency,
		Logger:          logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return tg.Start(gctx, messageBus) })
	g.Go(func() error { return loop.Run(gctx) })
	if cfg.Health.Enabled {
		srv := health.NewServer(cfg.Health.Addr, logger)
		g.Go(func() error { return srv.Run(gctx) })
	}

	logger.Info("codebot started",
		"version", version,
		"bot", identity.Username,
		"model", cfg.Completion.Model,
		"keywords", cfg.Telegram.TriggerKeywords,
	)
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("codebot stopped")
	return nil
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View and initialise configuration",
		Long:  "Write a config template, or inspect the effective configuration with secrets masked.",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config template with credentials read from the environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultConfigFile
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.Save(path, config.Template()); err != nil {
				return err
			}
			logger.Info("config written", "path", path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cmd.AddCommand(initCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "get [path]",
		Short: "Get a config value (e.g. retry.maxAttempts)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			val, err := config.GetByPath(config.Sanitize(cfg), args[0])
			if err != nil {
				return err
			}
			data, _ := json.MarshalIndent(val, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all config values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			data, _ := json.MarshalIndent(config.Sanitize(cfg), "", "  ")
			fmt.Println(string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			if p := resolveConfigPath(); p != "" {
				fmt.Println(p)
				return
			}
			fmt.Println("(none, environment only)")
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("codebot %s\n", version)
		},
	}
}
