package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"codebot/internal/channel"
	"codebot/internal/config"
	"codebot/internal/prompt"
	"codebot/internal/provider"

	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks against the configured services",
		Long: `Verifies that CodeBot's configuration, Telegram token, Groq key,
prompt profile and health port are usable. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("CodeBot Doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed, warned, failed := 0, 0, 0

			// 1. Config source
			cfgPath := resolveConfigPath()
			if cfgPath == "" {
				printWarn("Config file", "none, using environment only")
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			// 2. Config loads and validates
			cfg, err := config.Load(cfgPath)
			if err != nil {
				printFail("Config validation", err.Error())
				failed++
				fmt.Printf("\nRun 'codebot config init' or export TELEGRAM_TOKEN and GROQ_API_KEY.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			printPass("Config validation", "valid")
			passed++

			// 3. Telegram token
			tg := channel.NewTelegram(channel.TelegramConfig{Token: cfg.Telegram.Token, Logger: quietLogger()})
			if id, err := tg.Connect(); err != nil {
				printFail("Telegram", err.Error())
				failed++
			} else {
				printPass("Telegram", "@"+id.Username)
				passed++
			}

			// 4. Groq key
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			groq := provider.NewGroq(provider.GroqConfig{
				APIKey:  cfg.Completion.APIKey,
				APIBase: cfg.Completion.APIBase,
				Timeout: 15 * time.Second,
				Logger:  quietLogger(),
			})
			if err := groq.Healthy(ctx); err != nil {
				printFail("Groq", err.Error())
				failed++
			} else {
				printPass("Groq", cfg.Completion.Model)
				passed++
			}

			// 5. Prompt profile
			if profile, err := prompt.LoadProfile(cfg.Prompt.ProfileFile, quietLogger()); err != nil {
				printFail("Prompt profile", err.Error())
				failed++
			} else {
				printPass("Prompt profile", fmt.Sprintf("%d modes", len(profile.ModeNames())))
				passed++
			}

			// 6. Health port
			if cfg.Health.Enabled {
				if err := checkAddr(cfg.Health.Addr); err != nil {
					printWarn("Health addr", fmt.Sprintf("%s may be in use: %v", cfg.Health.Addr, err))
					warned++
				} else {
					printPass("Health addr", cfg.Health.Addr+" available")
					passed++
				}
			}

			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running CodeBot.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\nCodeBot should work but consider fixing the warnings.\n")
			} else {
				fmt.Printf("\nAll checks passed! CodeBot is ready to run.\n")
			}
			return nil
		},
	}
}

func quietLogger() *slog.Logger {
	return newLogger("error")
}

func checkAddr(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
