// Package main is the entry point for the askbot chat bridge.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"askbot/config"
	"askbot/internal/app"
	"askbot/internal/logging"
	"askbot/internal/version"
)

const shutdownTimeout = 30 * time.Second

var configPath string

var rootCmd = &cobra.Command{
	Use:   "askbot",
	Short: "askbot - chat bridge to a language model",
	Long: `askbot forwards /ask questions from Telegram or Slack to a configured
language model and replies with the answer.

  askbot serve                Run the chat gateways and the admin server
  askbot ask "question"       Ask once and print the reply
  askbot version              Print build information`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat gateways",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings(os.Stdout)
		if err != nil {
			return err
		}

		slog.Info("starting askbot",
			"version", version.Version,
			"commit", version.Commit,
			"build_date", version.Date,
		)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := app.New(ctx, app.Config{Settings: s, Version: version.Version})
		if err != nil {
			return err
		}

		serveErr := a.Serve(ctx)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
		return serveErr
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the configured model once and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr so stdout carries only the reply.
		s, err := loadSettings(os.Stderr)
		if err != nil {
			return err
		}

		a, err := app.New(cmd.Context(), app.Config{Settings: s, Version: version.Version})
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = a.Shutdown(ctx)
		}()

		reply := a.Client().Ask(cmd.Context(), strings.Join(args, " "))
		_, err = fmt.Fprintln(cmd.OutOrStdout(), reply)
		return err
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.Info())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the YAML config file (default: $ASKBOT_CONFIG or config.yaml)")
	rootCmd.Version = version.Version
	rootCmd.AddCommand(serveCmd, askCmd, versionCmd)
}

func loadSettings(logOut *os.File) (*config.Settings, error) {
	if configPath != "" {
		if err := os.Setenv("ASKBOT_CONFIG", configPath); err != nil {
			return nil, fmt.Errorf("failed to set config path: %w", err)
		}
	}

	s, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	slog.SetDefault(logging.New(s.Log, logOut))

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("askbot failed", "error", err)
		os.Exit(1)
	}
}
