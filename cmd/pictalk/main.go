// Command pictalk is the pictogram conversation server and its tooling.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrWong99/pictalk/internal/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pictalk: %v\n", err)
		os.Exit(1)
	}
}

// rootOptions holds the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "pictalk",
		Short:         "Pictogram conversation assistant",
		Long:          "pictalk answers utterances with text and pictograms, runs word games and drills,\nand tracks progress for therapists and teachers.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override server.log_level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newChatCmd(opts),
		newResolveCmd(opts),
		newSuggestCmd(opts),
		newMCPCmd(opts),
		newMigrateCmd(opts),
	)

	return root
}

// loadConfig reads the configuration and installs the default logger.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %q not found, copy configs/example.yaml to get started", o.configPath)
		}
		return nil, err
	}
	if o.logLevel != "" {
		lvl := config.LogLevel(o.logLevel)
		if !lvl.IsValid() {
			return nil, fmt.Errorf("invalid --log-level %q", o.logLevel)
		}
		cfg.Server.LogLevel = lvl
	}
	slog.SetDefault(newLogger(cfg.Server.LogLevel))
	return cfg, nil
}

// ── Logger ──────────────────────────────────────────────────────────────────

var logLevel = new(slog.LevelVar)

// newLogger returns a text logger on stderr whose level can be changed later
// through setLogLevel.
func newLogger(level config.LogLevel) *slog.Logger {
	setLogLevel(level)
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}

func setLogLevel(level config.LogLevel) {
	switch level {
	case config.LogDebug:
		logLevel.Set(slog.LevelDebug)
	case config.LogWarn:
		logLevel.Set(slog.LevelWarn)
	case config.LogError:
		logLevel.Set(slog.LevelError)
	default:
		logLevel.Set(slog.LevelInfo)
	}
}
