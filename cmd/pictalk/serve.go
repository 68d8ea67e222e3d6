package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/pictalk/internal/api"
	"github.com/MrWong99/pictalk/internal/app"
	"github.com/MrWong99/pictalk/internal/config"
	"github.com/MrWong99/pictalk/internal/discord"
	"github.com/MrWong99/pictalk/internal/discord/commands"
	"github.com/MrWong99/pictalk/internal/observe"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noWatch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP/WebSocket API and, when configured, the Discord bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.configPath, cfg, !noWatch)
		},
	}
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "do not hot-reload the configuration file")
	return cmd
}

func serve(ctx context.Context, configPath string, cfg *config.Config, watch bool) error {
	slog.Info("pictalk starting",
		"config", configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	var tel *observe.Telemetry
	if cfg.Observe.Metrics {
		var err error
		tel, err = observe.Setup(ctx, observe.TelemetryConfig{ServiceVersion: version})
		if err != nil {
			return fmt.Errorf("init telemetry: %w", err)
		}
		defer func() {
			if err := tel.Shutdown(context.Background()); err != nil {
				slog.Warn("telemetry shutdown error", "err", err)
			}
		}()
	}

	var metrics *observe.Metrics
	if tel != nil {
		metrics = tel.Metrics
	}
	application, err := openApp(ctx, cfg, metrics)
	if err != nil {
		return err
	}

	srvOpts := []api.Option{
		api.WithAddr(cfg.Server.ListenAddr),
		api.WithHealth(application.Health()),
		api.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
	}
	if tel != nil {
		srvOpts = append(srvOpts, api.WithMetrics(tel.Metrics), api.WithMetricsHandler(tel.Handler()))
	}
	if tls := cfg.Server.TLS; tls != nil {
		srvOpts = append(srvOpts, api.WithTLS(tls.CertFile, tls.KeyFile))
	}
	application.AddRunner(api.New(application, srvOpts...))

	if cfg.Discord.Token != "" {
		bot, err := discord.New(discord.Config{
			Token:           cfg.Discord.Token,
			GuildID:         cfg.Discord.GuildID,
			TherapistRoleID: cfg.Discord.TherapistRoleID,
		})
		if err != nil {
			_ = application.Shutdown(context.Background())
			return fmt.Errorf("create discord bot: %w", err)
		}
		commands.New(application, bot.Permissions(), nil).Register(bot.Router())
		application.AddRunner(bot)
		slog.Info("discord bot enabled", "guild_id", cfg.Discord.GuildID)
	}

	if watch {
		w, err := config.NewWatcher(configPath, func(old, new *config.Config) {
			applyReload(application, config.Diff(old, new))
		})
		if err != nil {
			slog.Warn("config hot reload disabled", "err", err)
		} else {
			application.AddRunner(w)
		}
	}

	printStartupSummary(os.Stdout, cfg)
	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		if runErr == nil {
			runErr = err
		}
	}
	if runErr == nil {
		slog.Info("goodbye")
	}
	return runErr
}

// applyReload applies the hot-reloadable part of a config change.
func applyReload(a *app.App, d config.ConfigDiff) {
	if d.LogLevelChanged {
		setLogLevel(d.NewLogLevel)
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.DialogueChanged {
		a.ApplyDialogue(d.NewDialogue)
		slog.Info("dialogue settings reloaded")
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes need a restart", "sections", d.RestartRequired)
	}
}

// openApp builds the providers named in cfg and the application around them.
// A nil metrics records into [observe.DefaultMetrics].
func openApp(ctx context.Context, cfg *config.Config, metrics *observe.Metrics) (*app.App, error) {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	providers, err := app.BuildProviders(cfg, reg, metrics)
	if err != nil {
		return nil, fmt.Errorf("build providers: %w", err)
	}

	a, err := app.New(ctx, cfg, providers, app.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("initialise application: %w", err)
	}
	return a, nil
}
