package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/B-Dastan/ai-meeting-assistant/internal/app"
	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
	"github.com/B-Dastan/ai-meeting-assistant/internal/health"
	"github.com/B-Dastan/ai-meeting-assistant/internal/mcpserver"
	"github.com/B-Dastan/ai-meeting-assistant/internal/observe"
	"github.com/B-Dastan/ai-meeting-assistant/internal/server"
)

func newServeCommand(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: `Serve the JSON API, health probes and Prometheus metrics.

While running, edits to the config file are picked up for server.log_level
and pipeline.min_duration. Other changes are logged and need a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				c.cfg.Server.ListenAddr = addr
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.listen_addr)")
	return cmd
}

func (c *cli) serve(ctx context.Context) error {
	tel, err := observe.Setup(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	a, err := c.open(ctx)
	if err != nil {
		return err
	}
	printStartupSummary(c.out, c.cfg)

	checks := health.New(
		health.StoreChecker(a.Store()),
		health.DirChecker("uploads", c.cfg.Storage.UploadsDir),
	)
	srv := server.New(a, c.cfg.Storage.UploadsDir, server.WithHealth(checks))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(gctx, c.cfg.Server.ListenAddr)
	})

	if w := c.watchConfig(a); w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}

	slog.Info("server ready, press Ctrl+C to shut down")
	return g.Wait()
}

// watchConfig hot-reloads the settings that are safe to change at runtime.
// It returns nil when there is no config file to watch.
func (c *cli) watchConfig(a *app.App) *config.Watcher {
	if _, err := os.Stat(c.configPath); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	w, err := config.NewWatcher(c.configPath, func(r config.Reload) {
		if r.Diff.LogLevelChanged {
			c.level.Set(slogLevel(r.Diff.NewLogLevel))
			slog.Info("log level changed", "level", r.Diff.NewLogLevel)
		}
		if r.Diff.MinDurationChanged {
			a.SetMinDuration(r.Diff.NewMinDuration)
			slog.Info("minimum recording length changed", "min_duration", a.MinDuration())
		}
		if r.Diff.RestartRequired {
			slog.Warn("config changes to providers, store, storage or listen address need a restart")
		}
	})
	if err != nil {
		slog.Warn("config hot-reload disabled", "err", err)
		return nil
	}
	return w
}

func newMCPCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve meeting tools to an MCP client over stdio",
		Long: `Run an MCP server on stdin/stdout exposing list_meetings, search_meetings,
get_meeting and ask_meeting. Logs go to stderr so they never corrupt the
protocol stream.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := c.open(cmd.Context())
			if err != nil {
				return err
			}
			err = mcpserver.New(a, version).Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func newDoctorCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that ffmpeg, the model, the store and the uploads directory are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.doctor(cmd.Context())
		},
	}
}

func (c *cli) doctor(ctx context.Context) error {
	checkers := []health.Checker{
		health.FFmpegChecker(),
		health.DirChecker("uploads", c.cfg.Storage.UploadsDir),
	}
	if stt := c.cfg.Providers.STT; stt.Name == "whisper-native" {
		checkers = append(checkers, health.FileChecker("whisper model", nativeModelPath(stt)))
	}

	a, err := c.open(ctx)
	if err != nil {
		checkers = append(checkers, health.Checker{Name: "app", Check: func(context.Context) error { return err }})
	} else {
		checkers = append(checkers, health.StoreChecker(a.Store()))
	}

	outcomes, ok := health.New(checkers...).Run(ctx)
	for _, o := range outcomes {
		if o.OK() {
			fmt.Fprintf(c.out, "  ok    %s\n", o.Name)
			continue
		}
		fmt.Fprintf(c.out, "  FAIL  %s: %v\n", o.Name, o.Err)
	}
	if !ok {
		return errors.New("doctor: one or more checks failed")
	}
	fmt.Fprintln(c.out, "All checks passed.")
	return nil
}
