// Command meetingassistant records, transcribes and summarises meetings.
//
// It runs one-off commands against the local meeting store (process, list,
// show, search, ask, rename, delete), checks the environment (doctor), and
// serves the store over HTTP (serve) or MCP on stdio (mcp).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/B-Dastan/ai-meeting-assistant/internal/app"
	"github.com/B-Dastan/ai-meeting-assistant/internal/config"
)

// version is overridden at link time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c := newCLI(os.Stdout)
	defer c.close()

	root := newRootCommand(c)
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, config.ErrConfiguration) {
			fmt.Fprintf(os.Stderr, "meetingassistant: %v\n", err)
			fmt.Fprintln(os.Stderr, "copy configs/example.yaml to config.yaml or set LLM_MODEL / LLM_BASE_URL / WHISPER_MODEL")
			return 2
		}
		fmt.Fprintf(os.Stderr, "meetingassistant: %v\n", err)
		return 1
	}
	return 0
}

// cli carries state shared by all subcommands. The App is built lazily so
// commands such as doctor run even when the providers are misconfigured.
type cli struct {
	configPath string
	envPath    string
	verbose    bool

	out   io.Writer
	level *slog.LevelVar

	// loadConfig and newApp are replaced in tests.
	loadConfig func(path string) (*config.Config, error)
	newApp     func(ctx context.Context, cfg *config.Config) (*app.App, error)

	cfg       *config.Config
	app       *app.App
	providers *app.Providers
}

func newCLI(out io.Writer) *cli {
	c := &cli{
		out:        out,
		level:      new(slog.LevelVar),
		loadConfig: config.Load,
	}
	c.newApp = c.buildApp
	return c
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:   "meetingassistant",
		Short: "Turn meeting recordings into searchable notes",
		Long: `meetingassistant transcribes meeting recordings with whisper, asks a
language model for a title, summary, key points and action items, and keeps
the result in a local database you can search and question later.

Configuration is read from config.yaml (see configs/example.yaml). The
variables LLM_BASE_URL, LLM_MODEL, LLM_API_KEY, WHISPER_MODEL and
MEETING_DB_PATH override the file and may also be placed in a .env file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(c.envPath); err != nil {
				return err
			}
			slog.SetDefault(newLogger(cmd.ErrOrStderr(), c.level))
			cfg, err := c.loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			c.level.Set(slogLevel(cfg.Server.LogLevel))
			if c.verbose {
				c.level.Set(slog.LevelDebug)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "config.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.envPath, "env-file", ".env", "optional dotenv file loaded before the config")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newProcessCommand(c),
		newListCommand(c),
		newShowCommand(c),
		newSearchCommand(c),
		newAskCommand(c),
		newRenameCommand(c),
		newDeleteCommand(c),
		newDoctorCommand(c),
		newServeCommand(c),
		newMCPCommand(c),
	)
	return root
}

// open returns the App, building it on first use.
func (c *cli) open(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.newApp(ctx, c.cfg)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

func (c *cli) buildApp(ctx context.Context, cfg *config.Config) (*app.App, error) {
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	providers, err := buildProviders(cfg, reg)
	if err != nil {
		return nil, err
	}
	c.providers = providers
	return app.New(ctx, cfg, providers)
}

// close releases the App and any provider holding native resources.
func (c *cli) close() {
	if c.app != nil {
		if err := c.app.Shutdown(context.Background()); err != nil {
			slog.Warn("shutdown error", "err", err)
		}
	}
	if c.providers == nil {
		return
	}
	for _, p := range []any{c.providers.LLM, c.providers.STT} {
		if cl, ok := p.(io.Closer); ok {
			if err := cl.Close(); err != nil {
				slog.Warn("provider close error", "err", err)
			}
		}
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
