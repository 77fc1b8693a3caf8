package commands

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/texbuilder/internal/build"
	"git.home.luguber.info/inful/texbuilder/internal/config"
	"git.home.luguber.info/inful/texbuilder/internal/eventstore"
	foundationerrors "git.home.luguber.info/inful/texbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/texbuilder/internal/logfields"
	"git.home.luguber.info/inful/texbuilder/internal/metrics"
	"git.home.luguber.info/inful/texbuilder/internal/notify"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"texbuilder.yaml" type:"path"`
	Root    string           `short:"r" help:"Override source.root of the configuration" type:"path"`
	Output  string           `short:"o" help:"Override output.directory of the configuration" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build    BuildCmd    `cmd:"" default:"1" help:"Convert graphics and build every main document"`
	Graphics GraphicsCmd `cmd:"" help:"Convert graphics only and list the main documents"`
	Clear    ClearCmd    `cmd:"" help:"Delete files created by earlier passes from the source tree"`
	Check    CheckCmd    `cmd:"" help:"Run the style checker on every main document"`
	Init     InitCmd     `cmd:"" help:"Write a configuration file with the default settings"`
	Cfg      CfgCmd      `cmd:"" help:"Print the effective configuration parameters"`
	Inject   InjectCmd   `cmd:"" help:"Write rc files (.latexmkrc, .chktexrc) into the source root"`
	Watch    WatchCmd    `cmd:"" help:"Rebuild whenever sources change"`
	History  HistoryCmd  `cmd:"" help:"Show past passes recorded in the build history"`
	Ver      VersionCmd  `cmd:"" name:"version" help:"Print version information"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply(g *Global) error {
	level := parseLogLevel(c.Verbose)
	g.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(g.Logger)
	return nil
}

// parseLogLevel returns debug for -v, otherwise the level named by
// TEXBUILDER_LOG_LEVEL, otherwise info.
func parseLogLevel(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("TEXBUILDER_LOG_LEVEL"))) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// loadConfig reads the configuration file. A missing file at the default location
// yields the defaults; a missing file named explicitly is an error.
func (c *CLI) loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(c.Config); errors.Is(err, os.ErrNotExist) && isDefaultConfigPath(c.Config) {
		slog.Debug("No configuration file, using defaults", logfields.File(c.Config))
		cfg = config.Default()
		if _, err := config.NormalizeConfig(cfg); err != nil {
			return nil, err
		}
	} else {
		loaded, err := config.Load(c.Config)
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryConfig, "failed to load configuration").
				WithContext("path", c.Config).
				Fatal().
				Build()
		}
		cfg = loaded
		for _, w := range cfg.Warnings() {
			slog.Warn("Configuration adjusted", slog.String("detail", w), logfields.File(c.Config))
		}
	}
	if c.Root != "" {
		cfg.Source.Root = c.Root
	}
	if c.Output != "" {
		cfg.Output.Directory = c.Output
	}
	return cfg, nil
}

// isDefaultConfigPath reports whether path is the default configuration file in the
// working directory, which is where -c points when it is not given.
func isDefaultConfigPath(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	def, err := filepath.Abs(config.DefaultFileName)
	return err == nil && abs == def
}

// services holds what a build service is wired to and closes it afterwards.
type services struct {
	svc       *build.DefaultService
	store     *eventstore.SQLiteStore
	publisher *notify.Publisher
}

// newServices wires the build service to metrics, history and notification as
// configured.
func newServices(cfg *config.Config) (*services, error) {
	s := &services{svc: build.NewService()}
	if cfg.Metrics.TextfilePath != "" {
		s.svc.WithRecorder(metrics.NewPrometheusRecorder(prom.NewRegistry()))
	}
	if cfg.History.Path != "" {
		store, err := openHistory(cfg)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.svc.WithHistory(store)
	}
	publisher, err := notify.Connect(cfg)
	if err != nil {
		slog.Warn("Build reports will not be published", logfields.Error(err))
	} else if publisher != nil {
		s.publisher = publisher
		s.svc.WithPublisher(publisher)
	}
	return s, nil
}

func (s *services) Close() {
	s.publisher.Close()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close build history", logfields.Error(err))
		}
	}
}

func openHistory(cfg *config.Config) (*eventstore.SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "cannot create history directory").
			WithContext("path", cfg.History.Path).
			Build()
	}
	return eventstore.NewSQLiteStore(cfg.History.Path)
}
