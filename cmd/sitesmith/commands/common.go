package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"git.home.luguber.info/inful/sitesmith/internal/compose"
	"git.home.luguber.info/inful/sitesmith/internal/config"
	"git.home.luguber.info/inful/sitesmith/internal/incremental"
	"git.home.luguber.info/inful/sitesmith/internal/metrics"
	"git.home.luguber.info/inful/sitesmith/internal/output"
	"git.home.luguber.info/inful/sitesmith/internal/site"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
	// TracerProvider receives composition spans; nil uses the global provider.
	TracerProvider trace.TracerProvider
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"sitesmith.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Trace   bool             `help:"Write composition trace spans to stderr"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Compose every page and article into the output directory"`
	Watch   WatchCmd   `cmd:"" help:"Build, then rebuild affected outputs whenever sources change"`
	Inspect InspectCmd `cmd:"" help:"Show the resolved front matter and dependencies of one template"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// loadConfig loads the configuration and switches logging to its settings,
// both for slog.Default and for g. -v always wins over the configured level.
func (c *CLI) loadConfig(g *Global) (*config.Config, error) {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return nil, err
	}
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return nil, err
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(newHandler(os.Stderr, cfg.Logging.Format, level))
	slog.SetDefault(logger)
	if g != nil {
		g.Logger = logger
	}
	return cfg, nil
}

func newHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// splitSource turns a configured source directory into the project
// directory the file system is rooted at and the source root inside it.
func splitSource(src string) (projectDir, root string, err error) {
	abs, err := filepath.Abs(src)
	if err != nil {
		return "", "", err
	}
	return filepath.Dir(abs), filepath.Base(abs), nil
}

// workspace bundles everything a command needs to build.
type workspace struct {
	projectDir string
	site       *site.Site
	builder    *incremental.Builder
}

func openWorkspace(g *Global, cfg *config.Config, sink output.Sink, reg *prom.Registry) (*workspace, error) {
	projectDir, root, err := splitSource(cfg.SourceDir)
	if err != nil {
		return nil, err
	}
	logger := g.logger()

	var recorder metrics.Recorder = metrics.NoopRecorder{}
	if reg != nil {
		recorder = metrics.NewPrometheusRecorder(reg)
	}

	s, err := site.Load(os.DirFS(projectDir), root, site.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	opts := []compose.Option{
		compose.WithLogger(logger),
		compose.WithMaxDepth(cfg.MaxComponentDepth),
		compose.WithRecorder(recorder),
	}
	if g != nil && g.TracerProvider != nil {
		opts = append(opts, compose.WithTracerProvider(g.TracerProvider))
	}
	engine := compose.New(s, opts...)
	if sink == nil {
		sink = output.NewDirWriter(cfg.OutputDir, output.WithRecorder(recorder), output.WithLogger(logger))
	}
	b := incremental.New(s, engine, sink,
		incremental.WithLogger(logger),
		incremental.WithRecorder(recorder),
		incremental.WithStyleConfig(cfg.TailwindConfig),
	)
	return &workspace{projectDir: projectDir, site: s, builder: b}, nil
}
