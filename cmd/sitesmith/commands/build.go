package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Source string `short:"s" help:"Override source_dir"`
	Output string `short:"o" help:"Override output_dir"`

	out io.Writer
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	if b.Source != "" {
		cfg.SourceDir = b.Source
	}
	if b.Output != "" {
		cfg.OutputDir = b.Output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ws, err := openWorkspace(g, cfg, nil, nil)
	if err != nil {
		return err
	}
	report, err := ws.builder.BuildAll(context.Background())
	if err != nil {
		return err
	}

	out := b.out
	if out == nil {
		out = os.Stdout
	}
	_, _ = fmt.Fprintf(out, "Built %d templates into %s in %s\n", len(report.Composed), cfg.OutputDir, report.Duration.Round(1e6))
	if report.ConfigRegenerated {
		_, _ = fmt.Fprintf(out, "Updated %s\n", cfg.TailwindConfig)
	}
	if len(report.Failed) == 0 {
		return nil
	}

	ids := make([]string, 0, len(report.Failed))
	for id := range report.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		_, _ = fmt.Fprintf(out, "  failed: %s: %v\n", id, report.Failed[id])
	}
	return foundationerrors.CompositionError(fmt.Sprintf("%d templates failed to compose", len(ids))).
		WithContext("failed", ids).
		Build()
}
