package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/sitesmith/internal/compose"
	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/frontmatter"
	"git.home.luguber.info/inful/sitesmith/internal/output"
	"git.home.luguber.info/inful/sitesmith/internal/site"
	"git.home.luguber.info/inful/sitesmith/internal/templates"
	"git.home.luguber.info/inful/sitesmith/internal/util/sets"
)

// InspectCmd implements the 'inspect' command.
type InspectCmd struct {
	Path string `arg:"" help:"Template path, relative to the source directory (pages/index.html)"`
	HTML bool   `help:"Also print the composed document"`

	out io.Writer
}

func (i *InspectCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.loadConfig(g)
	if err != nil {
		return err
	}
	sink := output.NewMemorySink()
	ws, err := openWorkspace(g, cfg, sink, nil)
	if err != nil {
		return err
	}

	rel := filepath.ToSlash(i.Path)
	_, srcRoot, err := splitSource(cfg.SourceDir)
	if err != nil {
		return err
	}
	rel = strings.TrimPrefix(path.Clean(rel), srcRoot+"/")
	kind, tp, ok := site.KindOf(rel)
	if !ok {
		return foundationerrors.ValidationError("not a template path: " + i.Path).Build()
	}
	t, ok := ws.site.Get(templates.ID(kind, tp))
	if !ok {
		return foundationerrors.NotFoundError("template not found: " + i.Path).Build()
	}

	// Composing everything first gives links their article titles.
	ctx := context.Background()
	if _, err := ws.builder.BuildAll(ctx); err != nil {
		return err
	}
	res, err := compose.New(ws.site, compose.WithMaxDepth(cfg.MaxComponentDepth)).Compose(ctx, t)
	if err != nil {
		return err
	}

	summary := frontmatter.Record{
		"id":           t.ID(),
		"kind":         t.Kind.String(),
		"front_matter": map[string]any(res.FrontMatter),
		"dependencies": toAny(sets.Sorted(res.Dependencies)),
	}
	if res.Unresolved.Len() > 0 {
		summary["unresolved"] = toAny(sets.Sorted(res.Unresolved))
	}
	if out := t.OutputPath(); out != "" {
		summary["output"] = out
	}
	data, err := frontmatter.SerializeYAML(summary)
	if err != nil {
		return err
	}

	w := i.out
	if w == nil {
		w = os.Stdout
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if i.HTML {
		doc, err := res.Render()
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "---\n%s\n", doc)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
