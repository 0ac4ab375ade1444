// Package incremental builds a whole site and keeps it current: Update takes
// one changed source path, mutates the site model and recomposes only the
// pages and articles whose recorded dependencies cover the change.
//
// A Builder is driven by a single event loop and is not safe for concurrent
// use.
package incremental

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/sitesmith/internal/compose"
	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/logfields"
	"git.home.luguber.info/inful/sitesmith/internal/metrics"
	"git.home.luguber.info/inful/sitesmith/internal/output"
	"git.home.luguber.info/inful/sitesmith/internal/site"
	"git.home.luguber.info/inful/sitesmith/internal/tailwind"
	"git.home.luguber.info/inful/sitesmith/internal/templates"
	"git.home.luguber.info/inful/sitesmith/internal/util/sets"
)

// Builder owns the site model, the composition engine and the output sink.
type Builder struct {
	site     *site.Site
	engine   *compose.Engine
	sink     output.Sink
	logger   *slog.Logger
	recorder metrics.Recorder

	styleConfig  string
	styleContent []string
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) {
		if r != nil {
			b.recorder = r
		}
	}
}

// WithStyleConfig enables regeneration of the Tailwind configuration at
// path whenever the color scheme changes.
func WithStyleConfig(path string) Option {
	return func(b *Builder) {
		b.styleConfig = path
	}
}

// New returns a builder.
func New(s *site.Site, engine *compose.Engine, sink output.Sink, opts ...Option) *Builder {
	b := &Builder{
		site:     s,
		engine:   engine,
		sink:     sink,
		logger:   slog.Default(),
		recorder: metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	root := s.Loader().Root()
	b.styleContent = []string{
		"./" + path.Join(root, "**/*.html"),
		"./" + path.Join(root, "**/*.md"),
	}
	return b
}

// Site returns the site model the builder works on.
func (b *Builder) Site() *site.Site { return b.site }

// BuildReport summarizes a full build.
type BuildReport struct {
	Composed          []string
	Failed            map[string]error
	ConfigRegenerated bool
	Duration          time.Duration
}

// BuildAll composes and writes every article, then every page. Composition
// failures are collected per template; a failing output write aborts.
func (b *Builder) BuildAll(ctx context.Context) (*BuildReport, error) {
	start := time.Now()
	report := &BuildReport{Failed: map[string]error{}}

	for _, t := range b.site.Renderable() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if err := b.render(ctx, t); err != nil {
			if isIOError(err) {
				b.recorder.IncBuildOutcome(metrics.BuildFailed)
				return report, err
			}
			report.Failed[t.ID()] = err
			continue
		}
		report.Composed = append(report.Composed, t.ID())
	}

	regenerated, err := b.regenerateStyleConfig()
	if err != nil {
		if isIOError(err) {
			b.recorder.IncBuildOutcome(metrics.BuildFailed)
			return report, err
		}
		report.Failed[site.ColorSchemeFile] = err
	}
	report.ConfigRegenerated = regenerated
	report.Duration = time.Since(start)

	b.recorder.ObserveBuildDuration(report.Duration)
	outcome := metrics.BuildSuccess
	if len(report.Failed) > 0 {
		outcome = metrics.BuildPartial
	}
	b.recorder.IncBuildOutcome(outcome)

	b.logger.Info("Build complete",
		logfields.Count(len(report.Composed)),
		slog.Int("failed", len(report.Failed)),
		logfields.DurationMS(float64(report.Duration.Microseconds())/1000))
	for id, ferr := range report.Failed {
		b.logger.Warn("Template failed to compose", logfields.TemplateID(id), logfields.Error(ferr))
	}
	return report, nil
}

// Report summarizes one incremental update.
type Report struct {
	EventID           string
	Change            ChangeKind
	Path              string
	Recomposed        []string
	Failed            map[string]error
	Removed           []string
	ConfigRegenerated bool
}

// Update applies one changed path. Template read failures other than the
// file being gone are returned; composition failures are reported per
// template and leave their previous output in place.
func (b *Builder) Update(ctx context.Context, changed string) (*Report, error) {
	start := time.Now()
	ch := Classify(b.site.Loader().Root(), changed)
	report := &Report{
		EventID: uuid.NewString(),
		Change:  ch.Kind,
		Path:    changed,
		Failed:  map[string]error{},
	}
	logger := b.logger.With(logfields.EventID(report.EventID), logfields.Change(string(ch.Kind)), logfields.Path(changed))

	u := &update{builder: b, report: report, done: sets.New[string](), logger: logger}
	var err error
	if ch.Kind == ChangeUnknown {
		err = u.removeMissingDir(ctx, changed)
	} else {
		err = u.apply(ctx, ch)
	}

	slices.Sort(report.Recomposed)
	slices.Sort(report.Removed)
	b.recorder.ObserveUpdate(string(ch.Kind), time.Since(start))
	b.recorder.AddRecomposed(string(ch.Kind), len(report.Recomposed))

	if err != nil {
		logger.Error("Update failed", logfields.Error(err))
		return report, err
	}
	for id, ferr := range report.Failed {
		logger.Warn("Template failed to compose", logfields.TemplateID(id), logfields.Error(ferr))
	}
	logger.Info("Update processed",
		logfields.Count(len(report.Recomposed)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return report, nil
}

// update is the state of one Update call.
type update struct {
	builder *Builder
	report  *Report
	done    sets.Set[string]
	logger  *slog.Logger
}

func (u *update) apply(ctx context.Context, ch Change) error {
	b := u.builder
	switch ch.Kind {
	case ChangeProperties:
		if err := b.site.ReloadProperties(); err != nil {
			return err
		}
		return u.recompose(ctx, b.site.Renderable())

	case ChangeColorScheme:
		regenerated, err := b.regenerateStyleConfig()
		if err != nil {
			if isIOError(err) {
				return err
			}
			u.report.Failed[site.ColorSchemeFile] = err
		}
		u.report.ConfigRegenerated = regenerated
		return nil

	case ChangePage, ChangeArticle:
		return u.applyRenderable(ctx, ch)

	case ChangeLayout, ChangeComponent, ChangeWrapper:
		var targets []*templates.Template
		if _, err := b.site.Reload(ch.templateKind(), ch.Path); err != nil {
			if !templates.IsNotExist(err) {
				return err
			}
			b.site.Remove(ch.ID)
			u.logger.Info("Template removed", logfields.TemplateID(ch.ID))
		}
		targets = b.site.AffectedBy(ch.ID)
		if ch.Kind == ChangeWrapper {
			// Creating or deleting a wrapper changes wrapper selection below it.
			targets = append(targets, b.site.Under(path.Dir(ch.Path))...)
		}
		return u.recompose(ctx, targets)

	default:
		u.logger.Debug("Ignoring change")
		return nil
	}
}

// removeMissingDir handles a path that names no template. When it is a
// directory below the source root that no longer exists, every template
// stored beneath it is treated as deleted; anything else is ignored.
func (u *update) removeMissingDir(ctx context.Context, changed string) error {
	b := u.builder
	root := b.site.Loader().Root()
	dir, ok := sourceRel(root, changed)
	if !ok || dir == "." {
		u.logger.Debug("Ignoring change")
		return nil
	}
	if _, err := fs.Stat(b.site.Loader().FS(), path.Join(root, dir)); !errors.Is(err, fs.ErrNotExist) {
		u.logger.Debug("Ignoring change")
		return nil
	}

	gone := b.site.SourcesUnder(dir)
	if len(gone) == 0 {
		u.logger.Debug("Ignoring change")
		return nil
	}
	u.logger.Info("Source directory removed", logfields.Count(len(gone)))
	for _, t := range gone {
		if err := u.apply(ctx, Classify(root, path.Join(root, t.SourcePath()))); err != nil {
			return err
		}
	}
	return nil
}

// applyRenderable reloads a page or article. The fresh template only
// replaces the stored one once it composed successfully.
func (u *update) applyRenderable(ctx context.Context, ch Change) error {
	b := u.builder
	fresh, err := b.site.Loader().Load(ch.Path, ch.templateKind())
	if err != nil {
		if !templates.IsNotExist(err) {
			return err
		}
		return u.remove(ctx, ch.ID)
	}

	u.done.Add(ch.ID)
	res, err := b.engine.Compose(ctx, fresh)
	if err != nil {
		u.report.Failed[ch.ID] = err
		return nil
	}
	b.site.Put(fresh)
	if err := u.write(ctx, fresh, res); err != nil {
		return err
	}

	if ch.Kind == ChangeArticle {
		return u.recompose(ctx, b.site.AffectedBy(ch.ID))
	}
	return nil
}

func (u *update) remove(ctx context.Context, id string) error {
	b := u.builder
	old, ok := b.site.Remove(id)
	if !ok {
		return nil
	}
	if out := old.OutputPath(); out != "" {
		if err := b.sink.Remove(ctx, out); err != nil {
			return err
		}
		u.report.Removed = append(u.report.Removed, out)
	}
	u.logger.Info("Template removed", logfields.TemplateID(id))
	return u.recompose(ctx, b.site.AffectedBy(id))
}

// recompose composes and writes each target once. An article whose resolved
// title changed also pulls in the templates that link to it.
func (u *update) recompose(ctx context.Context, targets []*templates.Template) error {
	queue := slices.Clone(targets)
	// Articles first so pages see their freshly resolved titles.
	slices.SortStableFunc(queue, func(a, b *templates.Template) int {
		return kindRank(a.Kind) - kindRank(b.Kind)
	})
	for len(queue) > 0 {
		t := queue[0]
		queue = queue[1:]
		if u.done.Has(t.ID()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		u.done.Add(t.ID())

		oldTitle := t.FrontMatter.String("title")
		if err := u.builder.render(ctx, t); err != nil {
			if isIOError(err) {
				return err
			}
			u.report.Failed[t.ID()] = err
			continue
		}
		u.report.Recomposed = append(u.report.Recomposed, t.ID())

		if t.Kind == templates.KindArticle && t.FrontMatter.String("title") != oldTitle {
			queue = append(queue, u.builder.site.AffectedBy(t.ID())...)
		}
	}
	return nil
}

func (u *update) write(ctx context.Context, t *templates.Template, res *compose.Result) error {
	data, err := res.Render()
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "render document").
			WithTemplate(t.ID()).
			Build()
	}
	if err := u.builder.sink.Write(ctx, t.OutputPath(), data); err != nil {
		return err
	}
	u.report.Recomposed = append(u.report.Recomposed, t.ID())
	return nil
}

// render composes t and writes its output.
func (b *Builder) render(ctx context.Context, t *templates.Template) error {
	res, err := b.engine.Compose(ctx, t)
	if err != nil {
		return err
	}
	data, err := res.Render()
	if err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryInternal, "render document").
			WithTemplate(t.ID()).
			Build()
	}
	return b.sink.Write(ctx, t.OutputPath(), data)
}

// regenerateStyleConfig rewrites the Tailwind configuration from the color
// scheme. It reports false when disabled or when the site has no scheme.
func (b *Builder) regenerateStyleConfig() (bool, error) {
	if b.styleConfig == "" {
		return false, nil
	}
	loader := b.site.Loader()
	full := path.Join(loader.Root(), site.ColorSchemeFile)
	raw, err := fs.ReadFile(loader.FS(), full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read color scheme").
			WithContext("path", full).
			Build()
	}
	data, err := tailwind.Generate(raw, b.styleContent)
	if err != nil {
		return false, err
	}
	if err := tailwind.WriteFile(b.styleConfig, data); err != nil {
		return false, err
	}
	b.logger.Info("Updated style configuration", logfields.Output(b.styleConfig))
	return true, nil
}

func kindRank(k templates.Kind) int {
	if k == templates.KindArticle {
		return 0
	}
	return 1
}

func isIOError(err error) bool {
	return foundationerrors.HasCategory(err, foundationerrors.CategoryFileSystem) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
