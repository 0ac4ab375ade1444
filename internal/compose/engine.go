// Package compose turns a page or article into its final document: it
// resolves the front-matter chain (site, wrapper, layout, leaf), nests the
// leaf body into its wrapper and layout, expands component and article
// references, resolves article links and fills slots.
//
// Every composition records the exact set of template identifiers it
// traversed. The incremental builder relies on that set to decide what to
// recompose after a change.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitesmith/internal/dom"
	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/frontmatter"
	"git.home.luguber.info/inful/sitesmith/internal/logfields"
	"git.home.luguber.info/inful/sitesmith/internal/metrics"
	"git.home.luguber.info/inful/sitesmith/internal/site"
	"git.home.luguber.info/inful/sitesmith/internal/templates"
	"git.home.luguber.info/inful/sitesmith/internal/util/sets"
)

// DefaultMaxDepth bounds component nesting when no other limit is configured.
const DefaultMaxDepth = 32

const tracerName = "git.home.luguber.info/inful/sitesmith/internal/compose"

// ErrCircularComponentReference is wrapped by composition errors raised when
// a component or article embeds itself, directly or through others, or when
// nesting exceeds the configured depth.
var ErrCircularComponentReference = errors.New("circular component reference")

// Engine composes templates of one site.
type Engine struct {
	site     *site.Site
	logger   *slog.Logger
	tracer   trace.Tracer
	recorder metrics.Recorder
	maxDepth int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMaxDepth sets the component nesting bound. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// WithTracerProvider sets the provider compose spans are created from.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// New returns an engine bound to s.
func New(s *site.Site, opts ...Option) *Engine {
	e := &Engine{
		site:     s,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
		recorder: metrics.NoopRecorder{},
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result is the outcome of one successful composition.
type Result struct {
	Template     *templates.Template
	Document     *html.Node
	FrontMatter  frontmatter.Record
	Dependencies sets.Set[string]
	Unresolved   sets.Set[string]
}

// Render serializes the composed document.
func (r *Result) Render() ([]byte, error) {
	return dom.Render(r.Document)
}

// Compose builds the final document of t.
//
// On success t.FrontMatter, t.Dependencies and t.Unresolved are replaced with
// what this composition saw. On failure t is left untouched.
func (e *Engine) Compose(ctx context.Context, t *templates.Template) (*Result, error) {
	_, span := e.tracer.Start(ctx, "compose", trace.WithAttributes(
		attribute.String("template.id", t.ID()),
		attribute.String("template.kind", t.Kind.String()),
	))
	defer span.End()

	start := time.Now()
	res, err := e.compose(t)
	e.recorder.ObserveCompose(t.Kind.String(), time.Since(start), err == nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("dependencies.count", res.Dependencies.Len()))

	t.FrontMatter = res.FrontMatter
	t.Dependencies = res.Dependencies
	t.Unresolved = res.Unresolved
	return res, nil
}

func (e *Engine) compose(t *templates.Template) (*Result, error) {
	p := &pass{
		engine:     e,
		leaf:       t,
		deps:       sets.New[string](),
		unresolved: sets.New[string](),
	}

	var wrapper *templates.Template
	if w, ok := e.site.WrapperFor(t); ok {
		wrapper = w
		p.deps.Add(w.ID())
	}

	var layout *templates.Template
	if name := frontmatter.Resolve(wrapperLocal(wrapper), t.Local).String("layout"); name != "" {
		if l, ok := e.site.Layout(name); ok {
			layout = l
			p.deps.Add(l.ID())
		} else {
			p.missing(templates.ID(templates.KindLayout, name), "layout")
		}
	}

	chain := []frontmatter.Record{e.site.Properties, wrapperLocal(wrapper)}
	if layout != nil {
		chain = append(chain, layout.Local)
	}
	chain = append(chain, t.Local)
	merged := frontmatter.Resolve(chain...)
	if merged.String("title") == "" {
		merged["title"] = DefaultTitle(t.Name())
	}

	doc := dom.Clone(t.Document)
	if wrapper != nil && dom.FindFirst(wrapper.Document, templates.TagContent) != nil {
		doc = nest(wrapper.Document, doc)
	}
	if layout != nil {
		doc = nest(layout.Document, doc)
	}

	stack := []string{t.ID()}
	if err := p.expand(doc, stack); err != nil {
		return nil, err
	}
	p.resolveLinks(doc)

	inserts := map[string]*html.Node{}
	if wrapper != nil {
		for name, ins := range wrapper.Inserts {
			inserts[name] = ins
		}
	}
	for name, ins := range t.Inserts {
		inserts[name] = ins
	}
	expanded := make(map[string]*html.Node, len(inserts))
	for name, ins := range inserts {
		frag := dom.Fragment(dom.CloneChildren(ins)...)
		if err := p.expand(frag, stack); err != nil {
			return nil, err
		}
		p.resolveLinks(frag)
		expanded[name] = frag
	}
	fillSlots(doc, expanded)

	frontmatter.ExpandClassAliases(merged, doc)
	fillProps(doc, merged)
	fillTitle(doc, merged.String("title"))

	return &Result{
		Template:     t,
		Document:     doc,
		FrontMatter:  merged,
		Dependencies: p.deps,
		Unresolved:   p.unresolved,
	}, nil
}

// nest clones outer and puts the content of inner at its content slot. A
// full-document inner contributes only its body children. Without a content
// slot the outer document is used as is.
func nest(outer, inner *html.Node) *html.Node {
	doc := dom.Clone(outer)
	slots := dom.FindAll(doc, templates.TagContent)
	if len(slots) == 0 {
		return doc
	}
	fillContent(slots, dom.TakeChildren(dom.ContentRoot(inner)))
	return doc
}

func wrapperLocal(w *templates.Template) frontmatter.Record {
	if w == nil {
		return nil
	}
	return w.Local
}

// DefaultTitle derives a title from a file name: "blog_post" becomes
// "Blog Post".
func DefaultTitle(name string) string {
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return cases.Title(language.English).String(strings.TrimSpace(name))
}

// pass carries the state of a single composition.
type pass struct {
	engine     *Engine
	leaf       *templates.Template
	deps       sets.Set[string]
	unresolved sets.Set[string]
}

func (p *pass) missing(id, what string) {
	p.unresolved.Add(id)
	err := foundationerrors.NotFoundError(what+" not found").
		WithTemplate(p.leaf.ID()).
		WithContext("reference", id).
		Build()
	p.engine.logger.Warn("Unresolved reference left in place",
		logfields.TemplateID(p.leaf.ID()),
		logfields.Dependency(id),
		logfields.Error(err))
}

// enter checks that id may be pushed on the visiting stack.
func (p *pass) enter(id string, stack []string) error {
	if i := slices.Index(stack, id); i >= 0 {
		chain := strings.Join(append(slices.Clone(stack[i:]), id), " -> ")
		return foundationerrors.WrapError(ErrCircularComponentReference, foundationerrors.CategoryComposition,
			"component chain "+chain).
			WithTemplate(p.leaf.ID()).
			WithContext("chain", chain).
			Build()
	}
	if len(stack) > p.engine.maxDepth {
		chain := strings.Join(append(slices.Clone(stack), id), " -> ")
		return foundationerrors.WrapError(ErrCircularComponentReference, foundationerrors.CategoryComposition,
			fmt.Sprintf("component nesting deeper than %d", p.engine.maxDepth)).
			WithTemplate(p.leaf.ID()).
			WithContext("chain", chain).
			Build()
	}
	return nil
}

// expand resolves every component and article reference below n.
func (p *pass) expand(n *html.Node, stack []string) error {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		var err error
		switch {
		case dom.IsElement(c, templates.TagComponent):
			err = p.embedComponent(c, stack)
		case dom.IsElement(c, templates.TagArticle):
			err = p.embedArticle(c, stack)
		default:
			err = p.expand(c, stack)
		}
		if err != nil {
			return err
		}
		c = next
	}
	return nil
}

func (p *pass) embedComponent(ref *html.Node, stack []string) error {
	// Caller content belongs to the caller and is expanded at its level.
	if err := p.expand(ref, stack); err != nil {
		return err
	}

	name := dom.GetAttr(ref, "name")
	if name == "" {
		return nil
	}
	id := templates.ID(templates.KindComponent, name)
	comp, ok := p.engine.site.Component(name)
	if !ok {
		p.missing(id, "component")
		return nil
	}
	if err := p.enter(id, stack); err != nil {
		return err
	}
	p.deps.Add(id)

	frag := dom.Fragment(dom.CloneChildren(comp.Document)...)
	frontmatter.ExpandClassAliases(comp.Local, frag)
	if err := p.expand(frag, append(slices.Clone(stack), id)); err != nil {
		return err
	}

	inserts, content := callerParts(ref)
	if slots := dom.FindAll(frag, templates.TagContent); len(slots) > 0 {
		fillContent(slots, content)
	}
	p.resolveLinks(frag)
	fillSlots(frag, inserts)

	dom.ReplaceWith(ref, dom.TakeChildren(frag)...)
	return nil
}

func (p *pass) embedArticle(ref *html.Node, stack []string) error {
	name := dom.GetAttr(ref, "name")
	if name == "" {
		return p.expand(ref, stack)
	}
	id := templates.ID(templates.KindArticle, name)
	art, ok := p.engine.site.Article(name)
	if !ok {
		p.missing(id, "article")
		return nil
	}
	if err := p.enter(id, stack); err != nil {
		return err
	}
	p.deps.Add(id)

	frag := dom.Fragment(dom.CloneChildren(art.Document)...)
	frontmatter.ExpandClassAliases(art.Local, frag)
	if err := p.expand(frag, append(slices.Clone(stack), id)); err != nil {
		return err
	}
	p.resolveLinks(frag)

	dom.ReplaceWith(ref, dom.TakeChildren(frag)...)
	return nil
}

// callerParts takes the children of a component reference apart into named
// inserts (later wins) and the remaining content.
func callerParts(ref *html.Node) (map[string]*html.Node, []*html.Node) {
	inserts := map[string]*html.Node{}
	var content []*html.Node
	for _, c := range dom.TakeChildren(ref) {
		if !dom.IsElement(c, templates.TagInsert) {
			content = append(content, c)
			continue
		}
		if name := dom.GetAttr(c, "name"); name != "" {
			inserts[name] = dom.Fragment(dom.TakeChildren(c)...)
		}
	}
	return inserts, content
}

// fillContent moves nodes into the first content slot and copies of them into
// any further ones.
func fillContent(slots []*html.Node, nodes []*html.Node) {
	for i, slot := range slots {
		if i == 0 {
			dom.ReplaceWith(slot, nodes...)
			continue
		}
		clones := make([]*html.Node, 0, len(nodes))
		for _, n := range nodes {
			clones = append(clones, dom.Clone(n))
		}
		dom.ReplaceWith(slot, clones...)
	}
}

// fillSlots replaces every tg-slot below root with a copy of the matching
// insert, or with its own fallback children when no insert matches.
func fillSlots(root *html.Node, inserts map[string]*html.Node) {
	for _, slot := range dom.FindAll(root, templates.TagSlot) {
		if ins, ok := inserts[dom.GetAttr(slot, "name")]; ok {
			dom.ReplaceWith(slot, dom.CloneChildren(ins)...)
			continue
		}
		dom.Unwrap(slot)
	}
}

// fillProps replaces tg-prop elements with the text of the named key, trying
// the bare key, then its data- and property- forms.
func fillProps(root *html.Node, record frontmatter.Record) {
	for _, prop := range dom.FindAll(root, templates.TagProp) {
		name := dom.GetAttr(prop, "name")
		value, found := "", false
		for _, key := range []string{name, "data-" + name, "property-" + name} {
			if _, ok := record[key]; ok && name != "" {
				value, found = record.String(key), true
				break
			}
		}
		if !found {
			dom.Remove(prop)
			continue
		}
		dom.ReplaceWith(prop, dom.NewText(value))
	}
}

func fillTitle(root *html.Node, title string) {
	if title == "" {
		return
	}
	for _, el := range dom.FindAll(root, "title") {
		if strings.TrimSpace(dom.Text(el)) != "" {
			continue
		}
		dom.TakeChildren(el)
		el.AppendChild(dom.NewText(title))
	}
}
