package templates

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitesmith/internal/dom"
	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/frontmatter"
	"git.home.luguber.info/inful/sitesmith/internal/logfields"
	"git.home.luguber.info/inful/sitesmith/internal/util/sets"
)

// Loader reads templates from a source tree.
type Loader struct {
	fsys   fs.FS
	root   string
	md     goldmark.Markdown
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for front-matter diagnostics.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewLoader returns a loader reading below root inside fsys.
func NewLoader(fsys fs.FS, root string, opts ...LoaderOption) *Loader {
	l := &Loader{
		fsys: fsys,
		root: path.Clean(root),
		// Raw HTML must survive so reserved tags keep working inside Markdown.
		md:     goldmark.New(goldmark.WithRendererOptions(goldmarkhtml.WithUnsafe())),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// FS returns the file system the loader reads from.
func (l *Loader) FS() fs.FS { return l.fsys }

// Root returns the source root inside the file system.
func (l *Loader) Root() string { return l.root }

// Load reads the template of kind k at p, relative to the kind directory (or
// to the source root for wrappers).
//
// A read failure is returned as a filesystem error that still matches
// fs.ErrNotExist when the file is gone. Malformed front matter is not an
// error: the template is returned with an empty record and FrontMatterErr set.
func (l *Loader) Load(p string, k Kind) (*Template, error) {
	t := &Template{
		Path:         path.Clean(p),
		Kind:         k,
		Inserts:      map[string]*html.Node{},
		Dependencies: sets.New[string](),
		Unresolved:   sets.New[string](),
	}

	full := path.Join(l.root, t.SourcePath())
	raw, err := fs.ReadFile(l.fsys, full)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read template").
			WithContext("path", full).
			WithContext("kind", k.String()).
			Build()
	}

	raw = bytes.ReplaceAll(raw, []byte("\r"), nil)
	src, splitErr := frontmatter.Split(raw)
	body := src.Body

	local := frontmatter.Record{}
	switch {
	case splitErr != nil:
		t.FrontMatterErr = l.frontMatterError(splitErr, full)
	case src.HasHeader:
		parsed, perr := frontmatter.ParseYAML(src.Header)
		if perr != nil {
			t.FrontMatterErr = l.frontMatterError(perr, full)
		} else {
			local = parsed
		}
	}
	frontmatter.Normalize(local)
	t.Local = local
	t.FrontMatter = frontmatter.Record{}

	if k == KindArticle && strings.EqualFold(path.Ext(p), ".md") {
		var buf bytes.Buffer
		if err := l.md.Convert(body, &buf); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "convert markdown").
				WithContext("path", full).
				Build()
		}
		body = buf.Bytes()
	}

	doc, err := dom.Parse(body)
	if err != nil {
		return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "parse template body").
			WithContext("path", full).
			Build()
	}
	frontmatter.ExpandClassAliases(local, doc)
	t.Document = doc
	t.Inserts = ExtractInserts(doc)

	return t, nil
}

func (l *Loader) frontMatterError(cause error, full string) error {
	err := foundationerrors.WrapError(cause, foundationerrors.CategoryFrontMatter, "malformed front matter").
		Warning().
		WithContext("path", full).
		Build()
	l.logger.Warn("Malformed front matter, using empty record",
		logfields.Path(full),
		logfields.Error(cause))
	return err
}

// ExtractInserts removes the top-level tg-insert elements of root and returns
// their children keyed by name. Top level means a direct child of root, or of
// the <body> when root is a full document; inserts nested anywhere deeper are
// ordinary markup. When two inserts share a name the later one wins.
func ExtractInserts(root *html.Node) map[string]*html.Node {
	inserts := map[string]*html.Node{}
	var found []*html.Node
	for _, parent := range insertParents(root) {
		for c := parent.FirstChild; c != nil; c = c.NextSibling {
			if dom.IsElement(c, TagInsert) {
				found = append(found, c)
			}
		}
	}
	for _, n := range found {
		name := dom.GetAttr(n, "name")
		dom.Remove(n)
		if name == "" {
			continue
		}
		inserts[name] = dom.Fragment(dom.TakeChildren(n)...)
	}
	return inserts
}

func insertParents(root *html.Node) []*html.Node {
	if body := dom.ContentRoot(root); body != root {
		return []*html.Node{root, body}
	}
	return []*html.Node{root}
}

// IsNotExist reports whether err means the template file does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
