// Package site holds the in-memory model of a whole site: every loaded
// template indexed by identifier, plus the site-wide properties every
// front-matter chain starts from.
//
// A Site is mutated in place by single-path reloads and is not safe for
// concurrent use; callers process one change at a time.
package site

import (
	"cmp"
	"errors"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
	"git.home.luguber.info/inful/sitesmith/internal/frontmatter"
	"git.home.luguber.info/inful/sitesmith/internal/logfields"
	"git.home.luguber.info/inful/sitesmith/internal/templates"
)

// Well-known files at the top of the source tree.
const (
	PropertiesFile  = "site.yml"
	ColorSchemeFile = "color_scheme.yml"
)

var loadOrder = []templates.Kind{
	templates.KindLayout,
	templates.KindComponent,
	templates.KindArticle,
	templates.KindPage,
}

// Site is the aggregate of all templates of a source tree.
type Site struct {
	Properties frontmatter.Record
	// PropertiesErr is set when site.yml exists but could not be parsed.
	PropertiesErr error

	loader *templates.Loader
	logger *slog.Logger

	byKind map[templates.Kind][]*templates.Template
	index  map[string]*templates.Template
}

// Option configures a Site.
type Option func(*Site)

// WithLogger sets the logger for the site and its template loader.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Site) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty site reading from root inside fsys.
func New(fsys fs.FS, root string, opts ...Option) *Site {
	s := &Site{
		Properties: frontmatter.Record{},
		logger:     slog.Default(),
		byKind:     map[templates.Kind][]*templates.Template{},
		index:      map[string]*templates.Template{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.loader = templates.NewLoader(fsys, root, templates.WithLogger(s.logger))
	return s
}

// Load reads site.yml and every template below root. Missing kind
// directories are treated as empty.
func Load(fsys fs.FS, root string, opts ...Option) (*Site, error) {
	s := New(fsys, root, opts...)
	if err := s.ReloadProperties(); err != nil {
		return nil, err
	}

	for _, k := range loadOrder {
		dir := path.Join(s.loader.Root(), k.Dir())
		err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == dir && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipDir
				}
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel := relTo(s.loader.Root(), p)
			kind, tp, ok := KindOf(rel)
			if !ok {
				return nil
			}
			if _, err := s.Reload(kind, tp); err != nil {
				return err
			}
			return nil
		})
		if err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "load site").
				WithContext("dir", dir).
				Build()
		}
	}

	s.logger.Debug("Site loaded",
		slog.Int("pages", len(s.byKind[templates.KindPage])),
		slog.Int("articles", len(s.byKind[templates.KindArticle])),
		slog.Int("layouts", len(s.byKind[templates.KindLayout])),
		slog.Int("wrappers", len(s.byKind[templates.KindWrapper])),
		slog.Int("components", len(s.byKind[templates.KindComponent])))
	return s, nil
}

// KindOf maps a source-root relative path to the kind and template path it
// would be loaded as. ok is false for files that are not templates.
func KindOf(rel string) (kind templates.Kind, p string, ok bool) {
	rel = path.Clean(strings.ReplaceAll(rel, "\\", "/"))
	dir, rest, found := strings.Cut(rel, "/")
	if !found || rest == "" || strings.HasPrefix(path.Base(rest), ".") {
		return 0, "", false
	}
	ext := strings.ToLower(path.Ext(rest))

	switch dir {
	case templates.KindPage.Dir(), templates.KindArticle.Dir():
		if templates.IsWrapperPath(rest) {
			return templates.KindWrapper, rel, true
		}
		if ext == ".html" {
			if dir == templates.KindPage.Dir() {
				return templates.KindPage, rest, true
			}
			return templates.KindArticle, rest, true
		}
		if ext == ".md" && dir == templates.KindArticle.Dir() {
			return templates.KindArticle, rest, true
		}
	case templates.KindLayout.Dir():
		if ext == ".html" {
			return templates.KindLayout, rest, true
		}
	case templates.KindComponent.Dir():
		if ext == ".html" {
			return templates.KindComponent, rest, true
		}
	}
	return 0, "", false
}

// Loader returns the template loader bound to the site's source tree.
func (s *Site) Loader() *templates.Loader { return s.loader }

// ReloadProperties re-reads site.yml. A missing file yields empty properties;
// malformed YAML is logged and also yields empty properties.
func (s *Site) ReloadProperties() error {
	full := path.Join(s.loader.Root(), PropertiesFile)
	raw, err := fs.ReadFile(s.loader.FS(), full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.Properties = frontmatter.Record{}
			s.PropertiesErr = nil
			return nil
		}
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "read site properties").
			WithContext("path", full).
			Build()
	}

	props, err := frontmatter.ParseYAML(raw)
	if err != nil {
		s.logger.Warn("Malformed site properties, using empty record", logfields.Path(full), logfields.Error(err))
		s.Properties = frontmatter.Record{}
		s.PropertiesErr = foundationerrors.WrapError(err, foundationerrors.CategoryFrontMatter, "malformed site properties").
			Warning().
			WithContext("path", full).
			Build()
		return nil
	}
	frontmatter.Normalize(props)
	s.Properties = props
	s.PropertiesErr = nil
	return nil
}

// Reload reads the template from disk and replaces any previous version.
// On error the previous version stays in place.
func (s *Site) Reload(k templates.Kind, p string) (*templates.Template, error) {
	t, err := s.loader.Load(p, k)
	if err != nil {
		return nil, err
	}
	s.Put(t)
	return t, nil
}

// Put inserts t, replacing a template with the same identifier.
func (s *Site) Put(t *templates.Template) {
	id := t.ID()
	list := s.byKind[t.Kind]
	if _, exists := s.index[id]; exists {
		list = slices.DeleteFunc(list, func(o *templates.Template) bool { return o.ID() == id })
	}
	i, _ := slices.BinarySearchFunc(list, t.Path, func(o *templates.Template, p string) int {
		return cmp.Compare(o.Path, p)
	})
	s.byKind[t.Kind] = slices.Insert(list, i, t)
	s.index[id] = t
}

// Remove drops the template with the given identifier.
func (s *Site) Remove(id string) (*templates.Template, bool) {
	t, ok := s.index[id]
	if !ok {
		return nil, false
	}
	delete(s.index, id)
	s.byKind[t.Kind] = slices.DeleteFunc(s.byKind[t.Kind], func(o *templates.Template) bool { return o == t })
	return t, true
}

// Get looks a template up by identifier.
func (s *Site) Get(id string) (*templates.Template, bool) {
	t, ok := s.index[id]
	return t, ok
}

// Templates returns the templates of kind k ordered by path. The slice is
// shared; callers must not modify it.
func (s *Site) Templates(k templates.Kind) []*templates.Template {
	return s.byKind[k]
}

func (s *Site) Pages() []*templates.Template      { return s.byKind[templates.KindPage] }
func (s *Site) Articles() []*templates.Template   { return s.byKind[templates.KindArticle] }
func (s *Site) Layouts() []*templates.Template    { return s.byKind[templates.KindLayout] }
func (s *Site) Wrappers() []*templates.Template   { return s.byKind[templates.KindWrapper] }
func (s *Site) Components() []*templates.Template { return s.byKind[templates.KindComponent] }

// Renderable returns every article followed by every page.
func (s *Site) Renderable() []*templates.Template {
	out := make([]*templates.Template, 0, len(s.Articles())+len(s.Pages()))
	out = append(out, s.Articles()...)
	return append(out, s.Pages()...)
}

// Layout looks up a layout by name ("home" or "home.html").
func (s *Site) Layout(name string) (*templates.Template, bool) {
	return s.Get(templates.ID(templates.KindLayout, name))
}

// Component looks up a component by name, which may include subdirectories.
func (s *Site) Component(name string) (*templates.Template, bool) {
	return s.Get(templates.ID(templates.KindComponent, name))
}

// Article looks up an article by its path without extension.
func (s *Site) Article(name string) (*templates.Template, bool) {
	return s.Get(templates.ID(templates.KindArticle, name))
}

// ArticlesMatching returns the articles whose extension-less path matches the
// glob pattern, in path order. A malformed pattern matches nothing.
func (s *Site) ArticlesMatching(pattern string) []*templates.Template {
	pattern = strings.TrimSuffix(pattern, path.Ext(pattern))
	var out []*templates.Template
	for _, a := range s.Articles() {
		name := strings.TrimSuffix(a.Path, path.Ext(a.Path))
		if ok, err := path.Match(pattern, name); err == nil && ok {
			out = append(out, a)
		}
	}
	return out
}

// WrapperFor returns the nearest wrapper in the template's directory or one
// of its ancestors, stopping at the kind directory.
func (s *Site) WrapperFor(t *templates.Template) (*templates.Template, bool) {
	if !t.Kind.Renderable() {
		return nil, false
	}
	top := t.Kind.Dir()
	for dir := t.Dir(); ; dir = path.Dir(dir) {
		if w, ok := s.Get(templates.ID(templates.KindWrapper, path.Join(dir, templates.WrapperFile))); ok {
			return w, true
		}
		if dir == top || dir == "." || dir == "/" {
			return nil, false
		}
	}
}

func relTo(root, p string) string {
	if root == "." {
		return p
	}
	return strings.TrimPrefix(p, root+"/")
}
