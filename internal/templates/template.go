// Package templates is the template store: it reads one source file of a
// known kind, splits and parses its front matter, parses its body into a
// document tree and pulls out the insert definitions layouts and wrappers
// fill their slots with.
package templates

import (
	"path"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitesmith/internal/frontmatter"
	"git.home.luguber.info/inful/sitesmith/internal/util/sets"
)

// Reserved element names.
const (
	TagInsert    = "tg-insert"
	TagSlot      = "tg-slot"
	TagContent   = "tg-content"
	TagComponent = "tg-component"
	TagLink      = "tg-link"
	TagLinks     = "tg-links"
	TagArticle   = "tg-article"
	TagProp      = "tg-prop"
)

// WrapperFile is the file name that marks a directory wrapper.
const WrapperFile = "_wrapper.html"

// Kind is the role a template plays in a site.
type Kind int

const (
	KindPage Kind = iota
	KindArticle
	KindLayout
	KindWrapper
	KindComponent
)

func (k Kind) String() string {
	switch k {
	case KindPage:
		return "page"
	case KindArticle:
		return "article"
	case KindLayout:
		return "layout"
	case KindWrapper:
		return "wrapper"
	case KindComponent:
		return "component"
	default:
		return "unknown"
	}
}

// Dir is the kind directory below the source root. Wrappers live inside the
// page and article trees and have no directory of their own.
func (k Kind) Dir() string {
	switch k {
	case KindPage:
		return "pages"
	case KindArticle:
		return "articles"
	case KindLayout:
		return "layouts"
	case KindComponent:
		return "components"
	default:
		return ""
	}
}

// Renderable reports whether templates of this kind produce output files.
func (k Kind) Renderable() bool {
	return k == KindPage || k == KindArticle
}

// Template is a single loaded source file.
//
// Local holds the front matter as parsed from the file. FrontMatter,
// Dependencies and Unresolved are written by the last successful composition.
type Template struct {
	// Path is relative to the kind directory ("blog/a.html"); wrapper paths
	// are relative to the source root ("pages/blog/_wrapper.html").
	Path string
	Kind Kind

	Local       frontmatter.Record
	FrontMatter frontmatter.Record

	Document *html.Node
	Inserts  map[string]*html.Node

	Dependencies sets.Set[string]
	Unresolved   sets.Set[string]

	// FrontMatterErr is set when the front matter could not be parsed and
	// Local was replaced by an empty record.
	FrontMatterErr error
}

// ID returns the dependency identifier of a template of kind k at path p.
func ID(k Kind, p string) string {
	p = trimExt(p)
	if k.Dir() == "" {
		return p
	}
	return k.Dir() + "/" + p
}

// ID is the template's dependency identifier, e.g. "components/nav".
func (t *Template) ID() string {
	return ID(t.Kind, t.Path)
}

// SourcePath is the template's path relative to the source root.
func (t *Template) SourcePath() string {
	if t.Kind.Dir() == "" {
		return t.Path
	}
	return t.Kind.Dir() + "/" + t.Path
}

// Dir is the source-root relative directory holding the template.
func (t *Template) Dir() string {
	return path.Dir(t.SourcePath())
}

// Name is the file name without directory or extension.
func (t *Template) Name() string {
	return trimExt(path.Base(t.Path))
}

// OutputPath returns where the rendered template is written, relative to the
// output directory, or "" for kinds that are never rendered on their own.
func (t *Template) OutputPath() string {
	switch t.Kind {
	case KindPage:
		return trimExt(t.Path) + ".html"
	case KindArticle:
		return "articles/" + trimExt(t.Path) + ".html"
	default:
		return ""
	}
}

// ArticleURL is the site-absolute URL of the article with the given name.
func ArticleURL(name string) string {
	return "/articles/" + trimExt(name) + ".html"
}

// IsWrapperPath reports whether a source-root relative path names a wrapper.
func IsWrapperPath(p string) bool {
	return path.Base(p) == WrapperFile
}

func trimExt(p string) string {
	return strings.TrimSuffix(p, path.Ext(p))
}
