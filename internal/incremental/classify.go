package incremental

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/sitesmith/internal/site"
	"git.home.luguber.info/inful/sitesmith/internal/templates"
)

// ChangeKind classifies a changed source file.
type ChangeKind string

const (
	ChangeProperties  ChangeKind = "site_properties"
	ChangeColorScheme ChangeKind = "color_scheme"
	ChangePage        ChangeKind = "page"
	ChangeArticle     ChangeKind = "article"
	ChangeLayout      ChangeKind = "layout"
	ChangeWrapper     ChangeKind = "wrapper"
	ChangeComponent   ChangeKind = "component"
	ChangeUnknown     ChangeKind = "unknown"
)

// Change is a classified file change.
type Change struct {
	Kind ChangeKind
	// Path is the template path to load, relative to the kind directory or,
	// for wrappers, to the source root. Empty for non-template changes.
	Path string
	// ID is the template identifier, empty for non-template changes.
	ID string
}

// Classify maps a changed path to its change kind. p may be relative to the
// project root ("src/pages/index.html") and use OS separators; root is the
// source directory inside that project.
func Classify(root, p string) Change {
	p, ok := sourceRel(root, p)
	if !ok {
		return Change{Kind: ChangeUnknown}
	}

	switch p {
	case site.PropertiesFile:
		return Change{Kind: ChangeProperties}
	case site.ColorSchemeFile:
		return Change{Kind: ChangeColorScheme}
	}

	kind, tp, ok := site.KindOf(p)
	if !ok {
		return Change{Kind: ChangeUnknown}
	}
	return Change{Kind: changeKinds[kind], Path: tp, ID: templates.ID(kind, tp)}
}

// sourceRel returns p relative to the source root, in slash form. The root
// itself maps to ".".
func sourceRel(root, p string) (string, bool) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	root = path.Clean(strings.ReplaceAll(root, "\\", "/"))
	if root == "." {
		return p, true
	}
	if p == root {
		return ".", true
	}
	return strings.CutPrefix(p, root+"/")
}

var changeKinds = map[templates.Kind]ChangeKind{
	templates.KindPage:      ChangePage,
	templates.KindArticle:   ChangeArticle,
	templates.KindLayout:    ChangeLayout,
	templates.KindWrapper:   ChangeWrapper,
	templates.KindComponent: ChangeComponent,
}

func (c Change) templateKind() templates.Kind {
	for k, ck := range changeKinds {
		if ck == c.Kind {
			return k
		}
	}
	return templates.KindPage
}
