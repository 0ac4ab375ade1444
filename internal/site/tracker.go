package site

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/sitesmith/internal/templates"
)

// AffectedBy returns every page and article whose last composition depended
// on id, articles first. A template is affected when its dependency set holds
// id, when one of its dependency globs matches id, or when it referenced id
// while id did not exist yet.
//
// The answer is computed from current template state on every call.
func (s *Site) AffectedBy(id string) []*templates.Template {
	var out []*templates.Template
	for _, t := range s.Renderable() {
		if t.ID() == id {
			continue
		}
		if DependsOn(t, id) {
			out = append(out, t)
		}
	}
	return out
}

// DependsOn reports whether t's recorded dependencies cover id.
func DependsOn(t *templates.Template, id string) bool {
	if t.Dependencies.Has(id) || t.Unresolved.Has(id) {
		return true
	}
	for dep := range t.Dependencies {
		if !isPattern(dep) {
			continue
		}
		if ok, err := path.Match(dep, id); err == nil && ok {
			return true
		}
	}
	return false
}

// Under returns every page and article whose source lives in dir or below it.
func (s *Site) Under(dir string) []*templates.Template {
	dir = strings.TrimSuffix(dir, "/")
	var out []*templates.Template
	for _, t := range s.Renderable() {
		if d := t.Dir(); d == dir || strings.HasPrefix(d, dir+"/") {
			out = append(out, t)
		}
	}
	return out
}

// SourcesUnder returns every stored template of any kind whose source lives
// in dir or below it. Pages and articles come first, then wrappers, layouts
// and components.
func (s *Site) SourcesUnder(dir string) []*templates.Template {
	dir = strings.TrimSuffix(dir, "/")
	var out []*templates.Template
	for _, k := range []templates.Kind{
		templates.KindPage, templates.KindArticle, templates.KindWrapper,
		templates.KindLayout, templates.KindComponent,
	} {
		for _, t := range s.byKind[k] {
			if d := t.Dir(); d == dir || strings.HasPrefix(d, dir+"/") {
				out = append(out, t)
			}
		}
	}
	return out
}

func isPattern(id string) bool {
	return strings.ContainsAny(id, "*?[")
}
