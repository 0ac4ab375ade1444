package compose

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitesmith/internal/dom"
	"git.home.luguber.info/inful/sitesmith/internal/templates"
)

// resolveLinks expands tg-links lists and turns tg-link references into
// anchors pointing at the article's output URL. A tg-links pattern is
// recorded as a dependency glob so new matching articles are picked up.
func (p *pass) resolveLinks(root *html.Node) {
	for _, list := range dom.FindAll(root, templates.TagLinks) {
		if list.Parent == nil {
			continue
		}
		pattern := dom.GetAttr(list, "pattern")
		if pattern == "" {
			continue
		}
		p.deps.Add(templates.ID(templates.KindArticle, pattern))

		var items []*html.Node
		for _, art := range p.engine.site.ArticlesMatching(pattern) {
			if art.ID() == p.leaf.ID() {
				continue
			}
			frag := dom.Fragment(dom.CloneChildren(list)...)
			name := strings.TrimPrefix(art.ID(), templates.KindArticle.Dir()+"/")
			for _, link := range dom.FindAll(frag, templates.TagLink) {
				if dom.GetAttr(link, "name") == "" {
					dom.SetAttr(link, "name", name)
				}
			}
			items = append(items, dom.TakeChildren(frag)...)
		}
		dom.ReplaceWith(list, items...)
	}

	for _, link := range dom.FindAll(root, templates.TagLink) {
		p.resolveLink(link)
	}
}

func (p *pass) resolveLink(link *html.Node) {
	name := dom.GetAttr(link, "name")
	if name == "" {
		return
	}
	id := templates.ID(templates.KindArticle, name)
	art, ok := p.engine.site.Article(name)
	if !ok {
		p.missing(id, "article")
		return
	}
	if art.ID() != p.leaf.ID() {
		p.deps.Add(id)
	}

	a := dom.NewElement("a")
	for _, attr := range link.Attr {
		if attr.Namespace == "" && attr.Key == "name" {
			continue
		}
		a.Attr = append(a.Attr, attr)
	}
	dom.SetAttr(a, "href", templates.ArticleURL(name))

	children := dom.TakeChildren(link)
	if isBlank(children) {
		children = []*html.Node{dom.NewText(articleTitle(art))}
	}
	for _, c := range children {
		a.AppendChild(c)
	}
	dom.ReplaceWith(link, a)
}

// isBlank reports whether nodes hold nothing but whitespace and comments.
func isBlank(nodes []*html.Node) bool {
	for _, n := range nodes {
		switch n.Type {
		case html.ElementNode:
			return false
		case html.TextNode:
			if strings.TrimSpace(n.Data) != "" {
				return false
			}
		}
	}
	return true
}

// articleTitle prefers the title resolved by the article's last composition.
func articleTitle(art *templates.Template) string {
	if t := art.FrontMatter.String("title"); t != "" {
		return t
	}
	if t := art.Local.String("title"); t != "" {
		return t
	}
	return DefaultTitle(art.Name())
}
