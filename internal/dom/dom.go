// Package dom adapts golang.org/x/net/html into the mutable document tree used
// by templates: parsing, rendering, deep cloning, query-by-tag and in-place
// replacement.
//
// Every parsed template is rooted at an html.DocumentNode. The tree is built
// straight from the tokenizer without the HTML5 insertion modes, so markup
// stays where the author wrote it: slots inside <head> remain in the head and
// table rows survive outside a <table>.
package dom

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// voidElements never take children; their start tag is also their end.
var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "keygen": true, "link": true,
	"meta": true, "param": true, "source": true, "track": true, "wbr": true,
}

var closesParagraph = map[string]bool{"p": true}

// impliedCloses lists, per start tag, the open elements that tag closes
// when it appears directly inside them.
var impliedCloses = map[string]map[string]bool{
	"li":       {"li": true},
	"dt":       {"dt": true, "dd": true},
	"dd":       {"dt": true, "dd": true},
	"option":   {"option": true},
	"optgroup": {"optgroup": true, "option": true},
	"tr":       {"tr": true, "td": true, "th": true},
	"td":       {"td": true, "th": true},
	"th":       {"td": true, "th": true},
	"thead":    {"thead": true, "tbody": true},
	"tbody":    {"thead": true, "tbody": true},
	"tfoot":    {"thead": true, "tbody": true},
	"rt":       {"rt": true, "rp": true},
	"rp":       {"rt": true, "rp": true},

	"address": closesParagraph, "article": closesParagraph, "aside": closesParagraph,
	"blockquote": closesParagraph, "details": closesParagraph, "div": closesParagraph,
	"dl": closesParagraph, "fieldset": closesParagraph, "figcaption": closesParagraph,
	"figure": closesParagraph, "footer": closesParagraph, "form": closesParagraph,
	"h1": closesParagraph, "h2": closesParagraph, "h3": closesParagraph,
	"h4": closesParagraph, "h5": closesParagraph, "h6": closesParagraph,
	"header": closesParagraph, "hr": closesParagraph, "main": closesParagraph,
	"nav": closesParagraph, "ol": closesParagraph, "p": closesParagraph,
	"pre": closesParagraph, "section": closesParagraph, "table": closesParagraph,
	"ul": closesParagraph,
}

// Parse parses an HTML body into a document tree. Elements are nested as
// written; the only repairs are implied end tags (a new <li> closes the open
// one) and dropping end tags that close nothing.
func Parse(body []byte) (*html.Node, error) {
	root := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{root}
	top := func() *html.Node { return stack[len(stack)-1] }

	z := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if errors.Is(z.Err(), io.EOF) {
				return root, nil
			}
			return nil, z.Err()
		}
		tok := z.Token()
		switch tt {
		case html.StartTagToken, html.SelfClosingTagToken:
			if closes := impliedCloses[tok.Data]; closes != nil {
				for len(stack) > 1 && closes[top().Data] {
					stack = stack[:len(stack)-1]
				}
			}
			n := &html.Node{Type: html.ElementNode, Data: tok.Data, DataAtom: tok.DataAtom, Attr: tok.Attr}
			top().AppendChild(n)
			if tt == html.StartTagToken && !voidElements[tok.Data] {
				stack = append(stack, n)
			}
		case html.EndTagToken:
			for i := len(stack) - 1; i > 0; i-- {
				if stack[i].Data == tok.Data {
					stack = stack[:i]
					break
				}
			}
		case html.TextToken:
			top().AppendChild(&html.Node{Type: html.TextNode, Data: tok.Data})
		case html.CommentToken:
			top().AppendChild(&html.Node{Type: html.CommentNode, Data: tok.Data})
		case html.DoctypeToken:
			top().AppendChild(&html.Node{Type: html.DoctypeNode, Data: tok.Data})
		}
	}
}

// ContentRoot returns the node whose children are the visible content of doc:
// the <body> of a full document, the <html> element when it has no body, or
// doc itself for fragments.
func ContentRoot(doc *html.Node) *html.Node {
	htmlEl := childElement(doc, atom.Html)
	if htmlEl == nil {
		return doc
	}
	if body := childElement(htmlEl, atom.Body); body != nil {
		return body
	}
	return htmlEl
}

func childElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// Render serializes n. Document and fragment roots render their children.
func Render(n *html.Node) ([]byte, error) {
	var buf bytes.Buffer
	if n.Type == html.DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := html.Render(&buf, c); err != nil {
				return nil, err
			}
		}
		return buf.Bytes(), nil
	}
	if err := html.Render(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderString is Render for callers that only need text, e.g. tests and logs.
func RenderString(n *html.Node) string {
	b, err := Render(n)
	if err != nil {
		return ""
	}
	return string(b)
}

// Clone returns a detached deep copy of n.
func Clone(n *html.Node) *html.Node {
	out := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		out.Attr = make([]html.Attribute, len(n.Attr))
		copy(out.Attr, n.Attr)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out.AppendChild(Clone(c))
	}
	return out
}

// CloneChildren returns detached deep copies of n's children.
func CloneChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, Clone(c))
	}
	return out
}

// Fragment returns a new document root holding nodes, detaching them from any
// previous parent.
func Fragment(nodes ...*html.Node) *html.Node {
	root := &html.Node{Type: html.DocumentNode}
	for _, n := range nodes {
		detach(n)
		root.AppendChild(n)
	}
	return root
}

// IsElement reports whether n is an element with the given tag name.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// GetAttr returns the attribute value, or "" when missing.
func GetAttr(n *html.Node, key string) string {
	v, _ := Attr(n, key)
	return v
}

// SetAttr sets or replaces an attribute on n.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute from n. It is a no-op when missing.
func RemoveAttr(n *html.Node, key string) {
	kept := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		kept = append(kept, a)
	}
	n.Attr = kept
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the node's subtree.
func Walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// FindAll returns every element below root (root included) with the given tag,
// in document order.
func FindAll(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if IsElement(n, tag) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// FindFirst returns the first element with the given tag, or nil.
func FindFirst(root *html.Node, tag string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if IsElement(n, tag) {
			found = n
			return false
		}
		return true
	})
	return found
}

// ReplaceWith puts nodes where old is and detaches old.
func ReplaceWith(old *html.Node, nodes ...*html.Node) {
	parent := old.Parent
	if parent == nil {
		return
	}
	for _, n := range nodes {
		detach(n)
		parent.InsertBefore(n, old)
	}
	parent.RemoveChild(old)
}

// Unwrap replaces n with its own children.
func Unwrap(n *html.Node) {
	ReplaceWith(n, TakeChildren(n)...)
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	detach(n)
}

// TakeChildren detaches and returns n's children.
func TakeChildren(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		out = append(out, c)
		c = next
	}
	return out
}

// Text returns the concatenated text content of n.
func Text(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(Text(c))
	}
	return b.String()
}

// NewElement creates a detached element.
func NewElement(tag string, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag)), Attr: attrs}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}
