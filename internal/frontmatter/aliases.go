package frontmatter

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/sitesmith/internal/dom"
)

// ExpandClassAliases walks root and, for every element carrying an attribute
// whose name matches a class alias in record, appends the aliased classes to
// the element's class attribute and drops the alias attribute.
//
// Expansion removes the attributes it consumes, so running it twice is the
// same as running it once.
func ExpandClassAliases(record Record, root *html.Node) {
	aliases := record.ClassAliases()
	if len(aliases) == 0 || root == nil {
		return
	}

	dom.Walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode {
			return true
		}
		var classes []string
		kept := n.Attr[:0]
		for _, a := range n.Attr {
			if a.Namespace == "" && a.Key != "class" {
				if cls, ok := aliases[strings.ToLower(a.Key)]; ok {
					classes = append(classes, cls)
					continue
				}
			}
			kept = append(kept, a)
		}
		n.Attr = kept
		if len(classes) > 0 {
			appendClasses(n, classes)
		}
		return true
	})
}

func appendClasses(n *html.Node, classes []string) {
	existing := strings.TrimSpace(dom.GetAttr(n, "class"))
	joined := strings.Join(classes, " ")
	if existing != "" {
		joined = existing + " " + joined
	}
	dom.SetAttr(n, "class", joined)
}
