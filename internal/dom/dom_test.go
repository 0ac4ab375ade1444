package dom

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/net/html"
)

func mustParse(t *testing.T, s string) *html.Node {
	t.Helper()
	root, err := Parse([]byte(s))
	require.NoError(t, err)
	return root
}

func TestParse_FragmentKeepsTopLevelCustomElements(t *testing.T) {
	root := mustParse(t, `<tg-insert name="a">A</tg-insert><p>body</p>`)

	require.Equal(t, html.DocumentNode, root.Type)
	require.True(t, IsElement(root.FirstChild, "tg-insert"))
	require.True(t, IsElement(root.LastChild, "p"))
	require.Equal(t, `<tg-insert name="a">A</tg-insert><p>body</p>`, RenderString(root))
}

func TestParse_FullDocument(t *testing.T) {
	root := mustParse(t, `<!DOCTYPE html><html><head><title>x</title></head><body><tg-content></tg-content></body></html>`)

	require.NotNil(t, FindFirst(root, "head"))
	require.NotNil(t, FindFirst(root, "tg-content"))
	require.Contains(t, RenderString(root), "<!DOCTYPE html>")
}

func TestParse_HeadSlotStaysInHead(t *testing.T) {
	src := `<!DOCTYPE html><html><head><tg-slot name="head"></tg-slot><title></title></head>` +
		`<body><tg-content></tg-content></body></html>`
	root := mustParse(t, src)

	head := FindFirst(root, "head")
	require.NotNil(t, head)
	require.True(t, IsElement(head.FirstChild, "tg-slot"))
	require.True(t, IsElement(head.LastChild, "title"))
	require.Equal(t, src, RenderString(root))
}

func TestParse_TableRowFragmentKeepsCells(t *testing.T) {
	root := mustParse(t, `<tr><td>cell</td></tr>`)

	require.True(t, IsElement(root.FirstChild, "tr"))
	require.Equal(t, `<tr><td>cell</td></tr>`, RenderString(root))
}

func TestParse_VoidAndSelfClosingElements(t *testing.T) {
	root := mustParse(t, `<p>a<br>b</p><img src="x.png"><tg-slot name="s"/><span>c</span>`)

	require.Equal(t, `<p>a<br/>b</p><img src="x.png"/><tg-slot name="s"></tg-slot><span>c</span>`, RenderString(root))
	require.Nil(t, FindFirst(root, "tg-slot").FirstChild)
}

func TestParse_ImpliedEndTags(t *testing.T) {
	root := mustParse(t, `<ul><li>one<li>two</ul><p>a<p>b</span>`)

	require.Equal(t, `<ul><li>one</li><li>two</li></ul><p>a</p><p>b</p>`, RenderString(root))
}

func TestParse_RawTextAndComments(t *testing.T) {
	root := mustParse(t, `<!-- note --><script>if (a < b) {}</script><title>A &amp; B</title>`)

	require.Equal(t, html.CommentNode, root.FirstChild.Type)
	require.Equal(t, "if (a < b) {}", Text(FindFirst(root, "script")))
	require.Equal(t, "A & B", Text(FindFirst(root, "title")))
	require.Equal(t, `<!-- note --><script>if (a < b) {}</script><title>A &amp; B</title>`, RenderString(root))
}

func TestContentRoot(t *testing.T) {
	full := mustParse(t, `<!DOCTYPE html><html><head></head><body><p>x</p></body></html>`)
	require.True(t, IsElement(ContentRoot(full), "body"))

	frag := mustParse(t, `<p>x</p>`)
	require.Same(t, frag, ContentRoot(frag))
}

func TestClone_IsDeepAndDetached(t *testing.T) {
	root := mustParse(t, `<div class="a"><span>x</span></div>`)
	div := root.FirstChild

	c := Clone(div)
	SetAttr(c, "class", "b")
	c.FirstChild.FirstChild.Data = "y"

	require.Nil(t, c.Parent)
	require.Equal(t, `<div class="a"><span>x</span></div>`, RenderString(root))
	require.Equal(t, `<div class="b"><span>y</span></div>`, RenderString(c))
}

func TestAttrHelpers(t *testing.T) {
	n := NewElement("div")
	SetAttr(n, "class", "a")
	SetAttr(n, "class", "b")
	SetAttr(n, "id", "x")

	v, ok := Attr(n, "class")
	require.True(t, ok)
	require.Equal(t, "b", v)

	RemoveAttr(n, "class")
	_, ok = Attr(n, "class")
	require.False(t, ok)
	require.Equal(t, "x", GetAttr(n, "id"))
	RemoveAttr(n, "missing")
	require.Len(t, n.Attr, 1)
}

func TestFindAllAndReplaceWith(t *testing.T) {
	root := mustParse(t, `<div><tg-component name="a"></tg-component><p><tg-component name="b"></tg-component></p></div>`)

	refs := FindAll(root, "tg-component")
	require.Len(t, refs, 2)
	require.Equal(t, "a", GetAttr(refs[0], "name"))

	ReplaceWith(refs[0], NewText("A1"), NewText("A2"))
	ReplaceWith(refs[1], NewElement("em"))

	require.Equal(t, `<div>A1A2<p><em></em></p></div>`, RenderString(root))
	require.Empty(t, FindAll(root, "tg-component"))
}

func TestUnwrapAndText(t *testing.T) {
	root := mustParse(t, `<p>a<tg-slot name="x">b<i>c</i></tg-slot>d</p>`)

	Unwrap(FindFirst(root, "tg-slot"))

	require.Equal(t, `<p>ab<i>c</i>d</p>`, RenderString(root))
	require.Equal(t, "abcd", Text(root))
}

func TestFragment_DetachesNodes(t *testing.T) {
	root := mustParse(t, `<p>one</p><p>two</p>`)
	first := root.FirstChild

	frag := Fragment(first)

	require.Equal(t, `<p>two</p>`, RenderString(root))
	require.Equal(t, `<p>one</p>`, RenderString(frag))
}
