package templates

import (
	"bytes"
	"io/fs"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitesmith/internal/dom"
	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
)

func TestLoad_SplitsFrontMatterAndBody(t *testing.T) {
	fsys := fstest.MapFS{
		"src/pages/index.html": {Data: []byte("---\r\nlayout: home\r\ntitle: Home\r\n---\r\n<p>Hello</p>\r\n")},
	}

	tmpl, err := NewLoader(fsys, "src").Load("index.html", KindPage)
	require.NoError(t, err)
	require.NoError(t, tmpl.FrontMatterErr)
	require.Equal(t, "home", tmpl.Local.String("layout"))
	require.Equal(t, "Home", tmpl.Local.String("title"))
	require.Equal(t, "<p>Hello</p>\n", dom.RenderString(tmpl.Document))
	require.Equal(t, "pages/index", tmpl.ID())
	require.Equal(t, "index.html", tmpl.OutputPath())
	require.Empty(t, tmpl.Dependencies)
}

func TestLoad_NoFrontMatterMeansEmptyRecord(t *testing.T) {
	fsys := fstest.MapFS{
		"src/components/nav.html": {Data: []byte(`<nav>menu</nav>`)},
	}

	tmpl, err := NewLoader(fsys, "src").Load("nav.html", KindComponent)
	require.NoError(t, err)
	require.Empty(t, tmpl.Local)
	require.Equal(t, "components/nav", tmpl.ID())
	require.Equal(t, "", tmpl.OutputPath())
}

func TestLoad_MalformedFrontMatterIsRecovered(t *testing.T) {
	fsys := fstest.MapFS{
		"src/pages/bad.html": {Data: []byte("---\ntitle: [unclosed\n---\n<p>still here</p>")},
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	tmpl, err := NewLoader(fsys, "src", WithLogger(logger)).Load("bad.html", KindPage)
	require.NoError(t, err)
	require.Error(t, tmpl.FrontMatterErr)
	require.True(t, foundationerrors.HasCategory(tmpl.FrontMatterErr, foundationerrors.CategoryFrontMatter))
	require.Empty(t, tmpl.Local)
	require.Equal(t, "<p>still here</p>", dom.RenderString(tmpl.Document))
	require.Contains(t, logs.String(), "src/pages/bad.html")
}

func TestLoad_MissingFileIsFilesystemError(t *testing.T) {
	_, err := NewLoader(fstest.MapFS{}, "src").Load("gone.html", KindPage)
	require.Error(t, err)
	require.True(t, IsNotExist(err))
	require.ErrorIs(t, err, fs.ErrNotExist)
	require.True(t, foundationerrors.HasCategory(err, foundationerrors.CategoryFileSystem))
}

func TestLoad_ExpandsLocalClassAliases(t *testing.T) {
	fsys := fstest.MapFS{
		"src/components/button.html": {Data: []byte("---\nclass-btn:\n  - px-4\n  - py-2\n---\n<button btn>Go</button>")},
	}

	tmpl, err := NewLoader(fsys, "src").Load("button.html", KindComponent)
	require.NoError(t, err)
	require.Equal(t, "px-4 py-2", tmpl.Local["class-btn"])
	require.Equal(t, `<button class="px-4 py-2">Go</button>`, dom.RenderString(tmpl.Document))
}

func TestLoad_ExtractsTopLevelInserts(t *testing.T) {
	body := `<tg-insert name="title">First</tg-insert>` +
		`<p>body</p>` +
		`<tg-component name="card"><tg-insert name="title">Card</tg-insert></tg-component>` +
		`<tg-insert name="title">Second</tg-insert>` +
		`<tg-insert name="side"><b>aside</b></tg-insert>`
	fsys := fstest.MapFS{
		"src/pages/_wrapper.html": {Data: []byte(body)},
	}

	tmpl, err := NewLoader(fsys, "src").Load("pages/_wrapper.html", KindWrapper)
	require.NoError(t, err)
	require.Equal(t, "pages/_wrapper", tmpl.ID())
	require.Equal(t, "pages", tmpl.Dir())
	require.Len(t, tmpl.Inserts, 2)
	require.Equal(t, "Second", dom.RenderString(tmpl.Inserts["title"]))
	require.Equal(t, "<b>aside</b>", dom.RenderString(tmpl.Inserts["side"]))
	require.Equal(t,
		`<p>body</p><tg-component name="card"><tg-insert name="title">Card</tg-insert></tg-component>`,
		dom.RenderString(tmpl.Document))
}

func TestLoad_NestedInsertIsPlainMarkup(t *testing.T) {
	fsys := fstest.MapFS{
		"src/pages/index.html": {Data: []byte(`<div><tg-insert name="a">X</tg-insert></div>`)},
	}

	tmpl, err := NewLoader(fsys, "src").Load("index.html", KindPage)
	require.NoError(t, err)
	require.Empty(t, tmpl.Inserts)
	require.Equal(t, `<div><tg-insert name="a">X</tg-insert></div>`, dom.RenderString(tmpl.Document))
}

func TestLoad_FullDocumentBodyInserts(t *testing.T) {
	body := `<!DOCTYPE html><html><head></head><body>` +
		`<tg-insert name="head"><meta name="x" content="y"></tg-insert><p>body</p></body></html>`
	fsys := fstest.MapFS{
		"src/pages/index.html": {Data: []byte(body)},
	}

	tmpl, err := NewLoader(fsys, "src").Load("index.html", KindPage)
	require.NoError(t, err)
	require.Len(t, tmpl.Inserts, 1)
	require.Equal(t, `<meta name="x" content="y"/>`, dom.RenderString(tmpl.Inserts["head"]))
	require.Equal(t, `<!DOCTYPE html><html><head></head><body><p>body</p></body></html>`, dom.RenderString(tmpl.Document))
}

func TestLoad_MarkdownArticle(t *testing.T) {
	fsys := fstest.MapFS{
		"src/articles/blog/post.md": {Data: []byte("---\ntitle: Post\n---\n# Heading\n\n<tg-component name=\"note\"></tg-component>\n")},
	}

	tmpl, err := NewLoader(fsys, "src").Load("blog/post.md", KindArticle)
	require.NoError(t, err)
	out := dom.RenderString(tmpl.Document)
	require.Contains(t, out, "<h1>Heading</h1>")
	require.Contains(t, out, `<tg-component name="note">`)
	require.Equal(t, "articles/blog/post", tmpl.ID())
	require.Equal(t, "articles/blog/post.html", tmpl.OutputPath())
}

func TestKindDirs(t *testing.T) {
	require.Equal(t, "pages", KindPage.Dir())
	require.Equal(t, "articles", KindArticle.Dir())
	require.Equal(t, "layouts", KindLayout.Dir())
	require.Equal(t, "components", KindComponent.Dir())
	require.Equal(t, "", KindWrapper.Dir())
	require.True(t, KindArticle.Renderable())
	require.False(t, KindLayout.Renderable())
}

func TestArticleURL(t *testing.T) {
	require.Equal(t, "/articles/blog/a.html", ArticleURL("blog/a"))
	require.Equal(t, "/articles/blog/a.html", ArticleURL("blog/a.md"))
}
