package site

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/sitesmith/internal/templates"
	"git.home.luguber.info/inful/sitesmith/internal/util/sets"
)

func fixture() fstest.MapFS {
	return fstest.MapFS{
		"src/site.yml":                     {Data: []byte("data-current-year: 2023\nclass-card: border\n")},
		"src/pages/index.html":             {Data: []byte("---\nlayout: home\n---\n<p>index</p>")},
		"src/pages/about.html":             {Data: []byte("<p>about</p>")},
		"src/pages/_wrapper.html":          {Data: []byte("---\nclass-card: border-2\n---\n")},
		"src/pages/docs/intro.html":        {Data: []byte("<p>intro</p>")},
		"src/pages/docs/_wrapper.html":     {Data: []byte("---\ntitle: Docs\n---\n")},
		"src/articles/blog/a.html":         {Data: []byte("---\ntitle: A\n---\n<p>a</p>")},
		"src/articles/blog/b.md":           {Data: []byte("# B")},
		"src/articles/news/c.html":         {Data: []byte("<p>c</p>")},
		"src/layouts/home.html":            {Data: []byte("<main><tg-content></tg-content></main>")},
		"src/components/nav.html":          {Data: []byte("<nav></nav>")},
		"src/components/forms/button.html": {Data: []byte("<button></button>")},
		"src/components/.hidden.html":      {Data: []byte("<p></p>")},
		"src/components/readme.txt":        {Data: []byte("not a template")},
	}
}

func TestLoad_ReadsEveryKind(t *testing.T) {
	s, err := Load(fixture(), "src")
	require.NoError(t, err)

	require.Equal(t, 2023, s.Properties["data-current-year"])
	require.Len(t, s.Pages(), 3)
	require.Len(t, s.Articles(), 3)
	require.Len(t, s.Layouts(), 1)
	require.Len(t, s.Wrappers(), 2)
	require.Len(t, s.Components(), 2)

	var pagePaths []string
	for _, p := range s.Pages() {
		pagePaths = append(pagePaths, p.Path)
	}
	require.Equal(t, []string{"about.html", "docs/intro.html", "index.html"}, pagePaths)

	_, ok := s.Component("forms/button")
	require.True(t, ok)
	_, ok = s.Layout("home")
	require.True(t, ok)
	_, ok = s.Article("blog/b")
	require.True(t, ok)
}

func TestLoad_MissingDirectoriesAreEmpty(t *testing.T) {
	s, err := Load(fstest.MapFS{
		"src/pages/index.html": {Data: []byte("<p>x</p>")},
	}, "src")
	require.NoError(t, err)
	require.Empty(t, s.Properties)
	require.Len(t, s.Pages(), 1)
	require.Empty(t, s.Components())
}

func TestReloadProperties_MalformedYieldsEmptyRecord(t *testing.T) {
	fsys := fstest.MapFS{"src/site.yml": {Data: []byte("a: [")}}
	s, err := Load(fsys, "src")
	require.NoError(t, err)
	require.Empty(t, s.Properties)
	require.Error(t, s.PropertiesErr)
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		rel  string
		kind templates.Kind
		path string
		ok   bool
	}{
		{"pages/index.html", templates.KindPage, "index.html", true},
		{"pages/docs/_wrapper.html", templates.KindWrapper, "pages/docs/_wrapper.html", true},
		{"articles/blog/a.md", templates.KindArticle, "blog/a.md", true},
		{"articles/_wrapper.html", templates.KindWrapper, "articles/_wrapper.html", true},
		{"layouts/home.html", templates.KindLayout, "home.html", true},
		{"components/forms/button.html", templates.KindComponent, "forms/button.html", true},
		{`components\nav.html`, templates.KindComponent, "nav.html", true},
		{"pages/notes.md", 0, "", false},
		{"images/logo.png", 0, "", false},
		{"site.yml", 0, "", false},
		{"components/.nav.html.swp", 0, "", false},
	}
	for _, tc := range cases {
		t.Run(tc.rel, func(t *testing.T) {
			kind, p, ok := KindOf(tc.rel)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.Equal(t, tc.kind, kind)
				require.Equal(t, tc.path, p)
			}
		})
	}
}

func TestWrapperFor_PicksNearest(t *testing.T) {
	s, err := Load(fixture(), "src")
	require.NoError(t, err)

	intro, _ := s.Get("pages/docs/intro")
	w, ok := s.WrapperFor(intro)
	require.True(t, ok)
	require.Equal(t, "pages/docs/_wrapper", w.ID())

	index, _ := s.Get("pages/index")
	w, ok = s.WrapperFor(index)
	require.True(t, ok)
	require.Equal(t, "pages/_wrapper", w.ID())

	a, _ := s.Article("blog/a")
	_, ok = s.WrapperFor(a)
	require.False(t, ok)
}

func TestPutAndRemove_KeepOrderAndIndex(t *testing.T) {
	s, err := Load(fixture(), "src")
	require.NoError(t, err)

	old, _ := s.Get("pages/about")
	fresh, err := s.Loader().Load("about.html", templates.KindPage)
	require.NoError(t, err)
	s.Put(fresh)

	got, _ := s.Get("pages/about")
	require.NotSame(t, old, got)
	require.Len(t, s.Pages(), 3)
	require.Equal(t, "about.html", s.Pages()[0].Path)

	removed, ok := s.Remove("pages/about")
	require.True(t, ok)
	require.Same(t, fresh, removed)
	require.Len(t, s.Pages(), 2)
	_, ok = s.Get("pages/about")
	require.False(t, ok)

	_, ok = s.Remove("pages/about")
	require.False(t, ok)
}

func TestArticlesMatching(t *testing.T) {
	s, err := Load(fixture(), "src")
	require.NoError(t, err)

	var names []string
	for _, a := range s.ArticlesMatching("blog/*") {
		names = append(names, a.ID())
	}
	require.Equal(t, []string{"articles/blog/a", "articles/blog/b"}, names)
	require.Empty(t, s.ArticlesMatching("["))
}

func TestAffectedBy(t *testing.T) {
	s, err := Load(fixture(), "src")
	require.NoError(t, err)

	index, _ := s.Get("pages/index")
	index.Dependencies = sets.New("layouts/home", "components/nav", "articles/blog/*")
	about, _ := s.Get("pages/about")
	about.Dependencies = sets.New("components/nav")
	about.Unresolved = sets.New("components/footer")
	a, _ := s.Article("blog/a")
	a.Dependencies = sets.New("articles/blog/b")

	ids := func(ts []*templates.Template) []string {
		var out []string
		for _, t := range ts {
			out = append(out, t.ID())
		}
		return out
	}

	require.Equal(t, []string{"pages/about", "pages/index"}, ids(s.AffectedBy("components/nav")))
	require.Equal(t, []string{"pages/index"}, ids(s.AffectedBy("layouts/home")))
	require.Equal(t, []string{"pages/about"}, ids(s.AffectedBy("components/footer")))
	require.Equal(t, []string{"articles/blog/a", "pages/index"}, ids(s.AffectedBy("articles/blog/b")))
	require.Empty(t, s.AffectedBy("components/forms/button"))
}

func TestUnder(t *testing.T) {
	s, err := Load(fixture(), "src")
	require.NoError(t, err)

	var got []string
	for _, t := range s.Under("pages/docs") {
		got = append(got, t.ID())
	}
	require.Equal(t, []string{"pages/docs/intro"}, got)
	require.Len(t, s.Under("pages"), 3)
}

func TestSourcesUnder(t *testing.T) {
	s, err := Load(fixture(), "src")
	require.NoError(t, err)

	var got []string
	for _, t := range s.SourcesUnder("pages/docs/") {
		got = append(got, t.ID())
	}
	require.Equal(t, []string{"pages/docs/intro", "pages/docs/_wrapper"}, got)

	got = got[:0]
	for _, t := range s.SourcesUnder("components") {
		got = append(got, t.ID())
	}
	require.Equal(t, []string{"components/forms/button", "components/nav"}, got)
	require.Empty(t, s.SourcesUnder("articles/sports"))
}
