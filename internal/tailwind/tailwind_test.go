package tailwind

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func configJSON(t *testing.T, out []byte) string {
	t.Helper()
	s := string(out)
	require.True(t, strings.HasPrefix(s, "module.exports = "))
	js := strings.TrimPrefix(s, "module.exports = ")
	require.True(t, gjson.Valid(js))
	return js
}

func TestGenerate_FlatAndNestedColors(t *testing.T) {
	scheme := []byte("primary: \"#1d4ed8\"\nbrand:\n  500: \"#f97316\"\n  600: \"#ea580c\"\n")

	out, err := Generate(scheme, nil)
	require.NoError(t, err)
	js := configJSON(t, out)

	require.Equal(t, "#1d4ed8", gjson.Get(js, "theme.extend.colors.primary").String())
	require.Equal(t, "#f97316", gjson.Get(js, "theme.extend.colors.brand.500").String())
	require.Equal(t, "#ea580c", gjson.Get(js, "theme.extend.colors.brand.600").String())
	require.Equal(t, "./src/**/*.html", gjson.Get(js, "content.0").String())
}

func TestGenerate_Deterministic(t *testing.T) {
	scheme := []byte("b: red\na: blue\nc:\n  x: 1\n  y: 2\n")
	first, err := Generate(scheme, []string{"./src/**/*.html"})
	require.NoError(t, err)
	second, err := Generate(scheme, []string{"./src/**/*.html"})
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))
}

func TestGenerate_EmptySchemeStillProducesConfig(t *testing.T) {
	out, err := Generate(nil, nil)
	require.NoError(t, err)
	js := configJSON(t, out)
	require.True(t, gjson.Get(js, "theme.extend.colors").IsObject())
}

func TestGenerate_MalformedScheme(t *testing.T) {
	_, err := Generate([]byte("a: ["), nil)
	require.Error(t, err)
}

func TestGenerate_DottedKeysAreEscaped(t *testing.T) {
	out, err := Generate([]byte("\"accent.light\": pink\n"), nil)
	require.NoError(t, err)
	js := configJSON(t, out)
	require.Equal(t, "pink", gjson.Get(js, `theme.extend.colors.accent\.light`).String())
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tailwind.config.js")
	require.NoError(t, WriteFile(path, []byte("module.exports = {}\n")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "module.exports = {}\n", string(got))
}
