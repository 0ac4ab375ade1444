// Package tailwind generates the Tailwind CSS configuration from a site's
// color scheme.
package tailwind

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/sitesmith/internal/foundation/errors"
)

// DefaultContent lists the files Tailwind scans for class names.
var DefaultContent = []string{"./src/**/*.html", "./src/**/*.md"}

// Generate renders a tailwind.config.js from color scheme YAML. Top-level
// keys become theme colors; nested mappings become shade tables.
func Generate(scheme []byte, content []string) ([]byte, error) {
	colors := map[string]any{}
	if len(bytes.TrimSpace(scheme)) > 0 {
		if err := yaml.Unmarshal(scheme, &colors); err != nil {
			return nil, foundationerrors.WrapError(err, foundationerrors.CategoryValidation, "parse color scheme").Build()
		}
	}
	if content == nil {
		content = DefaultContent
	}

	js, err := sjson.Set("{}", "content", content)
	if err != nil {
		return nil, err
	}
	js, err = sjson.SetRaw(js, "theme.extend.colors", "{}")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(colors))
	for k := range colors {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		js, err = sjson.Set(js, "theme.extend.colors."+escapePath(name), stringKeys(colors[name]))
		if err != nil {
			return nil, fmt.Errorf("set color %q: %w", name, err)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("module.exports = ")
	buf.Write(pretty.PrettyOptions([]byte(js), &pretty.Options{Indent: "  ", Width: 80}))
	return buf.Bytes(), nil
}

// WriteFile writes a generated configuration to path.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "create tailwind config directory").
				WithContext("path", path).
				Build()
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, "write tailwind config").
			WithContext("path", path).
			Build()
	}
	return nil
}

// stringKeys converts YAML mappings with non-string keys (shade numbers such
// as 500) into JSON-encodable maps.
func stringKeys(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[k] = stringKeys(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(vv))
		for k, val := range vv {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		out := make([]any, len(vv))
		for i, val := range vv {
			out[i] = stringKeys(val)
		}
		return out
	default:
		return v
	}
}

func escapePath(key string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, ":", `\:`)
	return r.Replace(key)
}
