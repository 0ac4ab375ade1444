package frontmatter

import (
	"fmt"
	"strings"
)

// ClassAliasPrefix marks front-matter keys that name a class alias.
const ClassAliasPrefix = "class-"

// Record is a mapping of front-matter keys to YAML values.
type Record map[string]any

// Resolve merges records left to right. Later records override earlier ones
// key by key; nested maps are replaced, not merged. Nil records are skipped and
// the result is never nil.
func Resolve(chain ...Record) Record {
	out := Record{}
	for _, r := range chain {
		for k, v := range r {
			out[k] = v
		}
	}
	return out
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	return Resolve(r)
}

// String returns the value under key formatted as a string, or "" if absent.
func (r Record) String(key string) string {
	v, ok := r[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// ClassAliases returns alias name to class list for every class-* key, with
// the prefix stripped. Keys with a bare prefix are ignored.
func (r Record) ClassAliases() map[string]string {
	out := map[string]string{}
	for k := range r {
		if !strings.HasPrefix(k, ClassAliasPrefix) || len(k) == len(ClassAliasPrefix) {
			continue
		}
		if s := strings.TrimSpace(r.String(k)); s != "" {
			out[strings.ToLower(k[len(ClassAliasPrefix):])] = s
		}
	}
	return out
}

// Normalize rewrites class-* values given as YAML sequences into a single
// space-separated string. Other keys are left untouched.
func Normalize(r Record) {
	for k, v := range r {
		if !strings.HasPrefix(k, ClassAliasPrefix) {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			continue
		}
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if item == nil {
				continue
			}
			parts = append(parts, strings.TrimSpace(fmt.Sprint(item)))
		}
		r[k] = strings.Join(parts, " ")
	}
}
