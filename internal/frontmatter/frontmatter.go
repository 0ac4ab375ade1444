// Package frontmatter splits template sources into their YAML header and
// body and resolves the merged key/value records used during composition.
package frontmatter

import (
	"bytes"
	"errors"

	"gopkg.in/yaml.v3"
)

const delimiter = "---"

// ErrMissingClosingDelimiter is returned when a source opens a front matter
// block that is never closed.
var ErrMissingClosingDelimiter = errors.New("front matter opened with --- but never closed")

// Document is a template source taken apart at its front matter delimiters.
type Document struct {
	Header    []byte // YAML between the delimiters, without them
	Body      []byte
	HasHeader bool
}

// Split separates the leading `---` block from the body. Delimiter lines may
// end in \r\n. A closing delimiter on the last line without a newline counts.
//
// An unclosed block yields ErrMissingClosingDelimiter and a Document whose
// Body is everything after the opening line, so the template still renders.
func Split(content []byte) (Document, error) {
	first, rest, ok := cutLine(content)
	if !ok || !isDelimiter(first) {
		return Document{Body: content}, nil
	}

	offset := 0
	for remaining := rest; len(remaining) > 0; {
		line, next, _ := cutLine(remaining)
		if isDelimiter(line) {
			return Document{Header: rest[:offset], Body: next, HasHeader: true}, nil
		}
		offset += len(remaining) - len(next)
		remaining = next
	}
	return Document{Body: rest}, ErrMissingClosingDelimiter
}

// cutLine returns the first line of b without its line break, the remainder
// after the break, and whether b held any line at all.
func cutLine(b []byte) (line, rest []byte, ok bool) {
	if len(b) == 0 {
		return nil, nil, false
	}
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return b[:i], b[i+1:], true
	}
	return b, nil, true
}

func isDelimiter(line []byte) bool {
	return string(bytes.TrimRight(line, " \t\r")) == delimiter
}

// ParseYAML decodes a front matter header into a Record. A blank header is
// an empty record.
func ParseYAML(header []byte) (Record, error) {
	fields := Record{}
	if len(bytes.TrimSpace(header)) == 0 {
		return fields, nil
	}
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = Record{}
	}
	return fields, nil
}
