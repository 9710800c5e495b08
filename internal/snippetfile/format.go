// Package snippetfile reads and writes snippets as standalone .sql files.
//
// A file carries the snippet body between marker comments, a metadata
// comment naming its dependencies, and a WITH preamble reproducing those
// dependencies so the file can be inspected on its own.
package snippetfile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	header = "/* This SQL file was produced by sqlsnip, do not edit directly.\n" +
		"Edit the session where this snippet was defined */"
	beginMarker = "/* SNIPPET BEGINS */"
	endMarker   = "/* SNIPPET ENDS */"
)

var bodyPattern = regexp.MustCompile(`(?s)/\* SNIPPET BEGINS \*/\s*(.*?)\s*/\* SNIPPET ENDS \*/`)

// Dependency is a dependency written into the preamble of a file.
type Dependency struct {
	Name string
	Body string
}

// Document is the parsed content of a snippet file.
type Document struct {
	// Dependencies lists the dependency names in file order. Nil when the
	// file declares none.
	Dependencies []string
	Body         string
}

type metadata struct {
	With []string `json:"with_"`
}

// ParseError is returned when a snippet file cannot be parsed.
type ParseError struct {
	File    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Serialize renders body and its dependencies (in resolution order) as a
// snippet file.
func Serialize(body string, deps []Dependency) string {
	var meta, preamble string
	if len(deps) > 0 {
		names := make([]string, len(deps))
		parts := make([]string, len(deps))
		for i, d := range deps {
			quoted, _ := json.Marshal(d.Name)
			names[i] = string(quoted)
			parts[i] = d.Name + " as (" + d.Body + "\n)"
		}
		meta = `{"with_": [` + strings.Join(names, ", ") + `]}`
		preamble = "with " + strings.Join(parts, ",") + ","
	}

	return fmt.Sprintf("\n%s\n/* %s */\n\n%s\n%s\n%s\n%s\n",
		header, meta, preamble, beginMarker, body, endMarker)
}

// Parse extracts the dependency names and body from a snippet file. The
// body is trimmed of surrounding whitespace. Metadata is read only from the
// first line after the header, so comments in the preamble or the body are
// never taken for it.
func Parse(content string) (*Document, error) {
	m := bodyPattern.FindStringSubmatchIndex(content)
	if m == nil {
		return nil, &ParseError{Message: "missing " + beginMarker + " / " + endMarker + " markers"}
	}
	doc := &Document{Body: strings.TrimSpace(content[m[2]:m[3]])}

	deps, err := parseMetadata(content[:m[0]])
	if err != nil {
		return nil, err
	}
	doc.Dependencies = deps
	return doc, nil
}

// parseMetadata reads the metadata comment from the part of a file before
// the begin marker. An empty comment or a missing one means no
// dependencies.
func parseMetadata(head string) ([]string, error) {
	if i := strings.Index(head, header); i >= 0 {
		head = head[i+len(header):]
	}

	var line string
	for _, l := range strings.Split(head, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if !strings.HasPrefix(line, "/*") || !strings.HasSuffix(line, "*/") || len(line) < 4 {
		return nil, nil
	}
	inner := strings.TrimSpace(line[2 : len(line)-2])
	if !strings.HasPrefix(inner, "{") {
		return nil, nil
	}

	var meta metadata
	if err := json.Unmarshal([]byte(inner), &meta); err != nil {
		return nil, &ParseError{Message: "invalid metadata", Err: err}
	}
	return meta.With, nil
}
