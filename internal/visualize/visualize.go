// Package visualize draws a loaded project as a hierarchy tree, a roadmap
// timeline or a goal dependency graph.
//
// Every view is built as plain data first (JSON friendly) and rendered
// separately, so tools can return both the drawing and the data.
package visualize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Format selects how a view is rendered.
type Format string

const (
	FormatASCII    Format = "ascii"
	FormatMarkdown Format = "markdown"
	FormatMermaid  Format = "mermaid"
	FormatJSON     Format = "json"
)

var (
	ErrUnknownFormat    = errors.New("unknown format")
	ErrUnknownComponent = errors.New("unknown component")
	ErrUnknownOption    = errors.New("unknown option")
)

// ParseFormat accepts one of allowed; empty input selects the first.
func ParseFormat(s string, allowed ...Format) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" && len(allowed) > 0 {
		return allowed[0], nil
	}
	names := make([]string, len(allowed))
	for i, f := range allowed {
		if string(f) == s {
			return f, nil
		}
		names[i] = string(f)
	}
	return "", fmt.Errorf("%w %q: use %s", ErrUnknownFormat, s, strings.Join(names, ", "))
}

// FormatNames lists formats for tool enums.
func FormatNames(fs ...Format) []string {
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = string(f)
	}
	return out
}

var nonIdent = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// mermaidID turns a goal key such as "auth/001-login" into a node id.
func mermaidID(key string) string {
	return "g_" + nonIdent.ReplaceAllString(key, "_")
}

// mermaidText makes a label safe inside a quoted mermaid string or a
// gantt task name.
func mermaidText(s string) string {
	r := strings.NewReplacer(`"`, "#quot;", "\n", " ", ":", " ", ";", " ", "#", " ")
	return strings.Join(strings.Fields(r.Replace(s)), " ")
}
