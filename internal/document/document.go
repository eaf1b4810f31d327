// Package document is the single place where planning markdown is parsed.
//
// Every document in the hierarchy shares the same loose format: an optional
// YAML frontmatter block, a level-one title, bold-label fields such as
// "**Status:** Active", and "##" sections. Tools never run their own regular
// expressions over document text; they ask this package for a typed record.
package document

import (
	"regexp"
	"strings"
	"unicode"
)

// Type identifies a document's role in the fixed planning hierarchy.
type Type string

const (
	TypeProjectOverview Type = "project-overview"
	TypeRoadmap         Type = "roadmap"
	TypeComponent       Type = "component"
	TypeMajorGoal       Type = "major-goal"
	TypeSubGoal         Type = "sub-goal"
)

var validTypes = map[Type]bool{
	TypeProjectOverview: true,
	TypeRoadmap:         true,
	TypeComponent:       true,
	TypeMajorGoal:       true,
	TypeSubGoal:         true,
}

// ValidType reports whether t is a known document type.
func ValidType(t Type) bool { return validTypes[t] }

var (
	frontmatterRe = regexp.MustCompile(`\A---[ \t]*\r?\n(?s:(.*?)\r?\n)?---[ \t]*(?:\r?\n|\z)`)
	fieldRe       = regexp.MustCompile(`(?m)^\*\*([^*:\r\n]+):\*\*[ \t]*(.*?)[ \t\r]*$`)
	titleRe       = regexp.MustCompile(`(?m)^#[ \t]+(.+?)[ \t\r]*$`)
	headingRe     = regexp.MustCompile(`(?m)^##[ \t]+(.+?)[ \t\r]*$`)
)

// FrontmatterSpan returns the byte offsets of the frontmatter's inner text
// (between the opening and closing "---" lines). ok is false when the
// content does not start with a frontmatter block.
func FrontmatterSpan(content string) (start, end int, ok bool) {
	m := frontmatterRe.FindStringSubmatchIndex(content)
	if m == nil {
		return 0, 0, false
	}
	if m[2] < 0 {
		// Empty block: "---\n---".
		pos := strings.Index(content, "\n") + 1
		return pos, pos, true
	}
	return m[2], m[3], true
}

// Frontmatter returns the raw YAML inside the frontmatter block.
func Frontmatter(content string) (string, bool) {
	start, end, ok := FrontmatterSpan(content)
	if !ok {
		return "", false
	}
	return content[start:end], true
}

// HasFrontmatter reports whether content begins with a frontmatter block.
func HasFrontmatter(content string) bool {
	return strings.HasPrefix(strings.TrimPrefix(content, "\ufeff"), "---")
}

// Body returns the content after the frontmatter block, or the whole
// content when there is none.
func Body(content string) string {
	m := frontmatterRe.FindStringIndex(content)
	if m == nil {
		return content
	}
	return content[m[1]:]
}

// Title returns the text of the first level-one heading.
func Title(content string) string {
	m := titleRe.FindStringSubmatch(Body(content))
	if m == nil {
		return ""
	}
	return m[1]
}

// Field is one "**Label:** value" line.
type Field struct {
	Label string
	Value string
	// Start and End are byte offsets of the whole line (without newline).
	Start, End int
}

// Fields returns every bold-label field in document order.
func Fields(content string) []Field {
	matches := fieldRe.FindAllStringSubmatchIndex(content, -1)
	fields := make([]Field, 0, len(matches))
	for _, m := range matches {
		fields = append(fields, Field{
			Label: strings.TrimSpace(content[m[2]:m[3]]),
			Value: content[m[4]:m[5]],
			Start: m[0],
			End:   m[1],
		})
	}
	return fields
}

// FieldMap returns field values keyed by FieldKey(label). When a label
// appears twice the first occurrence wins.
func FieldMap(content string) map[string]string {
	out := make(map[string]string)
	for _, f := range Fields(content) {
		key := FieldKey(f.Label)
		if _, seen := out[key]; !seen {
			out[key] = f.Value
		}
	}
	return out
}

// FieldKey normalizes a field label or update key so that "Last Updated",
// "last_updated" and "lastUpdated" compare equal.
func FieldKey(label string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(label) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// knownLabels maps normalized keys to the label written into documents.
var knownLabels = map[string]string{
	"name":        "Name",
	"purpose":     "Purpose",
	"scope":       "Scope",
	"status":      "Status",
	"timeline":    "Timeline",
	"goals":       "Goals",
	"owner":       "Owner",
	"priority":    "Priority",
	"tier":        "Tier",
	"progress":    "Progress",
	"component":   "Component",
	"goalid":      "Goal ID",
	"lastupdated": "Last Updated",
	"targetdate":  "Target Date",
	"archived":    "Archived",
}

// LabelFor returns the document label for an update key. Unknown keys are
// split on case changes and separators and title-cased.
func LabelFor(key string) string {
	if l, ok := knownLabels[FieldKey(key)]; ok {
		return l
	}
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r) && i > 0:
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

// SetField rewrites the value of the field with the given label, or adds
// the field after the last existing field (or after the title when the
// document has none).
func SetField(content, label, value string) string {
	value = strings.ReplaceAll(strings.TrimSpace(value), "\n", " ")
	key := FieldKey(label)
	fields := Fields(content)
	for _, f := range fields {
		if FieldKey(f.Label) == key {
			return content[:f.Start] + "**" + f.Label + ":** " + value + content[f.End:]
		}
	}

	line := "**" + label + ":** " + value
	if len(fields) > 0 {
		last := fields[len(fields)-1]
		return content[:last.End] + "\n" + line + content[last.End:]
	}

	offset := len(content) - len(Body(content))
	if loc := titleRe.FindStringIndex(content[offset:]); loc != nil {
		at := offset + loc[1]
		return content[:at] + "\n\n" + line + content[at:]
	}
	return content[:offset] + line + "\n\n" + content[offset:]
}

// Section returns the body of the "## heading" section (matched
// case-insensitively), up to the next "##" heading.
func Section(content, heading string) (string, bool) {
	start, end, ok := SectionSpan(content, heading)
	if !ok {
		return "", false
	}
	section := content[start:end]
	if nl := strings.Index(section, "\n"); nl >= 0 {
		return strings.TrimSpace(section[nl+1:]), true
	}
	return "", true
}

// SectionSpan returns the byte offsets of a section, heading line
// included, up to the next "##" heading or end of content.
func SectionSpan(content, heading string) (start, end int, ok bool) {
	want := strings.ToLower(strings.TrimSpace(heading))
	matches := headingRe.FindAllStringSubmatchIndex(content, -1)
	for i, m := range matches {
		if strings.ToLower(content[m[2]:m[3]]) != want {
			continue
		}
		end = len(content)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		return m[0], end, true
	}
	return 0, 0, false
}
