// Package version reads, computes and rewrites the numeric version carried
// by planning documents, and keeps their Version History table.
//
// Versions are plain floats: the integer part is the major number, the
// first decimal the minor and the second decimal the patch ("1.1", "1.01").
package version

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/HendryAvila/planmcp/internal/document"
	"gopkg.in/yaml.v3"
)

// ChangeType selects the version arithmetic for an update.
type ChangeType string

const (
	Major ChangeType = "major"
	Minor ChangeType = "minor"
	Patch ChangeType = "patch"
)

// ParseChangeType validates a change type string.
func ParseChangeType(s string) (ChangeType, error) {
	switch ct := ChangeType(strings.ToLower(strings.TrimSpace(s))); ct {
	case Major, Minor, Patch:
		return ct, nil
	}
	return "", fmt.Errorf("invalid change type %q: must be one of: major, minor, patch", s)
}

// DefaultVersion is the version of a document that declares none.
const DefaultVersion = 1.0

var (
	fmVersionLineRe  = regexp.MustCompile(`(?m)^version:.*$`)
	fmVersionValueRe = regexp.MustCompile(`(?m)^version:[ \t]*["']?v?([0-9]+(?:\.[0-9]+)?)`)
	versionSectionRe = regexp.MustCompile(`(?m)^##[ \t]+Version[ \t\r]*\n\s*\**v?([0-9]+(?:\.[0-9]+)?)`)
)

// ExtractVersion returns the document version. The frontmatter "version"
// field wins; a "## Version" section is the fallback; a document with
// neither is at DefaultVersion.
func ExtractVersion(content string) float64 {
	if fm, ok := document.Frontmatter(content); ok {
		if v, found := frontmatterVersion(fm); found {
			return v
		}
	}
	if m := versionSectionRe.FindStringSubmatch(content); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return v
		}
	}
	return DefaultVersion
}

func frontmatterVersion(fm string) (float64, bool) {
	var meta struct {
		Version any `yaml:"version"`
	}
	if err := yaml.Unmarshal([]byte(fm), &meta); err == nil {
		switch v := meta.Version.(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case string:
			if f, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(v), "v"), 64); err == nil {
				return f, true
			}
		}
		return 0, false
	}

	// Malformed YAML elsewhere in the block should not hide the version.
	if m := fmVersionValueRe.FindStringSubmatch(fm); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// CalculateNewVersion applies a change type to the current version.
//
// major is ceil(current+1), so 1.5 becomes 3 rather than 2. Documents in
// the wild were versioned with this rule and it is kept as is.
// Any type other than Major or Minor is treated as Patch.
func CalculateNewVersion(current float64, ct ChangeType) float64 {
	switch ct {
	case Major:
		return math.Ceil(current + 1)
	case Minor:
		return roundTo(current+0.1, 1)
	default:
		return roundTo(current+0.01, 2)
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

// FormatVersion renders a version with at least one decimal: 1 → "1.0",
// 1.01 → "1.01".
func FormatVersion(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseVersion reads "1.2" or "v1.2".
func ParseVersion(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(s), "v"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

// Equal compares versions at their rendered precision.
func Equal(a, b float64) bool {
	return FormatVersion(a) == FormatVersion(b)
}

// UpdateVersionInContent sets the document version to newVersion and adds
// one Version History row dated today, authored by DefaultAuthor.
func UpdateVersionInContent(content string, newVersion float64, note string) string {
	return ApplyVersion(content, Entry{
		Version: newVersion,
		Date:    timeNow().Format(DateLayout),
		Changes: note,
		Author:  DefaultAuthor,
	})
}

// ApplyVersion sets the document version to e.Version and inserts e as the
// newest Version History row. When the document has no history table the
// row is dropped; the version rewrite still happens.
func ApplyVersion(content string, e Entry) string {
	if e.Date == "" {
		e.Date = timeNow().Format(DateLayout)
	}
	if e.Author == "" {
		e.Author = DefaultAuthor
	}
	return insertHistoryRow(SetVersion(content, e.Version), e)
}

// SetVersion rewrites the version in place without touching history.
func SetVersion(content string, v float64) string {
	vs := FormatVersion(v)

	start, end, hasFM := document.FrontmatterSpan(content)
	if hasFM {
		fm := content[start:end]
		if loc := fmVersionLineRe.FindStringIndex(fm); loc != nil {
			return content[:start] + fm[:loc[0]] + "version: " + vs + fm[loc[1]:] + content[end:]
		}
	}

	if m := versionSectionRe.FindStringSubmatchIndex(content); m != nil {
		return content[:m[2]] + vs + content[m[3]:]
	}

	if hasFM {
		if start == end {
			return content[:start] + "version: " + vs + "\n" + content[start:]
		}
		return content[:end] + "\nversion: " + vs + content[end:]
	}
	return "---\nversion: " + vs + "\n---\n\n" + content
}
