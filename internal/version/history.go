package version

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/HendryAvila/planmcp/internal/document"
)

const (
	// HistoryHeading is the section holding the version history table.
	HistoryHeading = "Version History"
	// DefaultAuthor signs history rows written without an explicit author.
	DefaultAuthor = "planmcp"
	// DateLayout is the date format of history rows.
	DateLayout = "2006-01-02"
)

// Entry is one Version History row.
type Entry struct {
	Version float64 `json:"version"`
	Date    string  `json:"date"`
	Changes string  `json:"changes"`
	Author  string  `json:"author"`
}

var (
	historyHeadingRe = regexp.MustCompile(`(?m)^##[ \t]+Version History[ \t\r]*$`)
	separatorRe      = regexp.MustCompile(`^\|(?:[ \t]*:?-+:?[ \t]*\|)+[ \t]*$`)
)

// HistoryTableHeader is the header every new document is scaffolded with.
const HistoryTableHeader = "| Version | Date | Changes | Author |\n|---------|------|---------|--------|"

// FormatRow renders an entry as a markdown table row.
func FormatRow(e Entry) string {
	return fmt.Sprintf("| %s | %s | %s | %s |",
		FormatVersion(e.Version), cell(e.Date), cell(e.Changes), cell(e.Author))
}

func cell(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}

// historyTable locates the table under the Version History heading.
// headerEnd is the offset just past the separator row's newline; rowsEnd
// is the offset just past the last table row.
func historyTable(content string) (headerEnd, rowsEnd int, ok bool) {
	loc := historyHeadingRe.FindStringIndex(content)
	if loc == nil {
		return 0, 0, false
	}

	offset := loc[1]
	sawHeader := false
	for _, line := range strings.SplitAfter(content[loc[1]:], "\n") {
		lineStart := offset
		offset += len(line)
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			if sawHeader {
				return 0, 0, false
			}
		case strings.HasPrefix(trimmed, "#"):
			return 0, 0, false
		case strings.HasPrefix(trimmed, "|"):
			if !sawHeader {
				sawHeader = true
				continue
			}
			if !separatorRe.MatchString(trimmed) {
				return 0, 0, false
			}
			if !strings.HasSuffix(line, "\n") {
				// Separator is the final line of the file.
				return lineStart + len(line), lineStart + len(line), true
			}
			return offset, tableEnd(content, offset), true
		default:
			if sawHeader {
				return 0, 0, false
			}
		}
	}
	return 0, 0, false
}

func tableEnd(content string, from int) int {
	end := from
	for _, line := range strings.SplitAfter(content[from:], "\n") {
		if !strings.HasPrefix(strings.TrimSpace(line), "|") {
			break
		}
		end += len(line)
	}
	return end
}

func insertHistoryRow(content string, e Entry) string {
	at, _, ok := historyTable(content)
	if !ok {
		return content
	}
	row := FormatRow(e) + "\n"
	if at > 0 && content[at-1] != '\n' {
		row = "\n" + FormatRow(e)
	}
	return content[:at] + row + content[at:]
}

// HasHistoryTable reports whether the document has a Version History table
// that rows can be added to.
func HasHistoryTable(content string) bool {
	_, _, ok := historyTable(content)
	return ok
}

// ParseHistory returns the Version History rows in document order (newest
// first for documents maintained by this package). Rows whose version cell
// does not parse are skipped.
func ParseHistory(content string) []Entry {
	start, end, ok := historyTable(content)
	if !ok {
		return nil
	}

	cols := historyColumns(content)
	var entries []Entry
	for _, line := range strings.Split(content[start:end], "\n") {
		cells := splitRow(line)
		if len(cells) == 0 {
			continue
		}
		get := func(name string, fallback int) string {
			i, found := cols[name]
			if !found {
				i = fallback
			}
			if i < len(cells) {
				return cells[i]
			}
			return ""
		}
		v, err := ParseVersion(get("version", 0))
		if err != nil {
			continue
		}
		entries = append(entries, Entry{
			Version: v,
			Date:    get("date", 1),
			Changes: strings.ReplaceAll(get("changes", 2), "\\|", "|"),
			Author:  get("author", 3),
		})
	}
	return entries
}

// historyColumns maps lowercased header names to column indexes.
func historyColumns(content string) map[string]int {
	cols := map[string]int{}
	loc := historyHeadingRe.FindStringIndex(content)
	if loc == nil {
		return cols
	}
	for _, line := range strings.Split(content[loc[1]:], "\n") {
		if cells := splitRow(line); len(cells) > 0 {
			for i, c := range cells {
				cols[strings.ToLower(c)] = i
			}
			return cols
		}
	}
	return cols
}

func splitRow(line string) []string {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "|") {
		return nil
	}
	line = strings.TrimSuffix(strings.TrimPrefix(line, "|"), "|")

	// Split on unescaped pipes only.
	var cells []string
	var cur strings.Builder
	for i := 0; i < len(line); i++ {
		switch {
		case line[i] == '\\' && i+1 < len(line) && line[i+1] == '|':
			cur.WriteString("\\|")
			i++
		case line[i] == '|':
			cells = append(cells, strings.TrimSpace(cur.String()))
			cur.Reset()
		default:
			cur.WriteByte(line[i])
		}
	}
	return append(cells, strings.TrimSpace(cur.String()))
}

// FindEntry returns the history row for the given version.
func FindEntry(entries []Entry, v float64) (Entry, bool) {
	for _, e := range entries {
		if Equal(e.Version, v) {
			return e, true
		}
	}
	return Entry{}, false
}

// ReplaceHistorySection swaps dst's Version History section for src's.
// When dst has none, src's section is appended. When src has none, dst is
// returned unchanged.
func ReplaceHistorySection(dst, src string) string {
	sStart, sEnd, ok := document.SectionSpan(src, HistoryHeading)
	if !ok {
		return dst
	}
	section := src[sStart:sEnd]
	if dStart, dEnd, found := document.SectionSpan(dst, HistoryHeading); found {
		return dst[:dStart] + section + dst[dEnd:]
	}
	if !strings.HasSuffix(dst, "\n") {
		dst += "\n"
	}
	return dst + "\n" + section
}
