package visualize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/project"
	"github.com/HendryAvila/planmcp/internal/version"
)

// Timeline groupings.
const (
	GroupByComponent = "component"
	GroupByTier      = "tier"
	GroupByStatus    = "status"
)

// Time ranges keep bars that overlap now plus or minus the range.
const (
	RangeAll     = "all"
	RangeMonth   = "month"
	RangeQuarter = "quarter"
	RangeYear    = "year"
)

// Bar states, named after the mermaid gantt tags.
const (
	StateDone    = "done"
	StateActive  = "active"
	StateCrit    = "crit"
	StatePlanned = "planned"
)

// tierHorizon is how far ahead an untouched goal of each tier is planned
// to finish. Open goals finish at now plus the horizon scaled by the work
// left.
var tierHorizon = map[string]time.Duration{
	"now":     28 * day,
	"next":    84 * day,
	"later":   182 * day,
	"someday": 364 * day,
}

const (
	day            = 24 * time.Hour
	defaultHorizon = 84 * day
	minRemaining   = 7 * day
)

var tierRank = map[string]int{"now": 0, "next": 1, "later": 2, "someday": 3}

// TimelineOptions control Timeline.
type TimelineOptions struct {
	GroupBy        string
	TimeRange      string
	ShowMilestones bool
	Now            time.Time
}

// Bar is one goal on the timeline. Dates are YYYY-MM-DD.
type Bar struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Status   string `json:"status"`
	Tier     string `json:"tier,omitempty"`
	Progress int    `json:"progress"`
	State    string `json:"state"`
	Start    string `json:"start"`
	End      string `json:"end"`
	// Estimated is true when End is projected rather than recorded.
	Estimated bool `json:"estimated"`

	start, end time.Time
}

// Milestone marks the last end date of a group.
type Milestone struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Lane is one group of bars.
type Lane struct {
	Name      string     `json:"name"`
	Bars      []Bar      `json:"bars"`
	Milestone *Milestone `json:"milestone,omitempty"`
}

// TimelineView is the roadmap timeline of a project.
type TimelineView struct {
	Title string `json:"title"`
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
	Lanes []Lane `json:"lanes"`
}

// Timeline places every active goal between its first history date and
// its completion (recorded or projected).
func Timeline(p *project.Project, opts TimelineOptions) (*TimelineView, error) {
	groupBy := strings.ToLower(strings.TrimSpace(opts.GroupBy))
	if groupBy == "" {
		groupBy = GroupByComponent
	}
	if groupBy != GroupByComponent && groupBy != GroupByTier && groupBy != GroupByStatus {
		return nil, fmt.Errorf("%w: groupBy %q: use component, tier or status", ErrUnknownOption, opts.GroupBy)
	}
	from, to, err := rangeWindow(opts.TimeRange, opts.Now)
	if err != nil {
		return nil, err
	}

	view := &TimelineView{Title: p.Name + " Roadmap", Lanes: []Lane{}}
	lanes := map[string]*Lane{}
	var order []string
	var first, last time.Time

	for _, c := range p.Components {
		for _, g := range c.Goals {
			bar := barFor(g, opts.Now)
			if !from.IsZero() && (bar.end.Before(from) || bar.start.After(to)) {
				continue
			}
			name := laneName(groupBy, c, g)
			l, ok := lanes[name]
			if !ok {
				l = &Lane{Name: name, Bars: []Bar{}}
				lanes[name] = l
				order = append(order, name)
			}
			l.Bars = append(l.Bars, bar)
			if first.IsZero() || bar.start.Before(first) {
				first = bar.start
			}
			if bar.end.After(last) {
				last = bar.end
			}
		}
	}

	switch groupBy {
	case GroupByTier:
		sort.SliceStable(order, func(i, j int) bool { return tierLess(order[i], order[j]) })
	case GroupByStatus:
		sort.Strings(order)
	}
	for _, name := range order {
		l := lanes[name]
		sort.SliceStable(l.Bars, func(i, j int) bool { return l.Bars[i].start.Before(l.Bars[j].start) })
		if opts.ShowMilestones {
			end := l.Bars[0].end
			for _, b := range l.Bars[1:] {
				if b.end.After(end) {
					end = b.end
				}
			}
			l.Milestone = &Milestone{Name: name + " complete", Date: end.Format(version.DateLayout)}
		}
		view.Lanes = append(view.Lanes, *l)
	}
	if !first.IsZero() {
		view.Start = first.Format(version.DateLayout)
		view.End = last.Format(version.DateLayout)
	}
	return view, nil
}

func rangeWindow(r string, now time.Time) (from, to time.Time, err error) {
	var span time.Duration
	switch strings.ToLower(strings.TrimSpace(r)) {
	case "", RangeAll:
		return time.Time{}, time.Time{}, nil
	case RangeMonth:
		span = 30 * day
	case RangeQuarter:
		span = 91 * day
	case RangeYear:
		span = 365 * day
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: timeRange %q: use all, month, quarter or year", ErrUnknownOption, r)
	}
	return now.Add(-span), now.Add(span), nil
}

func barFor(g *project.Goal, now time.Time) Bar {
	today := now.UTC().Truncate(day)
	start, ok := g.Created()
	if !ok {
		start = today
	}
	b := Bar{
		Key:      g.Key,
		Name:     g.Name,
		Status:   g.Status,
		Tier:     g.Tier,
		Progress: g.Percent(),
	}

	switch {
	case g.Completed():
		b.State = StateDone
		b.end, ok = g.Updated()
		if !ok {
			b.end = start
		}
	default:
		horizon, ok := tierHorizon[strings.ToLower(strings.TrimSpace(g.Tier))]
		if !ok {
			horizon = defaultHorizon
		}
		remaining := horizon * time.Duration(100-b.Progress) / 100
		if remaining < minRemaining {
			remaining = minRemaining
		}
		b.end = today.Add(remaining).Truncate(day)
		b.Estimated = true
		switch {
		case g.Blocked():
			b.State = StateCrit
		case b.Progress > 0 || strings.Contains(strings.ToLower(g.Status), "progress"):
			b.State = StateActive
		default:
			b.State = StatePlanned
		}
	}
	if !b.end.After(start) {
		b.end = start.Add(day)
	}
	b.start = start
	b.Start = start.Format(version.DateLayout)
	b.End = b.end.Format(version.DateLayout)
	return b
}

func laneName(groupBy string, c *project.Component, g *project.Goal) string {
	switch groupBy {
	case GroupByTier:
		if t := strings.TrimSpace(g.Tier); t != "" {
			return t
		}
		return "Unassigned"
	case GroupByStatus:
		return g.Status
	}
	return c.Name
}

func tierLess(a, b string) bool {
	ra, okA := tierRank[strings.ToLower(a)]
	rb, okB := tierRank[strings.ToLower(b)]
	switch {
	case okA && okB:
		return ra < rb
	case okA != okB:
		return okA
	}
	return a < b
}

// RenderTimeline draws the timeline as a mermaid gantt chart, markdown
// tables or json.
func RenderTimeline(v *TimelineView, f Format) (string, error) {
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding timeline: %w", err)
		}
		return string(b), nil
	case FormatMarkdown:
		return timelineMarkdown(v), nil
	case FormatMermaid, "":
		return timelineMermaid(v), nil
	}
	return "", fmt.Errorf("%w %q for a timeline", ErrUnknownFormat, f)
}

func timelineMermaid(v *TimelineView) string {
	var b strings.Builder
	b.WriteString("```mermaid\ngantt\n")
	fmt.Fprintf(&b, "    title %s\n", mermaidText(v.Title))
	b.WriteString("    dateFormat YYYY-MM-DD\n")
	for i, l := range v.Lanes {
		fmt.Fprintf(&b, "    section %s\n", mermaidText(l.Name))
		for _, bar := range l.Bars {
			tags := mermaidID(bar.Key)
			if bar.State != StatePlanned {
				tags = bar.State + ", " + tags
			}
			fmt.Fprintf(&b, "    %s :%s, %s, %s\n", mermaidText(bar.Name), tags, bar.Start, bar.End)
		}
		if l.Milestone != nil {
			fmt.Fprintf(&b, "    %s :milestone, m%d, %s, 0d\n", mermaidText(l.Milestone.Name), i+1, l.Milestone.Date)
		}
	}
	b.WriteString("```\n")
	return b.String()
}

func timelineMarkdown(v *TimelineView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", v.Title)
	if len(v.Lanes) == 0 {
		b.WriteString("\nNo goals in this range.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "\n_%s to %s. Dates marked * are projected._\n", v.Start, v.End)
	for _, l := range v.Lanes {
		fmt.Fprintf(&b, "\n## %s\n\n", l.Name)
		b.WriteString("| Goal | Status | Progress | Start | End |\n")
		b.WriteString("|------|--------|----------|-------|-----|\n")
		for _, bar := range l.Bars {
			end := bar.End
			if bar.Estimated {
				end += "*"
			}
			fmt.Fprintf(&b, "| %s | %s | %d%% | %s | %s |\n",
				tableCell(bar.Name), tableCell(bar.Status), bar.Progress, bar.Start, end)
		}
		if l.Milestone != nil {
			fmt.Fprintf(&b, "\nMilestone: %s on %s\n", l.Milestone.Name, l.Milestone.Date)
		}
	}
	return b.String()
}

func tableCell(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "|", `\|`), "\n", " ")
}
