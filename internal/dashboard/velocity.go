package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/project"
	"github.com/HendryAvila/planmcp/internal/version"
	"github.com/dustin/go-humanize/english"
)

// VelocityWindow is the period completions and updates are counted over.
// The window before it is used for the trend.
const VelocityWindow = 28 * 24 * time.Hour

// Trends compare the current window with the one before it.
const (
	TrendAccelerating = "accelerating"
	TrendSteady       = "steady"
	TrendSlowing      = "slowing"
	TrendIdle         = "idle"
)

// Velocity reports how fast goals are being finished.
type Velocity struct {
	WindowDays              int `json:"windowDays"`
	CompletedInWindow       int `json:"completedInWindow"`
	CompletedPreviousWindow int `json:"completedPreviousWindow"`
	// UpdatesInWindow counts history rows dated inside the window.
	UpdatesInWindow int     `json:"updatesInWindow"`
	GoalsPerWeek    float64 `json:"goalsPerWeek"`
	OpenGoals       int     `json:"openGoals"`
	// WeeksToClear is OpenGoals at the current rate, 0 when nothing was
	// completed in the window.
	WeeksToClear float64 `json:"weeksToClear"`
	Trend        string  `json:"trend"`
}

// activity is what velocity needs from one goal document.
type activity struct {
	finished  time.Time
	hasFinish bool
	updates   []time.Time
}

// activityOf treats Last Updated as the completion date of finished and
// archived goals.
func activityOf(g *document.Goal, content string) activity {
	var a activity
	if g.Completed() || strings.EqualFold(strings.TrimSpace(g.Status), "archived") {
		if t, err := project.ParseDate(g.LastUpdated); err == nil {
			a.finished, a.hasFinish = t, true
		}
	}
	for _, e := range version.ParseHistory(content) {
		if t, err := project.ParseDate(e.Date); err == nil {
			a.updates = append(a.updates, t)
		}
	}
	return a
}

func archivedActivity(store docstore.Store) ([]activity, error) {
	paths, err := store.Glob(document.ArchivedGoalsGlob)
	if err != nil {
		return nil, fmt.Errorf("listing archived goals: %w", err)
	}
	var out []activity
	for _, p := range paths {
		content, err := store.Read(p)
		if err != nil {
			continue
		}
		g, err := document.ParseGoal(p, content)
		if err != nil {
			continue
		}
		out = append(out, activityOf(g, content))
	}
	return out, nil
}

func velocity(acts []activity, open int, now time.Time) *Velocity {
	v := &Velocity{WindowDays: int(VelocityWindow / (24 * time.Hour)), OpenGoals: open}
	start := now.Add(-VelocityWindow)
	prevStart := start.Add(-VelocityWindow)
	within := func(t, from, to time.Time) bool { return !t.Before(from) && t.Before(to) }

	for _, a := range acts {
		if a.hasFinish {
			switch {
			case within(a.finished, start, now.Add(time.Nanosecond)):
				v.CompletedInWindow++
			case within(a.finished, prevStart, start):
				v.CompletedPreviousWindow++
			}
		}
		for _, t := range a.updates {
			if within(t, start, now.Add(time.Nanosecond)) {
				v.UpdatesInWindow++
			}
		}
	}

	weeks := VelocityWindow.Hours() / (24 * 7)
	rate := float64(v.CompletedInWindow) / weeks
	v.GoalsPerWeek = math.Round(rate*100) / 100
	if rate > 0 {
		v.WeeksToClear = math.Round(float64(open)/rate*10) / 10
	}

	switch cur, prev := v.CompletedInWindow, v.CompletedPreviousWindow; {
	case cur == 0 && prev == 0:
		v.Trend = TrendIdle
	case cur > prev:
		v.Trend = TrendAccelerating
	case cur < prev:
		v.Trend = TrendSlowing
	default:
		v.Trend = TrendSteady
	}
	return v
}

// Health statuses, from best to worst. Unknown means there are no goals.
const (
	HealthHealthy  = "healthy"
	HealthAtRisk   = "at-risk"
	HealthCritical = "critical"
	HealthUnknown  = "unknown"
)

// Health scores the open goals from 0 to 100.
type Health struct {
	Score        int      `json:"score"`
	Status       string   `json:"status"`
	OpenGoals    int      `json:"openGoals"`
	StaleGoals   int      `json:"staleGoals"`
	BlockedGoals int      `json:"blockedGoals"`
	UnstartedNow int      `json:"unstartedNowGoals"`
	Issues       []string `json:"issues"`
}

// health weighs stale, blocked and unstarted Now-tier goals as shares of
// the open goals, plus unreadable documents.
func health(r *Report) *Health {
	h := &Health{Issues: []string{}, StaleGoals: len(r.StaleGoals)}
	if r.TotalGoals == 0 {
		h.Status = HealthUnknown
		h.Issues = append(h.Issues, "No goals yet")
		return h
	}
	for _, g := range r.Goals {
		if document.CompletedStatus(g.Status) {
			continue
		}
		h.OpenGoals++
		if strings.Contains(strings.ToLower(g.Status), "block") {
			h.BlockedGoals++
		}
		if strings.EqualFold(strings.TrimSpace(g.Tier), "now") && g.Progress == 0 {
			h.UnstartedNow++
		}
	}

	penalty := math.Min(10, 2*float64(len(r.Warnings)))
	if open := float64(h.OpenGoals); open > 0 {
		penalty += 40*float64(h.StaleGoals)/open +
			30*float64(h.BlockedGoals)/open +
			20*float64(h.UnstartedNow)/open
	}
	h.Score = int(math.Round(math.Max(0, 100-penalty)))
	switch {
	case h.Score >= 75:
		h.Status = HealthHealthy
	case h.Score >= 50:
		h.Status = HealthAtRisk
	default:
		h.Status = HealthCritical
	}

	if h.StaleGoals > 0 {
		h.Issues = append(h.Issues, fmt.Sprintf("%d of %s not updated in %d days",
			h.StaleGoals, english.Plural(h.OpenGoals, "open goal", ""), int(StaleAfter.Hours()/24)))
	}
	if h.BlockedGoals > 0 {
		h.Issues = append(h.Issues, english.Plural(h.BlockedGoals, "goal", "")+" blocked")
	}
	if h.UnstartedNow > 0 {
		h.Issues = append(h.Issues, english.Plural(h.UnstartedNow, "Now-tier goal", "")+" not started")
	}
	if n := len(r.Warnings); n > 0 {
		h.Issues = append(h.Issues, english.Plural(n, "document", "")+" could not be read or parsed")
	}
	return h
}
