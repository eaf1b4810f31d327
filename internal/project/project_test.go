package project

import (
	"testing"
	"time"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginGoal = `---
version: 1.2
---
# Goal: Login

**Goal ID:** stale-id
**Name:** Login
**Status:** In Progress
**Tier:** Now
**Progress:** 40%
**Dependencies:** 002-session, billing/001-card
**Last Updated:** 2026-03-01

## Description

Password sign in.

## Version History

| Version | Date | Changes | Author |
|---------|------|---------|--------|
| 1.2 | 2026-03-01 | More | ana |
| 1.1 | 2026-02-01 | Some | ana |
| 1.0 | 2026-01-15 | Initial version | ana |
`

func seed(t *testing.T) *docstore.FileStore {
	t.Helper()
	s := docstore.New(t.TempDir())
	files := map[string]string{
		document.ProjectOverviewPath:                                                          "# Shop: Project Overview\n\n**Name:** Shop\n\n## Description\n\nSells things.\n\n## Vision\n\nEverywhere.\n",
		document.ComponentPath("auth"):                                                        "---\nversion: 2.0\n---\n# Component: Auth\n\n**Name:** Authentication\n**Purpose:** Sign in\n**Status:** Active\n",
		document.GoalPath("auth", "001-login"):                                                loginGoal,
		document.GoalPath("auth", "002-session"):                                              "# Goal: Session\n\n**Name:** Session\n**Status:** Completed\n**Progress:** 60%\n**Last Updated:** 2026-02-10\n",
		document.GoalPath("auth", "003-broken"):                                               "# nothing\n",
		document.GoalPath("billing", "001-card"):                                              "# Goal: Cards\n\n**Name:** Cards\n**Status:** Blocked\n**Progress:** 10\n",
		document.GoalDir("auth", "001-login") + "/sub-goals/01-form/" + document.SubGoalFile:  "# Sub-goal: Form\n\n**Status:** Done\n**Progress:** 100%\n",
		document.GoalDir("auth", "001-login") + "/sub-goals/02-reset/" + document.SubGoalFile: "**Name:** Reset\n",
		document.ArchivedGoalDir("auth", "000-old") + "/" + document.GoalFile:                 "# Goal: Old\n\n**Name:** Old\n**Status:** Archived\n",
	}
	for p, c := range files {
		require.NoError(t, s.Write(p, c))
	}
	return s
}

func TestLoad(t *testing.T) {
	p, err := Load(seed(t))
	require.NoError(t, err)

	assert.Equal(t, "Shop", p.Name)
	assert.Equal(t, "Sells things.", p.Description)
	assert.Equal(t, "Everywhere.", p.Vision)
	assert.True(t, p.HasOverview)
	assert.False(t, p.HasRoadmap)

	require.Len(t, p.Components, 2)
	auth := p.Components[0]
	assert.Equal(t, "auth", auth.ID)
	assert.Equal(t, "Authentication", auth.Name)
	assert.Equal(t, 2.0, auth.Version)
	assert.True(t, auth.Listed)
	require.Len(t, auth.Goals, 2)

	billing := p.Components[1]
	assert.False(t, billing.Listed, "billing has goals but no overview")
	assert.Equal(t, "billing", billing.Name)

	login := auth.Goals[0]
	assert.Equal(t, "001-login", login.ID, "the folder name wins over the Goal ID field")
	assert.Equal(t, "auth/001-login", login.Key)
	assert.Equal(t, 1.2, login.Version)
	assert.Equal(t, "Password sign in.", login.Description)
	assert.Equal(t, []string{"002-session", "billing/001-card"}, login.Dependencies)
	require.Len(t, login.History, 3)

	require.Len(t, login.SubGoals, 2)
	assert.Equal(t, "Form", login.SubGoals[0].Name)
	assert.Equal(t, 100, login.SubGoals[0].Progress)
	assert.Equal(t, "Reset", login.SubGoals[1].Name)
	assert.Equal(t, "Planning", login.SubGoals[1].Status)

	require.Len(t, p.Archived, 1)
	assert.Equal(t, "Old", p.Archived[0].Name)

	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "003-broken")
}

func TestLoad_EmptyProject(t *testing.T) {
	p, err := Load(docstore.New(t.TempDir()))
	require.NoError(t, err)
	assert.Equal(t, "Project", p.Name)
	assert.False(t, p.HasOverview)
	assert.Empty(t, p.Components)
	assert.Empty(t, p.Goals())
	assert.Zero(t, p.Percent())
}

func TestPercent(t *testing.T) {
	p, err := Load(seed(t))
	require.NoError(t, err)

	auth, _ := p.Component("auth")
	// Session is completed, so it counts as 100.
	assert.Equal(t, 70, auth.Percent())
	// (40 + 100 + 10) / 3
	assert.Equal(t, 50, p.Percent())
}

func TestGoalDates(t *testing.T) {
	p, err := Load(seed(t))
	require.NoError(t, err)
	auth, _ := p.Component("auth")

	created, ok := auth.Goals[0].Created()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), created)

	// No history falls back to Last Updated.
	created, ok = auth.Goals[1].Created()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), created)

	billing, _ := p.Component("billing")
	_, ok = billing.Goals[0].Created()
	assert.False(t, ok)
	assert.True(t, billing.Goals[0].Blocked())
}

func TestResolve(t *testing.T) {
	p, err := Load(seed(t))
	require.NoError(t, err)
	auth, _ := p.Component("auth")
	login := auth.Goals[0]

	tests := []struct {
		ref  string
		from *Goal
		want string
	}{
		{"002-session", login, "auth/002-session"},
		{"billing/001-card", login, "billing/001-card"},
		{"001-card", login, "billing/001-card"},
		{"001-card", nil, "billing/001-card"},
		{"001-login", nil, "auth/001-login"},
		{"nope", login, ""},
		{"auth/nope", login, ""},
		{"ghost/001-login", login, ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			g, ok := p.Resolve(tt.ref, tt.from)
			if tt.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, g.Key)
		})
	}
}

func TestResolve_AmbiguousID(t *testing.T) {
	s := seed(t)
	require.NoError(t, s.Write(document.GoalPath("billing", "002-session"), "**Name:** Billing session\n**Status:** Planning\n"))
	p, err := Load(s)
	require.NoError(t, err)

	_, ok := p.Resolve("002-session", nil)
	assert.False(t, ok, "an id in two components needs its component")

	billing, _ := p.Component("billing")
	g, ok := p.Resolve("002-session", billing.Goals[0])
	require.True(t, ok)
	assert.Equal(t, "billing/002-session", g.Key)
}

func TestReadName(t *testing.T) {
	assert.Equal(t, "Shop", ReadName(seed(t)))
	assert.Equal(t, "Project", ReadName(docstore.New(t.TempDir())))
}
