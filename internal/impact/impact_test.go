package impact

import (
	"fmt"
	"testing"

	"github.com/HendryAvila/planmcp/internal/docstore"
	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/version"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, files map[string]string) *docstore.FileStore {
	t.Helper()
	s := docstore.New(t.TempDir())
	for p, c := range files {
		require.NoError(t, s.Write(p, c))
	}
	return s
}

func versioned(v string) string {
	return "---\nversion: " + v + "\n---\n# Doc\n"
}

func TestAnalyze_ProjectOverviewMarksEveryComponentHigh(t *testing.T) {
	s := seed(t, map[string]string{
		document.ProjectOverviewPath:      versioned("1.0"),
		document.ComponentPath("auth"):    versioned("1.2"),
		document.ComponentPath("billing"): versioned("2.0"),
		document.ComponentPath("search"):  "# Search\n",
		document.RoadmapPath:              versioned("1.1"),
	})

	res, err := Analyze(s, Request{
		DocumentType: document.TypeProjectOverview,
		ChangedPath:  document.ProjectOverviewPath,
		ChangeType:   version.Major,
	})
	require.NoError(t, err)

	var components int
	for _, d := range res.ImpactedDocuments {
		assert.Equal(t, LevelHigh, d.ImpactLevel, d.DocumentPath)
		assert.True(t, d.RequiresReview, d.DocumentPath)
		if d.DocumentType == document.TypeComponent {
			components++
			assert.Equal(t, "Project vision or scope changed", d.ImpactReason)
		}
	}
	assert.Equal(t, 3, components)

	want := Summary{TotalAffected: 4, HighImpactCount: 4, RequiresReviewCount: 4}
	if diff := cmp.Diff(want, res.Summary); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, res.Warnings)
}

func TestAnalyze_ReadsCurrentVersions(t *testing.T) {
	s := seed(t, map[string]string{
		document.ComponentPath("auth"):   versioned("1.2"),
		document.ComponentPath("search"): "# Search\n",
	})
	res, err := Analyze(s, Request{DocumentType: document.TypeProjectOverview})
	require.NoError(t, err)

	got := map[string]float64{}
	for _, d := range res.ImpactedDocuments {
		got[d.DocumentPath] = d.CurrentVersion
	}
	assert.Equal(t, map[string]float64{
		document.ComponentPath("auth"):   1.2,
		document.ComponentPath("search"): 1.0,
	}, got)
}

func TestAnalyze_ComponentMarksItsGoalsMedium(t *testing.T) {
	s := seed(t, map[string]string{
		document.ComponentPath("auth"):           versioned("1.0"),
		document.GoalPath("auth", "001-login"):   versioned("1.0"),
		document.GoalPath("auth", "002-sso"):     versioned("1.3"),
		document.GoalPath("billing", "001-card"): versioned("1.0"),
	})

	res, err := Analyze(s, Request{
		DocumentType: document.TypeComponent,
		ChangedPath:  document.ComponentPath("auth"),
		ChangeType:   version.Minor,
	})
	require.NoError(t, err)
	require.Len(t, res.ImpactedDocuments, 2)
	for _, d := range res.ImpactedDocuments {
		assert.Equal(t, document.TypeMajorGoal, d.DocumentType)
		assert.Equal(t, LevelMedium, d.ImpactLevel)
		assert.True(t, d.RequiresReview)
		assert.Equal(t, "Parent component changed", d.ImpactReason)
	}
	assert.Equal(t, []string{"Manually review 2 document(s) flagged for review"}, res.Recommendations)
}

func TestAnalyze_MajorGoalMarksSubGoalsLow(t *testing.T) {
	goal := document.GoalPath("auth", "001-login")
	goalDir := document.GoalDir("auth", "001-login")
	s := seed(t, map[string]string{
		goal: versioned("1.0"),
		goalDir + "/sub-goals/01-form/SUB-GOAL-STATUS.md":  versioned("1.0"),
		goalDir + "/sub-goals/02-token/SUB-GOAL-STATUS.md": versioned("1.0"),
	})

	res, err := Analyze(s, Request{DocumentType: document.TypeMajorGoal, ChangedPath: goal})
	require.NoError(t, err)
	require.Len(t, res.ImpactedDocuments, 2)
	for _, d := range res.ImpactedDocuments {
		assert.Equal(t, LevelLow, d.ImpactLevel)
		assert.False(t, d.RequiresReview)
	}
	assert.Empty(t, res.Recommendations)
}

func TestAnalyze_RoadmapWarnsNotImplemented(t *testing.T) {
	s := seed(t, map[string]string{document.RoadmapPath: versioned("1.0")})
	res, err := Analyze(s, Request{DocumentType: document.TypeRoadmap, ChangedPath: document.RoadmapPath})
	require.NoError(t, err)
	assert.Empty(t, res.ImpactedDocuments)
	assert.Contains(t, res.Warnings, RoadmapNotImplemented)
}

func TestAnalyze_MissingChangedDocumentWarns(t *testing.T) {
	s := seed(t, nil)
	res, err := Analyze(s, Request{DocumentType: document.TypeComponent, ChangedPath: document.ComponentPath("ghost")})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "not found")
}

func TestAnalyze_UnknownType(t *testing.T) {
	_, err := Analyze(seed(t, nil), Request{DocumentType: "retrospective"})
	assert.Error(t, err)
}

func TestRecommend(t *testing.T) {
	tests := []struct {
		name string
		s    Summary
		ct   version.ChangeType
		want int
	}{
		{"nothing affected", Summary{}, version.Major, 0},
		{"high impact suggests backup", Summary{TotalAffected: 1, HighImpactCount: 1}, version.Patch, 1},
		{"large major change suggests split", Summary{TotalAffected: 6}, version.Major, 1},
		{"large minor change does not split", Summary{TotalAffected: 6}, version.Minor, 0},
		{"exactly five does not split", Summary{TotalAffected: 5}, version.Major, 0},
		{"all three", Summary{TotalAffected: 6, HighImpactCount: 6, RequiresReviewCount: 6}, version.Major, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, recommend(tt.s, tt.ct), tt.want)
		})
	}
}

func TestAnalyze_SplitRecommendationForLargeMajorChange(t *testing.T) {
	files := map[string]string{}
	for i := 0; i < 6; i++ {
		files[document.ComponentPath(fmt.Sprintf("c%d", i))] = versioned("1.0")
	}
	res, err := Analyze(seed(t, files), Request{DocumentType: document.TypeProjectOverview, ChangeType: version.Major})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Summary.TotalAffected)
	assert.Contains(t, res.Recommendations, "Consider splitting this major change into smaller updates: 6 documents affected")
}

func TestDocumentTypeFromPath(t *testing.T) {
	got, err := DocumentTypeFromPath(document.GoalPath("auth", "001-login"))
	require.NoError(t, err)
	assert.Equal(t, document.TypeMajorGoal, got)

	_, err = DocumentTypeFromPath("notes/random.md")
	assert.Error(t, err)
}
