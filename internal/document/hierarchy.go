package document

import (
	"fmt"
	"path"
	"strings"
)

// Paths in the fixed planning hierarchy. All are slash-separated and
// relative to the project root.
const (
	PlanningDir         = "01-planning"
	GoalsDir            = "02-goals-and-roadmap"
	ArchiveDir          = "08-archive/goals"
	ProjectOverviewPath = PlanningDir + "/PROJECT-OVERVIEW.md"
	RoadmapPath         = GoalsDir + "/ROADMAP.md"
	ComponentsDir       = GoalsDir + "/components"

	ComponentFile = "OVERVIEW.md"
	GoalFile      = "GOAL-STATUS.md"
	SubGoalFile   = "SUB-GOAL-STATUS.md"
	MajorGoalsDir = "major-goals"
	SubGoalsDir   = "sub-goals"

	// ComponentsGlob matches every component overview.
	ComponentsGlob = ComponentsDir + "/*/" + ComponentFile
	// AllGoalsGlob matches every major-goal status document.
	AllGoalsGlob = ComponentsDir + "/*/" + MajorGoalsDir + "/*/" + GoalFile
	// ArchivedGoalsGlob matches the status documents of archived goals.
	ArchivedGoalsGlob = ArchiveDir + "/*/" + GoalFile
)

// ComponentDir returns the folder of a component.
func ComponentDir(componentID string) string {
	return path.Join(ComponentsDir, componentID)
}

// ComponentPath returns the overview path of a component.
func ComponentPath(componentID string) string {
	return path.Join(ComponentDir(componentID), ComponentFile)
}

// GoalDir returns the folder of a major goal.
func GoalDir(componentID, goalID string) string {
	return path.Join(ComponentDir(componentID), MajorGoalsDir, goalID)
}

// GoalPath returns the status document path of a major goal.
func GoalPath(componentID, goalID string) string {
	return path.Join(GoalDir(componentID, goalID), GoalFile)
}

// GoalsGlob matches the goal status documents under a component folder.
func GoalsGlob(componentDir string) string {
	return path.Join(componentDir, MajorGoalsDir, "*", GoalFile)
}

// SubGoalsGlob matches the sub-goal status documents under a goal folder.
func SubGoalsGlob(goalDir string) string {
	return path.Join(goalDir, SubGoalsDir, "*", SubGoalFile)
}

// ArchivedGoalDir returns where an archived goal folder is moved to.
func ArchivedGoalDir(componentID, goalID string) string {
	return path.Join(ArchiveDir, componentID+"--"+goalID)
}

// TypeFromPath infers the document type from its location in the
// hierarchy. ok is false for paths outside it.
func TypeFromPath(p string) (Type, bool) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	switch base := path.Base(p); {
	case p == ProjectOverviewPath || base == "PROJECT-OVERVIEW.md":
		return TypeProjectOverview, true
	case p == RoadmapPath || base == "ROADMAP.md":
		return TypeRoadmap, true
	case base == SubGoalFile:
		return TypeSubGoal, true
	case base == GoalFile:
		return TypeMajorGoal, true
	case base == ComponentFile && strings.Contains(p, "components/"):
		return TypeComponent, true
	}
	return "", false
}

// ComponentIDFromPath extracts the component id from any path below a
// component folder.
func ComponentIDFromPath(p string) (string, error) {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))
	rest, ok := strings.CutPrefix(p, ComponentsDir+"/")
	if !ok {
		return "", fmt.Errorf("path %q is not inside %s", p, ComponentsDir)
	}
	id, _, _ := strings.Cut(rest, "/")
	return id, nil
}

// Slugify converts a free-form name into a folder-safe slug.
// Example: "Auth Service (v2)" → "auth-service-v2".
func Slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	prevHyphen := false
	for _, r := range s {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			prevHyphen = false
		case r == ' ' || r == '_' || r == '-':
			if !prevHyphen {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > 50 {
		slug = strings.TrimRight(slug[:50], "-")
	}
	if slug == "" {
		return "unnamed"
	}
	return slug
}

// IsSlug reports whether s is usable as a folder id: lowercase letters and
// digits in hyphen-separated runs. It rejects "", "." and "..".
func IsSlug(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') && r != '-' {
			return false
		}
	}
	return true
}
