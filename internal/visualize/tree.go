package visualize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/HendryAvila/planmcp/internal/document"
	"github.com/HendryAvila/planmcp/internal/project"
)

// Tree depths below the project node.
const (
	DepthComponents = 1
	DepthGoals      = 2
	DepthSubGoals   = 3

	// DefaultTreeDepth shows every level.
	DefaultTreeDepth = 7
)

// Goal status filters. Any other value matches the status exactly, ignoring
// case.
const (
	FilterAll       = "all"
	FilterActive    = "active"
	FilterCompleted = "completed"
)

// Node kinds.
const (
	KindProject   = "project"
	KindComponent = "component"
	KindGoal      = "goal"
	KindSubGoal   = "sub-goal"
)

// TreeOptions control Tree.
type TreeOptions struct {
	// MaxDepth of 0 or less shows every level.
	MaxDepth     int
	ShowProgress bool
	FilterStatus string
}

// Node is one entry of the hierarchy tree.
type Node struct {
	Kind     string  `json:"kind"`
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Status   string  `json:"status,omitempty"`
	Progress int     `json:"progress"`
	Children []*Node `json:"children,omitempty"`
}

// Tree builds the project hierarchy. With a status filter, components
// without a matching goal are left out.
func Tree(p *project.Project, opts TreeOptions) *Node {
	depth := opts.MaxDepth
	if depth <= 0 {
		depth = DefaultTreeDepth
	}
	filter := strings.ToLower(strings.TrimSpace(opts.FilterStatus))
	if filter == "" {
		filter = FilterAll
	}

	root := &Node{Kind: KindProject, Name: p.Name, Progress: p.Percent()}
	if depth < DepthComponents {
		return root
	}
	for _, c := range p.Components {
		cn := &Node{Kind: KindComponent, ID: c.ID, Name: c.Name, Status: c.Status, Progress: c.Percent()}
		matched := 0
		for _, g := range c.Goals {
			if !statusMatches(g, filter) {
				continue
			}
			matched++
			if depth < DepthGoals {
				continue
			}
			gn := &Node{Kind: KindGoal, ID: g.ID, Name: g.Name, Status: g.Status, Progress: g.Percent()}
			if depth >= DepthSubGoals {
				for _, sg := range g.SubGoals {
					gn.Children = append(gn.Children, &Node{
						Kind: KindSubGoal, ID: sg.ID, Name: sg.Name, Status: sg.Status, Progress: subGoalPercent(sg),
					})
				}
			}
			cn.Children = append(cn.Children, gn)
		}
		if filter != FilterAll && matched == 0 {
			continue
		}
		root.Children = append(root.Children, cn)
	}
	return root
}

func statusMatches(g *project.Goal, filter string) bool {
	switch filter {
	case FilterAll:
		return true
	case FilterActive:
		return !g.Completed()
	case FilterCompleted:
		return g.Completed()
	}
	return strings.EqualFold(strings.TrimSpace(g.Status), filter)
}

func subGoalPercent(sg *document.SubGoal) int {
	if document.CompletedStatus(sg.Status) {
		return 100
	}
	return sg.Progress
}

// RenderTree draws the tree as ascii, markdown or json.
func RenderTree(root *Node, f Format, showProgress bool) (string, error) {
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(root, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding tree: %w", err)
		}
		return string(b), nil
	case FormatMarkdown:
		var b strings.Builder
		writeMarkdownNode(&b, root, 0, showProgress)
		return b.String(), nil
	case FormatASCII, "":
		var b strings.Builder
		b.WriteString(nodeLabel(root, showProgress) + "\n")
		writeASCIIChildren(&b, root.Children, "", showProgress)
		return b.String(), nil
	}
	return "", fmt.Errorf("%w %q for a tree", ErrUnknownFormat, f)
}

func writeASCIIChildren(b *strings.Builder, nodes []*Node, prefix string, showProgress bool) {
	for i, n := range nodes {
		branch, indent := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, indent = "└── ", "    "
		}
		b.WriteString(prefix + branch + nodeLabel(n, showProgress) + "\n")
		writeASCIIChildren(b, n.Children, prefix+indent, showProgress)
	}
}

func writeMarkdownNode(b *strings.Builder, n *Node, level int, showProgress bool) {
	label := nodeLabel(n, showProgress)
	if n.Kind == KindProject || n.Kind == KindComponent {
		label = "**" + n.Name + "**" + strings.TrimPrefix(label, n.Name)
	}
	b.WriteString(strings.Repeat("  ", level) + "- " + label + "\n")
	for _, c := range n.Children {
		writeMarkdownNode(b, c, level+1, showProgress)
	}
}

func nodeLabel(n *Node, showProgress bool) string {
	label := n.Name
	if n.Status != "" {
		label += " [" + n.Status + "]"
	}
	if showProgress {
		label += fmt.Sprintf(" %d%%", n.Progress)
	}
	return label
}
