package visualize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/planmcp/internal/project"
	"github.com/dustin/go-humanize/english"
)

// GraphOptions control Graph.
type GraphOptions struct {
	// ComponentID limits the graph to one component's goals plus the goals
	// they depend on or that depend on them. Empty means the whole project.
	ComponentID      string
	ShowCriticalPath bool
}

// GraphNode is one goal.
type GraphNode struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	Component string `json:"component"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	Critical  bool   `json:"critical,omitempty"`
}

// Edge runs from a dependency to the goal that needs it.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Critical bool   `json:"critical,omitempty"`
}

// GraphView is the dependency graph of a set of goals.
type GraphView struct {
	Scope string      `json:"scope"`
	Nodes []GraphNode `json:"nodes"`
	Edges []Edge      `json:"edges"`
	// Order is a topological order, empty when the graph has a cycle.
	Order []string `json:"order"`
	// Cycle lists the goals left over by the topological sort.
	Cycle []string `json:"cycle,omitempty"`
	// CriticalPath is the dependency chain with the most work left.
	CriticalPath []string `json:"criticalPath,omitempty"`
	// RemainingWork sums the open percentage points along the path.
	RemainingWork int      `json:"remainingWork,omitempty"`
	Warnings      []string `json:"warnings"`
}

// Graph resolves every goal's Dependencies field into edges.
func Graph(p *project.Project, opts GraphOptions) (*GraphView, error) {
	view := &GraphView{Scope: "all", Nodes: []GraphNode{}, Edges: []Edge{}, Order: []string{}, Warnings: []string{}}

	type edge struct{ from, to *project.Goal }
	var edges []edge
	for _, g := range p.Goals() {
		for _, ref := range g.Dependencies {
			dep, ok := p.Resolve(ref, g)
			if !ok {
				view.Warnings = append(view.Warnings, fmt.Sprintf("%s depends on unknown goal %q", g.Key, ref))
				continue
			}
			if dep == g {
				view.Warnings = append(view.Warnings, fmt.Sprintf("%s depends on itself", g.Key))
				continue
			}
			edges = append(edges, edge{dep, g})
		}
	}

	include := map[*project.Goal]bool{}
	var nodes []*project.Goal
	add := func(g *project.Goal) {
		if !include[g] {
			include[g] = true
			nodes = append(nodes, g)
		}
	}
	if opts.ComponentID == "" {
		for _, g := range p.Goals() {
			add(g)
		}
	} else {
		c, ok := p.Component(opts.ComponentID)
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownComponent, opts.ComponentID)
		}
		view.Scope = c.ID
		for _, g := range c.Goals {
			add(g)
		}
		for _, e := range edges {
			switch {
			case e.to.Component == c.ID:
				add(e.from)
			case e.from.Component == c.ID:
				add(e.to)
			}
		}
	}

	preds := map[*project.Goal][]*project.Goal{}
	succs := map[*project.Goal][]*project.Goal{}
	seen := map[edge]bool{}
	for _, e := range edges {
		if !include[e.from] || !include[e.to] || seen[e] {
			continue
		}
		seen[e] = true
		preds[e.to] = append(preds[e.to], e.from)
		succs[e.from] = append(succs[e.from], e.to)
	}

	order, cycle := topoSort(nodes, preds, succs)
	critical := map[*project.Goal]bool{}
	criticalEdge := map[edge]bool{}
	if len(cycle) > 0 {
		for _, g := range cycle {
			view.Cycle = append(view.Cycle, g.Key)
		}
		view.Warnings = append(view.Warnings, fmt.Sprintf("Dependency cycle among %s: %s",
			english.Plural(len(cycle), "goal", ""), strings.Join(view.Cycle, ", ")))
	} else {
		for _, g := range order {
			view.Order = append(view.Order, g.Key)
		}
		if opts.ShowCriticalPath {
			path, work := criticalPath(order, preds)
			for i, g := range path {
				critical[g] = true
				view.CriticalPath = append(view.CriticalPath, g.Key)
				if i > 0 {
					criticalEdge[edge{path[i-1], g}] = true
				}
			}
			view.RemainingWork = work
		}
	}
	if opts.ShowCriticalPath && len(cycle) > 0 {
		view.Warnings = append(view.Warnings, "Critical path skipped because of the cycle")
	}

	for _, g := range nodes {
		view.Nodes = append(view.Nodes, GraphNode{
			Key: g.Key, Name: g.Name, Component: g.Component, Status: g.Status,
			Progress: g.Percent(), Critical: critical[g],
		})
	}
	for _, e := range edges {
		if !seen[e] {
			continue
		}
		seen[e] = false
		view.Edges = append(view.Edges, Edge{From: e.from.Key, To: e.to.Key, Critical: criticalEdge[e]})
	}
	sort.SliceStable(view.Edges, func(i, j int) bool {
		if view.Edges[i].From != view.Edges[j].From {
			return view.Edges[i].From < view.Edges[j].From
		}
		return view.Edges[i].To < view.Edges[j].To
	})
	return view, nil
}

// topoSort is Kahn's algorithm with ties broken by input order. Goals it
// cannot place are on or behind a cycle.
func topoSort(nodes []*project.Goal, preds, succs map[*project.Goal][]*project.Goal) (order, rest []*project.Goal) {
	indeg := map[*project.Goal]int{}
	pos := map[*project.Goal]int{}
	for i, g := range nodes {
		indeg[g] = len(preds[g])
		pos[g] = i
	}
	var ready []*project.Goal
	for _, g := range nodes {
		if indeg[g] == 0 {
			ready = append(ready, g)
		}
	}
	for len(ready) > 0 {
		sort.SliceStable(ready, func(i, j int) bool { return pos[ready[i]] < pos[ready[j]] })
		g := ready[0]
		ready = ready[1:]
		order = append(order, g)
		for _, s := range succs[g] {
			indeg[s]--
			if indeg[s] == 0 {
				ready = append(ready, s)
			}
		}
	}
	if len(order) == len(nodes) {
		return order, nil
	}
	placed := map[*project.Goal]bool{}
	for _, g := range order {
		placed[g] = true
	}
	for _, g := range nodes {
		if !placed[g] {
			rest = append(rest, g)
		}
	}
	return order, rest
}

// criticalPath finds the chain whose goals have the most work left, each
// goal weighing 100 minus its progress. A fully completed graph has no
// critical path.
func criticalPath(order []*project.Goal, preds map[*project.Goal][]*project.Goal) ([]*project.Goal, int) {
	dist := map[*project.Goal]int{}
	prev := map[*project.Goal]*project.Goal{}
	var end *project.Goal
	for _, g := range order {
		best := 0
		for _, p := range preds[g] {
			if dist[p] > best {
				best = dist[p]
				prev[g] = p
			}
		}
		dist[g] = best + 100 - g.Percent()
		if end == nil || dist[g] > dist[end] {
			end = g
		}
	}
	if end == nil || dist[end] == 0 {
		return nil, 0
	}
	var path []*project.Goal
	for g := end; g != nil; g = prev[g] {
		path = append([]*project.Goal{g}, path...)
	}
	// Completed goals at the head of the chain add no work.
	for len(path) > 1 && path[0].Percent() == 100 {
		path = path[1:]
	}
	return path, dist[end]
}

// RenderGraph draws the graph as a mermaid flowchart, an ascii list or
// json.
func RenderGraph(v *GraphView, f Format) (string, error) {
	switch f {
	case FormatJSON:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding graph: %w", err)
		}
		return string(b), nil
	case FormatASCII:
		return graphASCII(v), nil
	case FormatMermaid, "":
		return graphMermaid(v), nil
	}
	return "", fmt.Errorf("%w %q for a graph", ErrUnknownFormat, f)
}

func graphMermaid(v *GraphView) string {
	var b strings.Builder
	b.WriteString("```mermaid\ngraph TD\n")

	var comps []string
	byComp := map[string][]GraphNode{}
	for _, n := range v.Nodes {
		if _, ok := byComp[n.Component]; !ok {
			comps = append(comps, n.Component)
		}
		byComp[n.Component] = append(byComp[n.Component], n)
	}
	var critical []string
	for _, c := range comps {
		fmt.Fprintf(&b, "    subgraph %s[\"%s\"]\n", "c_"+nonIdent.ReplaceAllString(c, "_"), mermaidText(c))
		for _, n := range byComp[c] {
			fmt.Fprintf(&b, "        %s[\"%s<br/>%s %d%%\"]\n", mermaidID(n.Key), mermaidText(n.Name), mermaidText(n.Status), n.Progress)
			if n.Critical {
				critical = append(critical, mermaidID(n.Key))
			}
		}
		b.WriteString("    end\n")
	}
	for _, e := range v.Edges {
		arrow := "-->"
		if e.Critical {
			arrow = "==>"
		}
		fmt.Fprintf(&b, "    %s %s %s\n", mermaidID(e.From), arrow, mermaidID(e.To))
	}
	if len(critical) > 0 {
		b.WriteString("    classDef critical stroke:#d33,stroke-width:3px\n")
		fmt.Fprintf(&b, "    class %s critical\n", strings.Join(critical, ","))
	}
	b.WriteString("```\n")
	return b.String()
}

func graphASCII(v *GraphView) string {
	names := map[string]string{}
	for _, n := range v.Nodes {
		names[n.Key] = n.Name
	}
	needs := map[string][]string{}
	for _, e := range v.Edges {
		needs[e.To] = append(needs[e.To], fmt.Sprintf("%s (%s)", names[e.From], e.From))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dependency graph (%s): %s, %s\n\n",
		v.Scope, english.Plural(len(v.Nodes), "goal", ""), english.Plural(len(v.Edges), "dependency", "dependencies"))
	for _, n := range v.Nodes {
		mark := ""
		if n.Critical {
			mark = " *"
		}
		fmt.Fprintf(&b, "%s (%s) [%s %d%%]%s\n", n.Name, n.Key, n.Status, n.Progress, mark)
		for i, d := range needs[n.Key] {
			branch := "├── "
			if i == len(needs[n.Key])-1 {
				branch = "└── "
			}
			fmt.Fprintf(&b, "    %sneeds %s\n", branch, d)
		}
	}
	if len(v.CriticalPath) > 0 {
		fmt.Fprintf(&b, "\nCritical path (*): %s, %d%% of work left\n", strings.Join(v.CriticalPath, " -> "), v.RemainingWork)
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "\nWarning: %s", w)
	}
	if len(v.Warnings) > 0 {
		b.WriteString("\n")
	}
	return b.String()
}
