// Package render draws a task graph as Graphviz DOT or Mermaid text.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

// Node is a task in a rendered graph.
type Node struct {
	Name  string
	State domain.TaskState
	// Outcome is set once the task has run: "completed", "failed" or "skipped".
	Outcome string
}

// Graph is a rendering input: nodes in execution order and dependency
// edges pointing from a dependency to its dependent.
type Graph struct {
	Nodes []Node
	Edges []domain.Edge
}

// FromDAG builds a graph from an orchestrator's working graph and order.
// When report is non-nil, nodes carry the outcome of that run.
func FromDAG(dag *domain.DAG, order []*domain.Task, report *domain.RunReport) Graph {
	g := Graph{Edges: dag.Edges()}
	for _, t := range order {
		n := Node{Name: t.Name, State: t.State}
		if report != nil {
			if res, ok := report.Results[t.Name]; ok {
				n.State = res.State
				n.Outcome = outcome(res)
			}
		}
		g.Nodes = append(g.Nodes, n)
	}
	return g
}

func outcome(res domain.TaskResult) string {
	switch {
	case res.Skipped:
		return "skipped"
	case res.State == domain.Failed:
		return "failed"
	case res.State == domain.Completed:
		return "completed"
	default:
		return ""
	}
}

var dotColors = map[string]string{
	"completed": "palegreen",
	"failed":    "lightcoral",
	"skipped":   "lightgrey",
}

// WriteDOT writes g as a Graphviz digraph.
func WriteDOT(w io.Writer, name string, g Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "digraph %s {\n", quoteDOT(name))
	fmt.Fprintln(bw, "  rankdir=TB;")
	fmt.Fprintln(bw, "  node [shape=box, style=\"rounded,filled\", fillcolor=white];")
	for _, n := range g.Nodes {
		attrs := []string{"label=" + quoteDOT(n.Name)}
		if color, ok := dotColors[n.Outcome]; ok {
			attrs = append(attrs, "fillcolor="+color)
		}
		fmt.Fprintf(bw, "  %s [%s];\n", quoteDOT(n.Name), strings.Join(attrs, ", "))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(bw, "  %s -> %s;\n", quoteDOT(e.From), quoteDOT(e.To))
	}
	fmt.Fprintln(bw, "}")
	return bw.Flush()
}

func quoteDOT(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

// WriteMermaid writes g as a Mermaid flowchart. Node ids are positional
// since task names may contain characters Mermaid does not accept.
func WriteMermaid(w io.Writer, g Graph) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "flowchart TD")

	ids := make(map[string]string, len(g.Nodes))
	for i, n := range g.Nodes {
		id := fmt.Sprintf("t%d", i)
		ids[n.Name] = id
		fmt.Fprintf(bw, "  %s[\"%s\"]\n", id, strings.ReplaceAll(n.Name, `"`, "#quot;"))
	}
	for _, e := range g.Edges {
		fmt.Fprintf(bw, "  %s --> %s\n", ids[e.From], ids[e.To])
	}
	for _, n := range g.Nodes {
		if n.Outcome != "" {
			fmt.Fprintf(bw, "  class %s %s\n", ids[n.Name], n.Outcome)
		}
	}
	fmt.Fprintln(bw, "  classDef completed fill:#98fb98")
	fmt.Fprintln(bw, "  classDef failed fill:#f08080")
	fmt.Fprintln(bw, "  classDef skipped fill:#d3d3d3")
	return bw.Flush()
}
