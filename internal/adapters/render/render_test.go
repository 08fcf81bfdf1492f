package render

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/maestro/internal/domain"
)

type failRun struct {
	domain.NopBody
}

func (failRun) Run(context.Context, *domain.Task) (any, error) {
	return nil, errors.New("boom")
}

func diamond(t *testing.T) *domain.Orchestrator {
	t.Helper()
	a := domain.NewTask("A")
	b := domain.NewTask("B", a)
	c := domain.NewTask(`C "quoted"`, a)
	d := domain.NewTask("D", b, c)
	o, err := domain.NewOrchestrator([]*domain.Task{a, b, c, d})
	require.NoError(t, err)
	return o
}

func TestFromDAG(t *testing.T) {
	o := diamond(t)

	g := FromDAG(o.DAG(), o.Order(), nil)
	var names []string
	for _, n := range g.Nodes {
		names = append(names, n.Name)
		assert.Empty(t, n.Outcome)
	}
	assert.Equal(t, []string{"Root", "A", "B", `C "quoted"`, "D"}, names)
	assert.Len(t, g.Edges, 5)
}

func TestWriteDOT(t *testing.T) {
	o := diamond(t)

	var sb strings.Builder
	require.NoError(t, WriteDOT(&sb, "tasks", FromDAG(o.DAG(), o.Order(), nil)))
	out := sb.String()

	assert.True(t, strings.HasPrefix(out, "digraph \"tasks\" {\n"))
	assert.Contains(t, out, `  "Root" -> "A";`)
	assert.Contains(t, out, `  "A" -> "C \"quoted\"";`)
	assert.Contains(t, out, `  "D" [label="D"];`)
	assert.True(t, strings.HasSuffix(out, "}\n"))
}

func TestWriteDOT_Outcomes(t *testing.T) {
	a := domain.NewTask("A")
	a.Body = failRun{}
	b := domain.NewTask("B", a)
	c := domain.NewTask("C")
	o, err := domain.NewOrchestrator([]*domain.Task{a, b, c})
	require.NoError(t, err)

	report, err := o.Run(context.Background())
	require.Error(t, err)

	g := FromDAG(o.DAG(), o.Order(), report)
	outcomes := make(map[string]string)
	for _, n := range g.Nodes {
		outcomes[n.Name] = n.Outcome
	}
	assert.Equal(t, map[string]string{"Root": "completed", "A": "failed", "B": "skipped", "C": "completed"}, outcomes)

	var sb strings.Builder
	require.NoError(t, WriteDOT(&sb, "run", g))
	assert.Contains(t, sb.String(), `"A" [label="A", fillcolor=lightcoral];`)
	assert.Contains(t, sb.String(), `"B" [label="B", fillcolor=lightgrey];`)
	assert.Contains(t, sb.String(), `"C" [label="C", fillcolor=palegreen];`)
}

func TestWriteMermaid(t *testing.T) {
	g := Graph{
		Nodes: []Node{
			{Name: "Root", Outcome: "completed"},
			{Name: `say "hi"`, Outcome: "failed"},
		},
		Edges: []domain.Edge{{From: "Root", To: `say "hi"`}},
	}

	var sb strings.Builder
	require.NoError(t, WriteMermaid(&sb, g))

	want := `flowchart TD
  t0["Root"]
  t1["say #quot;hi#quot;"]
  t0 --> t1
  class t0 completed
  class t1 failed
  classDef completed fill:#98fb98
  classDef failed fill:#f08080
  classDef skipped fill:#d3d3d3
`
	assert.Equal(t, want, sb.String())
}
