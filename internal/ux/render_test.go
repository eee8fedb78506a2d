package ux

import (
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/backlog/internal/orchestrator"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/schema"
)

func samplePlan() *plan.Plan {
	points := 3
	return plan.New("demo", plan.Initiative{
		Base: plan.Base{LocalID: "I1", Summary: "Checkout revamp"},
		Epics: []plan.Epic{{
			Base:     plan.Base{LocalID: "E1", Summary: "Payments"},
			Priority: "High",
			Labels:   []string{"payments"},
			Stories: []plan.Story{{
				Base:        plan.Base{LocalID: "S1", Summary: "Pay by card"},
				StoryPoints: &points,
				Tasks: []plan.Task{{
					Base: plan.Base{LocalID: "T1", Summary: "Wire PSP sandbox"},
				}},
			}},
		}},
	})
}

func TestPlanViewRendersTree(t *testing.T) {
	out := PlanView{Plan: samplePlan()}.RenderText(PlainTheme())

	assert.Contains(t, out, "Plan for DEMO")
	assert.Contains(t, out, "1 initiative(s), 1 epic(s), 1 story(ies), 1 task(s)")
	assert.Contains(t, out, "[epic] E1 Payments (High, labels: payments)")
	assert.Contains(t, out, "[story] S1 Pay by card (Medium, 3 pts)")
	assert.Contains(t, out, "[task] T1 Wire PSP sandbox")

	lines := strings.Split(out, "\n")
	indexOf := func(s string) int {
		for i, l := range lines {
			if strings.Contains(l, s) {
				return i
			}
		}
		return -1
	}
	assert.Less(t, indexOf("I1"), indexOf("E1"))
	assert.Less(t, indexOf("E1"), indexOf("S1"))
	assert.Less(t, indexOf("S1"), indexOf("T1"))
}

func TestPlanViewHighlightsUrgentPriorities(t *testing.T) {
	th := PlainTheme()
	th.Warning = lipgloss.NewStyle().Transform(func(s string) string { return "!" + s })

	tests := []struct {
		name     string
		priority string
		want     string
	}{
		{name: "highest", priority: "Highest", want: "(!Highest"},
		{name: "high", priority: "high", want: "(!high"},
		{name: "medium", priority: "Medium", want: "(Medium"},
		{name: "low", priority: "Low", want: "(Low"},
		{name: "custom label", priority: "Blocker", want: "(Blocker"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := samplePlan()
			p.Initiatives[0].Epics[0].Priority = tt.priority
			out := PlanView{Plan: p}.RenderText(th)
			assert.Contains(t, out, "[epic] E1 Payments "+tt.want)
		})
	}
}

func TestPlanViewShowsKeys(t *testing.T) {
	keys := map[string]string{"I1": orchestrator.InitiativePlaceholder, "E1": "DEMO-1"}
	out := PlanView{Plan: samplePlan(), Keys: keys}.RenderText(PlainTheme())

	assert.Contains(t, out, "→ DEMO-1")
	assert.NotContains(t, out, orchestrator.InitiativePlaceholder)
}

func TestFieldsView(t *testing.T) {
	set := &schema.FieldSet{
		ProjectKey: "DEMO",
		IssueType:  "Story",
		Fields: map[string]schema.FieldSpec{
			"summary": {RemoteID: "summary", Name: "Summary", Required: true, Schema: schema.Descriptor{Type: "string"}},
			"labels":  {RemoteID: "labels", Name: "Labels", Schema: schema.Descriptor{Type: "array", Items: "string"}},
			"priority": {
				RemoteID: "priority", Name: "Priority",
				Schema:        schema.Descriptor{Type: "priority"},
				AllowedValues: []any{map[string]any{"name": "High"}, map[string]any{"name": "Low"}},
			},
		},
	}

	out := FieldsView{Sets: []*schema.FieldSet{set}}.RenderText(PlainTheme())

	assert.Contains(t, out, "Story (DEMO)")
	assert.Contains(t, out, "Allowed values")
	assert.Contains(t, out, "array of string")
	assert.Contains(t, out, "High, Low")
}

func TestAllowedSummaryTruncates(t *testing.T) {
	values := []any{"a", "b", "c", "d", "e", "f", "g"}
	assert.Equal(t, "a, b, c, d, e (+2 more)", allowedSummary(values))
	assert.Equal(t, "", allowedSummary(nil))
}

func TestReportView(t *testing.T) {
	p := samplePlan()
	ids := orchestrator.IdentifierMap{"I1": orchestrator.InitiativePlaceholder, "E1": "DEMO-1"}
	runErr := &orchestrator.RunError{RunID: "r1", LocalID: "S1", Kind: plan.KindStory, Partial: ids, Err: errors.New("boom")}

	r := orchestrator.NewReport(p, "r1", ids, runErr)
	out := ReportView{Report: r}.RenderText(PlainTheme())

	assert.Contains(t, out, "Run r1 ✗ failed")
	assert.Contains(t, out, "Project DEMO: 1 of 4 item(s) created")
	assert.Contains(t, out, "DEMO-1")
	assert.Contains(t, out, "grouped")
	assert.Contains(t, out, "Halted at S1")
	assert.Contains(t, out, "boom")
}
