package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/felixgeelhaar/backlog/internal/domain"
	"github.com/felixgeelhaar/backlog/internal/orchestrator"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/schema"
)

// Theme holds the styles used by text renderers.
type Theme struct {
	Title   lipgloss.Style
	Kind    lipgloss.Style
	ID      lipgloss.Style
	Key     lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Header  lipgloss.Style
	Border  lipgloss.Style
}

// DefaultTheme returns the colored theme.
func DefaultTheme() Theme {
	return Theme{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		Kind:    lipgloss.NewStyle().Foreground(lipgloss.Color("99")),
		ID:      lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
		Key:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Success: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46")),
		Warning: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("226")),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Border:  lipgloss.NewStyle().Foreground(lipgloss.Color("63")),
	}
}

// PlainTheme renders without any styling.
func PlainTheme() Theme {
	plain := lipgloss.NewStyle()
	return Theme{
		Title: plain, Kind: plain, ID: plain, Key: plain, Muted: plain,
		Success: plain, Warning: plain, Error: plain,
		Header: plain.Padding(0, 1), Border: plain,
	}
}

// TextRenderer is implemented by values with a human-readable form.
type TextRenderer interface {
	RenderText(th Theme) string
}

// PlanView renders a plan as a tree. Keys, when set, annotates nodes that
// already exist in the tracker.
type PlanView struct {
	Plan *plan.Plan
	Keys map[string]string
}

// RenderText implements TextRenderer.
func (v PlanView) RenderText(th Theme) string {
	var b strings.Builder
	b.WriteString(th.Title.Render("Plan for " + v.Plan.ProjectKey))
	b.WriteString("\n")
	b.WriteString(th.Muted.Render(PlanSummary(v.Plan)))
	b.WriteString("\n\n")

	branch := func(n plan.Node) *tree.Tree {
		return tree.Root(v.line(th, n)).
			Enumerator(tree.RoundedEnumerator).
			EnumeratorStyle(th.Muted)
	}
	root := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(th.Muted)
	for _, initiative := range v.Plan.Initiatives {
		it := branch(initiative)
		for _, epic := range initiative.Epics {
			et := branch(epic)
			for _, story := range epic.Stories {
				st := branch(story)
				for _, task := range story.Tasks {
					st.Child(v.line(th, task))
				}
				et.Child(st)
			}
			it.Child(et)
		}
		root.Child(it)
	}
	b.WriteString(root.String())
	b.WriteString("\n")
	return b.String()
}

func (v PlanView) line(th Theme, n plan.Node) string {
	base := n.Common()
	parts := []string{
		th.Kind.Render("[" + string(n.Kind()) + "]"),
		th.ID.Render(base.LocalID),
		base.Summary,
	}

	var details []string
	switch node := n.(type) {
	case plan.Epic:
		details = nodeDetails(th, node.EffectivePriority(), node.Labels, nil)
	case plan.Story:
		details = nodeDetails(th, node.EffectivePriority(), node.Labels, node.StoryPoints)
	case plan.Task:
		details = nodeDetails(th, node.EffectivePriority(), node.Labels, nil)
	}
	if len(details) > 0 {
		parts = append(parts, th.Muted.Render("("+strings.Join(details, ", ")+")"))
	}
	if key := v.Keys[base.LocalID]; key != "" && key != orchestrator.InitiativePlaceholder {
		parts = append(parts, th.Key.Render("→ "+key))
	}
	return strings.Join(parts, " ")
}

// nodeDetails highlights priorities above Medium.
func nodeDetails(th Theme, priority string, labels []string, points *int) []string {
	shown := priority
	if domain.Priority(priority).IsHigherThan(domain.PriorityMedium) {
		shown = th.Warning.Render(priority)
	}
	details := []string{shown}
	if points != nil {
		details = append(details, fmt.Sprintf("%d pts", *points))
	}
	if len(labels) > 0 {
		details = append(details, "labels: "+strings.Join(labels, ", "))
	}
	return details
}

// PlanSummary counts a plan's nodes per kind, e.g.
// "1 initiative(s), 2 epic(s), 5 story(ies), 0 task(s)".
func PlanSummary(p *plan.Plan) string {
	counts := p.Counts()
	return fmt.Sprintf("%d initiative(s), %d epic(s), %d story(ies), %d task(s)",
		counts[plan.KindInitiative], counts[plan.KindEpic], counts[plan.KindStory], counts[plan.KindTask])
}

// FieldsView renders resolved field schemas as one table per issue type.
type FieldsView struct {
	Sets []*schema.FieldSet
}

// maxAllowedShown caps the allowed values listed in a table cell.
const maxAllowedShown = 5

// RenderText implements TextRenderer.
func (v FieldsView) RenderText(th Theme) string {
	var sections []string
	for _, set := range v.Sets {
		var b strings.Builder
		b.WriteString(th.Title.Render(fmt.Sprintf("%s (%s)", set.IssueType, set.ProjectKey)))
		b.WriteString("\n")

		t := table.New().
			Border(lipgloss.RoundedBorder()).
			BorderStyle(th.Border).
			StyleFunc(func(row, _ int) lipgloss.Style {
				if row == table.HeaderRow {
					return th.Header
				}
				return lipgloss.NewStyle().Padding(0, 1)
			}).
			Headers("Field", "ID", "Type", "Required", "Allowed values")
		for _, name := range set.Names() {
			f := set.Fields[name]
			t.Row(f.Name, f.RemoteID, describeType(f.Schema), requiredMark(f.Required), allowedSummary(f.AllowedValues))
		}
		b.WriteString(t.String())
		sections = append(sections, b.String())
	}
	return strings.Join(sections, "\n\n") + "\n"
}

func describeType(d schema.Descriptor) string {
	switch {
	case d.Type == "":
		return "any"
	case d.Items != "":
		return d.Type + " of " + d.Items
	}
	return d.Type
}

func requiredMark(required bool) string {
	if required {
		return "yes"
	}
	return ""
}

func allowedSummary(values []any) string {
	var labels []string
	for _, v := range values {
		switch tv := v.(type) {
		case string:
			labels = append(labels, tv)
		case map[string]any:
			for _, k := range []string{"value", "name", "id"} {
				if s, ok := tv[k].(string); ok && s != "" {
					labels = append(labels, s)
					break
				}
			}
		}
	}
	if len(labels) <= maxAllowedShown {
		return strings.Join(labels, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(labels[:maxAllowedShown], ", "), len(labels)-maxAllowedShown)
}

// ReportView renders a publish run report.
type ReportView struct {
	Report orchestrator.Report
}

// RenderText implements TextRenderer.
func (v ReportView) RenderText(th Theme) string {
	r := v.Report
	var b strings.Builder

	var outcome string
	switch r.Outcome {
	case orchestrator.StateDone.String():
		outcome = th.Success.Render("✓ " + r.Outcome)
	case "stopped":
		outcome = th.Warning.Render("■ " + r.Outcome)
	default:
		outcome = th.Error.Render("✗ " + r.Outcome)
	}
	b.WriteString(th.Title.Render("Run "+r.RunID) + " " + outcome)
	b.WriteString("\n")

	created := 0
	for _, item := range r.Items {
		if item.Key != "" && item.Key != orchestrator.InitiativePlaceholder {
			created++
		}
	}
	b.WriteString(th.Muted.Render(fmt.Sprintf("Project %s: %d of %d item(s) created", r.Project, created, len(r.Items))))
	b.WriteString("\n\n")

	for _, item := range r.Items {
		key, style := "-", th.Muted
		switch {
		case item.Key == orchestrator.InitiativePlaceholder:
			key = "grouped"
		case item.Key != "":
			key, style = item.Key, th.Key
		}
		fmt.Fprintf(&b, "  %s %s %s %s\n",
			style.Render(fmt.Sprintf("%-10s", key)),
			th.Kind.Render(fmt.Sprintf("%-10s", item.Kind)),
			th.ID.Render(item.LocalID),
			item.Summary)
	}

	if f := r.Failure; f != nil {
		b.WriteString("\n")
		where := f.LocalID
		if where == "" {
			where = "before the first item"
		}
		b.WriteString(th.Error.Render(fmt.Sprintf("Halted at %s", where)))
		if f.Code != "" {
			b.WriteString(" " + th.Muted.Render("["+f.Code+"]"))
		}
		b.WriteString("\n  " + f.Message + "\n")
	}
	return b.String()
}
