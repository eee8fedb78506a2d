package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/backlog/internal/orchestrator"
)

// renderMain renders the main view showing progress and status
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Publishing backlog"))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Project: ") + m.styles.Subtitle.Render(m.project))
	b.WriteString("\n\n")

	b.WriteString(m.renderProgressBox())
	b.WriteString("\n\n")

	if last := m.lastStep(); last != "" {
		b.WriteString(m.styles.Muted.Render("Last: ") + m.styles.Status.Render(last))
		b.WriteString("\n")
	}
	if m.stopping {
		b.WriteString(m.styles.Warning.Render("Stopping after the current item..."))
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelpLine())
	return b.String()
}

// renderProgressBox renders the progress statistics box
func (m Model) renderProgressBox() string {
	var b strings.Builder

	statusStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(m.statusColor())
	b.WriteString(statusStyle.Render(fmt.Sprintf("%s Progress", m.statusIcon())))
	b.WriteString("\n\n")

	b.WriteString(m.bar.ViewAs(m.fraction))
	b.WriteString("\n\n")

	b.WriteString(m.renderStats())
	return m.styles.Border.Render(b.String())
}

// renderStats renders execution statistics
func (m Model) renderStats() string {
	stats := []string{
		fmt.Sprintf("Steps:     %s", m.styles.Success.Render(fmt.Sprintf("%d/%d", len(m.steps), m.planned))),
		fmt.Sprintf("Elapsed:   %s", m.styles.Muted.Render(formatDuration(m.elapsed()))),
	}
	return strings.Join(stats, "\n")
}

// renderLog renders every completed step
func (m Model) renderLog() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Step log"))
	b.WriteString("\n")

	if len(m.steps) == 0 {
		b.WriteString(m.styles.Muted.Render("No items completed yet"))
		b.WriteString("\n")
	}
	for i, step := range m.steps {
		b.WriteString(m.styles.Success.Render("✓"))
		b.WriteString(" ")
		b.WriteString(m.styles.Muted.Render(fmt.Sprintf("%3d ", i+1)))
		b.WriteString(step)
		b.WriteString("\n")
	}

	b.WriteString(m.renderHelpLine())
	return b.String()
}

// renderHelp renders the help view
func (m Model) renderHelp() string {
	var b strings.Builder

	b.WriteString(m.styles.Title.Render("Help"))
	b.WriteString("\n")

	for _, binding := range []struct{ key, desc string }{
		{m.keys.Stop.Help().Key, m.keys.Stop.Help().Desc},
		{m.keys.Log.Help().Key, m.keys.Log.Help().Desc},
		{m.keys.Help.Help().Key, m.keys.Help.Help().Desc},
		{m.keys.Back.Help().Key, m.keys.Back.Help().Desc},
	} {
		b.WriteString(m.styles.Key.Render(fmt.Sprintf("%-10s", binding.key)))
		b.WriteString(" ")
		b.WriteString(m.styles.KeyDesc.Render(binding.desc))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Items already created stay in the tracker when a run stops."))
	return b.String()
}

// renderComplete renders the completion screen
func (m Model) renderComplete() string {
	var b strings.Builder

	var re *orchestrator.RunError
	switch {
	case errors.As(m.runErr, &re) && re.Stopped():
		b.WriteString(m.styles.Warning.Render("■ Publish stopped"))
	case m.runErr != nil:
		b.WriteString(m.styles.Error.Render("✗ Publish failed"))
	default:
		b.WriteString(m.styles.Success.Render("✓ Publish complete"))
	}
	b.WriteString("\n\n")

	stats := []string{
		fmt.Sprintf("Created:  %d issue(s)", m.created),
		fmt.Sprintf("Steps:    %d/%d", len(m.steps), m.planned),
		fmt.Sprintf("Duration: %s", formatDuration(m.elapsed())),
	}
	b.WriteString(strings.Join(stats, "\n"))
	b.WriteString("\n")
	return b.String()
}

// renderHelpLine renders the help line at the bottom
func (m Model) renderHelpLine() string {
	helpItems := []string{
		m.styles.Key.Render(m.keys.Help.Help().Key) + " help",
		m.styles.Key.Render(m.keys.Log.Help().Key) + " log",
		m.styles.Key.Render(m.keys.Stop.Help().Key) + " stop",
	}
	return m.styles.Help.Render(strings.Join(helpItems, " • "))
}

func (m Model) lastStep() string {
	if len(m.steps) == 0 {
		return ""
	}
	return m.steps[len(m.steps)-1]
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		minutes := int(d.Minutes())
		seconds := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}
