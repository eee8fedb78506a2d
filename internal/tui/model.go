// Package tui is the interactive publish view: a live progress bar fed by
// the orchestrator's progress callback.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ViewType represents the current view being displayed
type ViewType int

// View type constants
const (
	// ViewMain shows the bar and the latest item
	ViewMain ViewType = iota
	// ViewLog lists every completed step
	ViewLog
	// ViewHelp is the help screen
	ViewHelp
)

// maxLogLines bounds the step log kept for the log view.
const maxLogLines = 200

// Model represents the publish view state
type Model struct {
	project string
	planned int

	// Run state
	fraction  float64
	steps     []string
	created   int
	startTime time.Time
	finished  bool
	stopping  bool
	runErr    error

	// UI state
	currentView ViewType
	width       int
	ready       bool

	bar     progress.Model
	spinner spinner.Model
	keys    keyMap
	onStop  func()

	styles Styles
}

// Styles contains lipgloss styles for the TUI
type Styles struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Status   lipgloss.Style
	Error    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Muted    lipgloss.Style
	Border   lipgloss.Style
	Help     lipgloss.Style
	Key      lipgloss.Style
	KeyDesc  lipgloss.Style
}

type keyMap struct {
	Stop key.Binding
	Log  key.Binding
	Help key.Binding
	Back key.Binding
}

var keys = keyMap{
	Stop: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "stop after current item"),
	),
	Log: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "toggle log"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "back"),
	),
}

// NewModel creates the view for publishing planned items into project.
// onStop is called once when the user asks the run to stop.
func NewModel(project string, planned int, onStop func()) Model {
	return Model{
		project:     project,
		planned:     planned,
		startTime:   time.Now(),
		currentView: ViewMain,
		bar:         progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		keys:        keys,
		onStop:      onStop,
		styles:      DefaultStyles(),
	}
}

// DefaultStyles returns the default lipgloss styles
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")). // Purple
			MarginBottom(1),
		Subtitle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		Status: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")), // Cyan
		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196")), // Red
		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("46")), // Green
		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226")), // Yellow
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")), // Gray
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2),
		Help: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1),
		Key: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("63")),
		KeyDesc: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
	}
}

// Init starts the spinner (required by Bubble Tea)
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages and updates the model state (required by Bubble Tea)
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(max(msg.Width-20, 10), 60)
		m.ready = true
		return m, nil

	case StepMsg:
		m.fraction = min(max(msg.Fraction, 0), 1)
		m.steps = append(m.steps, msg.Message)
		if len(m.steps) > maxLogLines {
			m.steps = m.steps[len(m.steps)-maxLogLines:]
		}
		return m, nil

	case DoneMsg:
		m.finished = true
		m.created = msg.Created
		m.runErr = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the TUI (required by Bubble Tea)
func (m Model) View() string {
	if m.finished {
		return m.renderComplete()
	}
	if !m.ready {
		return "Initializing..."
	}

	switch m.currentView {
	case ViewLog:
		return m.renderLog()
	case ViewHelp:
		return m.renderHelp()
	default:
		return m.renderMain()
	}
}

// handleKeyPress handles keyboard input. Stopping never quits the program
// directly: the run finishes its current item and then sends DoneMsg.
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Stop):
		if !m.stopping {
			m.stopping = true
			if m.onStop != nil {
				m.onStop()
			}
		}

	case key.Matches(msg, m.keys.Log):
		m.currentView = toggle(m.currentView, ViewLog)

	case key.Matches(msg, m.keys.Help):
		m.currentView = toggle(m.currentView, ViewHelp)

	case key.Matches(msg, m.keys.Back):
		m.currentView = ViewMain
	}
	return m, nil
}

func toggle(current, target ViewType) ViewType {
	if current == target {
		return ViewMain
	}
	return target
}

// StepMsg reports one completed plan item
type StepMsg struct {
	Message  string
	Fraction float64
}

// DoneMsg ends the run
type DoneMsg struct {
	Created int
	Err     error
}

func (m Model) elapsed() time.Duration {
	return time.Since(m.startTime)
}

func (m Model) statusIcon() string {
	switch {
	case m.runErr != nil:
		return "✗"
	case m.stopping:
		return "■"
	case m.fraction >= 1:
		return "✓"
	}
	return m.spinner.View()
}

func (m Model) statusColor() lipgloss.TerminalColor {
	switch {
	case m.runErr != nil:
		return lipgloss.Color("196") // Red
	case m.stopping:
		return lipgloss.Color("226") // Yellow
	case m.fraction >= 1:
		return lipgloss.Color("46") // Green
	}
	return lipgloss.Color("86") // Cyan
}
