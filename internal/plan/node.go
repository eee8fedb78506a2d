package plan

import (
	"strings"

	"github.com/felixgeelhaar/backlog/internal/domain"
)

// Kind discriminates the four node variants.
type Kind string

const (
	KindInitiative Kind = "initiative"
	KindEpic       Kind = "epic"
	KindStory      Kind = "story"
	KindTask       Kind = "task"
)

// Kinds lists every node kind in hierarchy order.
var Kinds = []Kind{KindInitiative, KindEpic, KindStory, KindTask}

// Content keys produced by Node.Content. They are display names, matched
// against the tracker's fields after canonicalization.
const (
	KeySummary            = "Summary"
	KeyDescription        = "Description"
	KeyPriority           = "Priority"
	KeyLabels             = "Labels"
	KeyStoryPoints        = "Story Points"
	KeyAcceptanceCriteria = "Acceptance Criteria"
)

// Node is one item of the backlog tree. The set of implementations is closed:
// Initiative, Epic, Story and Task.
type Node interface {
	Kind() Kind
	// Common returns the attributes shared by every kind.
	Common() Base
	// ParentRef is the declared parent local ID, or "" when unset.
	ParentRef() string
	// Content is the node's generated content keyed by field display name.
	Content() map[string]any

	sealed()
}

// Base holds the attributes shared by every node kind.
type Base struct {
	LocalID     string `json:"local_id" yaml:"local_id" jsonschema:"description=Temporary ID unique within the plan"`
	Summary     string `json:"summary" yaml:"summary"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Common implements Node.
func (b Base) Common() Base { return b }

func (b Base) content() map[string]any {
	c := map[string]any{KeySummary: b.Summary}
	if b.Description != "" {
		c[KeyDescription] = b.Description
	}
	return c
}

// Initiative groups epics. It is never created remotely.
type Initiative struct {
	Base  `yaml:",inline"`
	Epics []Epic `json:"epics,omitempty" yaml:"epics,omitempty"`
}

// Epic groups stories.
type Epic struct {
	Base             `yaml:",inline"`
	Priority         string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Labels           []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	ParentInitiative string   `json:"parent_initiative,omitempty" yaml:"parent_initiative,omitempty" jsonschema:"description=local_id of the enclosing initiative"`
	Stories          []Story  `json:"stories,omitempty" yaml:"stories,omitempty"`
}

// Story is a user-facing increment, optionally estimated.
type Story struct {
	Base               `yaml:",inline"`
	Priority           string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Labels             []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	StoryPoints        *int     `json:"story_points,omitempty" yaml:"story_points,omitempty" jsonschema:"minimum=0"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty" yaml:"acceptance_criteria,omitempty"`
	ParentEpic         string   `json:"parent_epic,omitempty" yaml:"parent_epic,omitempty" jsonschema:"description=local_id of the enclosing epic"`
	Tasks              []Task   `json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// Task is a sub-task of a story.
type Task struct {
	Base        `yaml:",inline"`
	Priority    string   `json:"priority,omitempty" yaml:"priority,omitempty"`
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`
	ParentStory string   `json:"parent_story,omitempty" yaml:"parent_story,omitempty" jsonschema:"description=local_id of the enclosing story"`
}

func (Initiative) Kind() Kind { return KindInitiative }
func (Epic) Kind() Kind       { return KindEpic }
func (Story) Kind() Kind      { return KindStory }
func (Task) Kind() Kind       { return KindTask }

func (Initiative) ParentRef() string { return "" }
func (e Epic) ParentRef() string     { return e.ParentInitiative }
func (s Story) ParentRef() string    { return s.ParentEpic }
func (t Task) ParentRef() string     { return t.ParentStory }

func (Initiative) sealed() {}
func (Epic) sealed()       {}
func (Story) sealed()      {}
func (Task) sealed()       {}

// DefaultPriority returns the priority a node of kind k gets when none is set.
func DefaultPriority(k Kind) domain.Priority {
	switch k {
	case KindEpic:
		return domain.PriorityHigh
	case KindStory, KindTask:
		return domain.PriorityMedium
	default:
		return ""
	}
}

func effectivePriority(k Kind, p string) string {
	if p = strings.TrimSpace(p); p != "" {
		return p
	}
	return string(DefaultPriority(k))
}

// EffectivePriority returns the epic's priority, or its kind default.
func (e Epic) EffectivePriority() string { return effectivePriority(KindEpic, e.Priority) }

// EffectivePriority returns the story's priority, or its kind default.
func (s Story) EffectivePriority() string { return effectivePriority(KindStory, s.Priority) }

// EffectivePriority returns the task's priority, or its kind default.
func (t Task) EffectivePriority() string { return effectivePriority(KindTask, t.Priority) }

func (i Initiative) Content() map[string]any {
	return i.Base.content()
}

func (e Epic) Content() map[string]any {
	c := e.Base.content()
	c[KeyPriority] = e.EffectivePriority()
	if len(e.Labels) > 0 {
		c[KeyLabels] = append([]string(nil), e.Labels...)
	}
	return c
}

func (s Story) Content() map[string]any {
	c := s.Base.content()
	c[KeyPriority] = s.EffectivePriority()
	if len(s.Labels) > 0 {
		c[KeyLabels] = append([]string(nil), s.Labels...)
	}
	if s.StoryPoints != nil {
		c[KeyStoryPoints] = *s.StoryPoints
	}
	if len(s.AcceptanceCriteria) > 0 {
		c[KeyAcceptanceCriteria] = FormatCriteria(s.AcceptanceCriteria)
	}
	return c
}

func (t Task) Content() map[string]any {
	c := t.Base.content()
	c[KeyPriority] = t.EffectivePriority()
	if len(t.Labels) > 0 {
		c[KeyLabels] = append([]string(nil), t.Labels...)
	}
	return c
}

// FormatCriteria renders acceptance criteria as a bullet list, one per line.
func FormatCriteria(criteria []string) string {
	lines := make([]string, 0, len(criteria))
	for _, c := range criteria {
		if c = strings.TrimSpace(c); c != "" {
			lines = append(lines, "- "+c)
		}
	}
	return strings.Join(lines, "\n")
}
