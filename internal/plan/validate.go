package plan

import (
	"fmt"
	"strings"

	"github.com/felixgeelhaar/backlog/internal/domain"
	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

// Violation is one problem found by ValidateSelf.
type Violation struct {
	LocalID string
	Kind    Kind
	Field   string
	Message string
}

func (v Violation) String() string {
	if v.LocalID == "" {
		return fmt.Sprintf("%s: %s", v.Field, v.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", v.Kind, v.LocalID, v.Field, v.Message)
}

// PlanValidationError lists every violation found in a plan.
type PlanValidationError struct {
	Violations []Violation
}

func (e *PlanValidationError) Error() string {
	lines := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		lines[i] = "  - " + v.String()
	}
	return fmt.Sprintf("plan has %d problem(s):\n%s", len(e.Violations), strings.Join(lines, "\n"))
}

// Code implements errors.Coder.
func (e *PlanValidationError) Code() berrors.ErrorCode {
	return berrors.ErrCodePlanInvalid
}

type validateOptions struct {
	priorities []domain.Priority
}

// ValidateOption configures ValidateSelf.
type ValidateOption func(*validateOptions)

// WithPriorities restricts priority labels to the given whitelist.
func WithPriorities(allowed ...domain.Priority) ValidateOption {
	return func(o *validateOptions) { o.priorities = allowed }
}

type validator struct {
	opts       validateOptions
	seen       map[string]bool
	violations []Violation
}

func (v *validator) add(n Node, field, format string, args ...any) {
	v.violations = append(v.violations, Violation{
		LocalID: n.Common().LocalID,
		Kind:    n.Kind(),
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	})
}

// ValidateSelf checks every node and reports all violations at once so an
// editor can fix them in one pass.
func (p *Plan) ValidateSelf(opts ...ValidateOption) error {
	v := &validator{seen: make(map[string]bool)}
	for _, opt := range opts {
		opt(&v.opts)
	}

	if err := domain.ValidateProjectKey(p.ProjectKey); err != nil {
		v.violations = append(v.violations, Violation{Field: "project_key", Message: err.Error()})
	}
	if len(p.Initiatives) == 0 {
		v.violations = append(v.violations, Violation{Field: "initiatives", Message: "plan must have at least one initiative"})
	}

	for _, initiative := range p.Initiatives {
		v.common(initiative)
		for _, epic := range initiative.Epics {
			v.common(epic)
			v.priority(epic, epic.Priority)
			v.parent(epic, "parent_initiative", initiative.LocalID)
			for _, story := range epic.Stories {
				v.common(story)
				v.priority(story, story.Priority)
				v.parent(story, "parent_epic", epic.LocalID)
				if story.StoryPoints != nil && *story.StoryPoints < 0 {
					v.add(story, "story_points", "must not be negative, got %d", *story.StoryPoints)
				}
				for i, c := range story.AcceptanceCriteria {
					if strings.TrimSpace(c) == "" {
						v.add(story, "acceptance_criteria", "criterion %d is empty", i+1)
					}
				}
				for _, task := range story.Tasks {
					v.common(task)
					v.priority(task, task.Priority)
					v.parent(task, "parent_story", story.LocalID)
				}
			}
		}
	}

	if len(v.violations) == 0 {
		return nil
	}
	return &PlanValidationError{Violations: v.violations}
}

func (v *validator) common(n Node) {
	b := n.Common()
	if err := domain.ValidateLocalID(b.LocalID); err != nil {
		v.add(n, "local_id", "%v", err)
	} else if v.seen[b.LocalID] {
		v.add(n, "local_id", "duplicate local ID %q", b.LocalID)
	}
	v.seen[b.LocalID] = true

	if strings.TrimSpace(b.Summary) == "" {
		v.add(n, "summary", "summary is required")
	}
}

func (v *validator) priority(n Node, label string) {
	if label == "" || len(v.opts.priorities) == 0 {
		return
	}
	if _, err := domain.NewPriority(label, v.opts.priorities...); err != nil {
		v.add(n, "priority", "%v", err)
	}
}

// parent checks that a declared back-reference names the enclosing node.
func (v *validator) parent(n Node, field, enclosing string) {
	if ref := n.ParentRef(); ref != "" && ref != enclosing {
		v.add(n, field, "references %q but the node is nested under %q", ref, enclosing)
	}
}
