package orchestrator

import (
	"errors"
	"time"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/plan"
)

// Report summarizes a run for humans and for follow-up cleanup.
type Report struct {
	RunID       string      `yaml:"run_id" json:"run_id"`
	Project     string      `yaml:"project" json:"project"`
	Fingerprint string      `yaml:"plan_fingerprint,omitempty" json:"plan_fingerprint,omitempty"`
	Outcome     string      `yaml:"outcome" json:"outcome"`
	FinishedAt  time.Time   `yaml:"finished_at" json:"finished_at"`
	Items       []ItemEntry `yaml:"items" json:"items"`
	Failure     *Failure    `yaml:"failure,omitempty" json:"failure,omitempty"`
}

// ItemEntry is one plan node and, when created, its remote key.
type ItemEntry struct {
	LocalID string    `yaml:"local_id" json:"local_id"`
	Kind    plan.Kind `yaml:"kind" json:"kind"`
	Summary string    `yaml:"summary" json:"summary"`
	Key     string    `yaml:"key,omitempty" json:"key,omitempty"`
}

// Failure describes why a run halted.
type Failure struct {
	LocalID string `yaml:"local_id,omitempty" json:"local_id,omitempty"`
	Kind    string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Code    string `yaml:"code,omitempty" json:"code,omitempty"`
	Message string `yaml:"message" json:"message"`
}

// NewReport builds a report from a run's result. Items are listed in walk
// order so the report reads like the plan.
func NewReport(p *plan.Plan, runID string, ids IdentifierMap, runErr error) Report {
	r := Report{
		RunID:      runID,
		Project:    p.ProjectKey,
		Outcome:    StateDone.String(),
		FinishedAt: time.Now().UTC(),
	}
	if fp, err := p.Fingerprint(); err == nil {
		r.Fingerprint = fp
	}

	for n := range p.Walk() {
		b := n.Common()
		r.Items = append(r.Items, ItemEntry{
			LocalID: b.LocalID,
			Kind:    n.Kind(),
			Summary: b.Summary,
			Key:     ids[b.LocalID],
		})
	}

	if runErr != nil {
		r.Outcome = StateFailed.String()
		f := &Failure{Message: runErr.Error(), Code: string(berrors.CodeOf(runErr))}
		var re *RunError
		if errors.As(runErr, &re) {
			f.LocalID = re.LocalID
			f.Kind = string(re.Kind)
			f.Message = re.Err.Error()
			if re.Stopped() {
				r.Outcome = "stopped"
			}
		}
		r.Failure = f
	}
	return r
}
