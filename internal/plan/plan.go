// Package plan holds the backlog tree produced by the generator and edited by
// the user before anything exists in the tracker.
package plan

import (
	"encoding/json"
	"iter"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/backlog/internal/domain"
)

// Plan is the root of a backlog tree.
type Plan struct {
	ProjectKey  string       `json:"project_key" yaml:"project_key" jsonschema:"description=Target project key such as DEMO"`
	Initiatives []Initiative `json:"initiatives" yaml:"initiatives"`
}

// New creates a plan with a normalized project key.
func New(projectKey string, initiatives ...Initiative) *Plan {
	return &Plan{
		ProjectKey:  domain.NormalizeProjectKey(projectKey),
		Initiatives: initiatives,
	}
}

// UnmarshalJSON normalizes the project key on decode.
func (p *Plan) UnmarshalJSON(data []byte) error {
	type raw Plan
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*p = Plan(r)
	p.ProjectKey = domain.NormalizeProjectKey(p.ProjectKey)
	return nil
}

// UnmarshalYAML normalizes the project key on decode.
func (p *Plan) UnmarshalYAML(value *yaml.Node) error {
	type raw Plan
	var r raw
	if err := value.Decode(&r); err != nil {
		return err
	}
	*p = Plan(r)
	p.ProjectKey = domain.NormalizeProjectKey(p.ProjectKey)
	return nil
}

// Walk yields every node depth-first, parents before children and siblings in
// list order. Each call starts a fresh traversal and never mutates the plan.
func (p *Plan) Walk() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if p == nil {
			return
		}
		for _, initiative := range p.Initiatives {
			if !yield(initiative) {
				return
			}
			for _, epic := range initiative.Epics {
				if !yield(epic) {
					return
				}
				for _, story := range epic.Stories {
					if !yield(story) {
						return
					}
					for _, task := range story.Tasks {
						if !yield(task) {
							return
						}
					}
				}
			}
		}
	}
}

// Len returns the number of nodes in the plan.
func (p *Plan) Len() int {
	n := 0
	for range p.Walk() {
		n++
	}
	return n
}

// Counts returns the number of nodes per kind.
func (p *Plan) Counts() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for n := range p.Walk() {
		counts[n.Kind()]++
	}
	return counts
}

// Find returns the node with the given local ID.
func (p *Plan) Find(localID string) (Node, bool) {
	for n := range p.Walk() {
		if n.Common().LocalID == localID {
			return n, true
		}
	}
	return nil, false
}
