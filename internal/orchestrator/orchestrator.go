// Package orchestrator materializes a plan in the tracker, parents first.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/backlog/internal/domain"
	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/mapper"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/schema"
	"github.com/felixgeelhaar/backlog/internal/telemetry"
)

// InitiativePlaceholder stands in for initiatives, which are never created
// remotely.
const InitiativePlaceholder = "INIT-PLACEHOLDER"

const createIssuePath = "/rest/api/3/issue"

// SchemaResolver returns the field schema for an issue type.
type SchemaResolver interface {
	Resolve(ctx context.Context, projectKey, issueType string) (*schema.FieldSet, error)
}

// Poster sends a create request to the tracker. Implementations must not
// retry: a repeated create can duplicate the issue.
type Poster interface {
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// ProgressFunc is called after every node with a message and the completed
// fraction in (0, 1]. Returning ErrStop halts the run before the next node;
// any other error fails it.
type ProgressFunc func(message string, fraction float64) error

// IdentifierMap maps local IDs to remote keys.
type IdentifierMap map[string]string

// Created counts entries that are real remote keys.
func (m IdentifierMap) Created() int {
	n := 0
	for _, key := range m {
		if key != InitiativePlaceholder {
			n++
		}
	}
	return n
}

// State is the orchestrator's run state.
type State int

const (
	StateNotStarted State = iota
	StateResolvingSchemas
	StateCreating
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateResolvingSchemas:
		return "resolving_schemas"
	case StateCreating:
		return "creating"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// IssueTypes names the tracker issue types used per kind.
type IssueTypes struct {
	Epic  string
	Story string
	// Task is passed to the resolver, which applies its sub-task fallback.
	// The type it resolves to is what gets created.
	Task string
}

// DefaultIssueTypes are the standard tracker type names.
var DefaultIssueTypes = IssueTypes{Epic: "Epic", Story: "Story", Task: "Sub-task"}

// Orchestrator creates a plan's issues one at a time. A single Orchestrator
// runs one plan at a time; the mutex only guards inspection from other
// goroutines while a run is in flight.
type Orchestrator struct {
	resolver SchemaResolver
	poster   Poster
	types    IssueTypes
	epic     mapper.Mapper
	story    mapper.Mapper
	task     mapper.Mapper
	logger   *log.Logger
	metrics  *metrics.Metrics

	mu      sync.Mutex
	runID   string
	state   State
	current int
	ids     IdentifierMap
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics records per-issue and per-run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithMapperOptions configures the default Epic, Story and Task mappers.
func WithMapperOptions(opts mapper.Options) Option {
	return func(o *Orchestrator) {
		o.epic = mapper.Epic{Options: opts}
		o.story = mapper.Story{Options: opts}
		o.task = mapper.Task{Options: opts}
	}
}

// WithMappers replaces the per-kind mappers.
func WithMappers(epic, story, task mapper.Mapper) Option {
	return func(o *Orchestrator) {
		o.epic, o.story, o.task = epic, story, task
	}
}

// WithIssueTypes overrides the tracker type names.
func WithIssueTypes(types IssueTypes) Option {
	return func(o *Orchestrator) { o.types = types }
}

// New creates an Orchestrator.
func New(resolver SchemaResolver, poster Poster, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		poster:   poster,
		types:    DefaultIssueTypes,
		epic:     mapper.Epic{},
		story:    mapper.Story{},
		task:     mapper.Task{},
		logger:   log.Discard(),
		ids:      make(IdentifierMap),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the run state and, while creating, the index of the node in
// progress.
func (o *Orchestrator) State() (State, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state, o.current
}

// RunID identifies the most recent run.
func (o *Orchestrator) RunID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID
}

// Partial returns a copy of the identifier map built so far.
func (o *Orchestrator) Partial() IdentifierMap {
	o.mu.Lock()
	defer o.mu.Unlock()
	return maps.Clone(o.ids)
}

func (o *Orchestrator) setState(s State, i int) {
	o.mu.Lock()
	o.state, o.current = s, i
	o.mu.Unlock()
}

func (o *Orchestrator) record(localID, key string) {
	o.mu.Lock()
	o.ids[localID] = key
	o.mu.Unlock()
}

func (o *Orchestrator) lookup(localID string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key, ok := o.ids[localID]
	return key, ok
}

// fieldSets are the schemas resolved once per run.
type fieldSets struct {
	epic, story, task *schema.FieldSet
}

// CreatePlan creates every node of p in walk order and returns the identifier
// map. projectKey overrides the plan's project when non-empty. On failure the
// returned error is a *RunError and the map holds what was created before it.
//
// Creation is strictly sequential: each child needs its parent's fresh key.
func (o *Orchestrator) CreatePlan(ctx context.Context, p *plan.Plan, accountID, projectKey string, progress ProgressFunc) (IdentifierMap, error) {
	project := domain.NormalizeProjectKey(projectKey)
	if project == "" {
		project = p.ProjectKey
	}

	o.mu.Lock()
	o.runID = uuid.NewString()
	o.ids = make(IdentifierMap)
	o.state, o.current = StateNotStarted, 0
	runID := o.runID
	o.mu.Unlock()

	items := slices.Collect(p.Walk())
	logger := o.logger.With("run_id", runID, "project", project)

	ctx, span := telemetry.StartRunSpan(ctx, runID, project, len(items))
	defer span.End()

	start := time.Now()
	counts := make(map[string]int)
	for k, n := range p.Counts() {
		counts[string(k)] = n
	}
	o.metrics.RecordPlanShape(counts)

	fail := func(n plan.Node, err error) (IdentifierMap, error) {
		o.mu.Lock()
		o.state = StateFailed
		o.mu.Unlock()

		runErr := &RunError{RunID: runID, Partial: o.Partial(), Err: err}
		if n != nil {
			runErr.LocalID = n.Common().LocalID
			runErr.Kind = n.Kind()
		}
		outcome := "failed"
		if runErr.Stopped() {
			outcome = "stopped"
		}
		o.metrics.RecordRun(outcome, time.Since(start))
		telemetry.RecordError(span, runErr)
		logger.WithError(runErr).Error("run halted",
			"local_id", runErr.LocalID,
			"created", runErr.Partial.Created(),
		)
		return runErr.Partial, runErr
	}

	o.setState(StateResolvingSchemas, 0)
	sets, err := o.resolveSchemas(ctx, project)
	if err != nil {
		return fail(nil, err)
	}
	logger.Info("starting run", "nodes", len(items), "task_type", sets.task.IssueType)

	// Walk is pre-order, so the latest epic and story enclose what follows.
	var epicID, storyID string

	for i, n := range items {
		if err := ctx.Err(); err != nil {
			return fail(n, err)
		}
		o.setState(StateCreating, i)

		var (
			message string
			err     error
		)
		switch node := n.(type) {
		case plan.Initiative:
			o.record(node.LocalID, InitiativePlaceholder)
			message = fmt.Sprintf("Grouped initiative %s", node.LocalID)

		case plan.Epic:
			epicID = node.LocalID
			if ref := node.ParentInitiative; ref != "" {
				if _, ok := o.lookup(ref); !ok {
					err = &UnresolvedParentError{LocalID: node.LocalID, ParentID: ref}
					break
				}
			}
			message, err = o.create(ctx, logger, node, sets.epic, o.epic, accountID, project, "")

		case plan.Story:
			storyID = node.LocalID
			var parentKey string
			if parentKey, err = o.parentKey(node, epicID); err == nil {
				message, err = o.create(ctx, logger, node, sets.story, o.story, accountID, project, parentKey)
			}

		case plan.Task:
			var parentKey string
			if parentKey, err = o.parentKey(node, storyID); err == nil {
				message, err = o.create(ctx, logger, node, sets.task, o.task, accountID, project, parentKey)
			}

		default:
			err = fmt.Errorf("unsupported node type %T", n)
		}
		if err != nil {
			return fail(n, err)
		}

		if progress != nil {
			if perr := progress(message, float64(i+1)/float64(len(items))); perr != nil {
				if i+1 < len(items) || !errors.Is(perr, ErrStop) {
					return fail(n, perr)
				}
			}
		}
	}

	o.setState(StateDone, len(items))
	ids := o.Partial()
	o.metrics.RecordRun("done", time.Since(start))
	telemetry.RecordSuccess(span)
	logger.Info("run complete", "created", ids.Created(), "duration", time.Since(start).Round(time.Millisecond))
	return ids, nil
}

func (o *Orchestrator) resolveSchemas(ctx context.Context, project string) (fieldSets, error) {
	var sets fieldSets
	var err error
	if sets.epic, err = o.resolver.Resolve(ctx, project, o.types.Epic); err != nil {
		return sets, err
	}
	if sets.story, err = o.resolver.Resolve(ctx, project, o.types.Story); err != nil {
		return sets, err
	}
	if sets.task, err = o.resolver.Resolve(ctx, project, o.types.Task); err != nil {
		return sets, err
	}
	return sets, nil
}

// parentKey resolves a node's parent: the declared reference when set,
// otherwise the enclosing node.
func (o *Orchestrator) parentKey(n plan.Node, enclosing string) (string, error) {
	parent := n.ParentRef()
	if parent == "" {
		parent = enclosing
	}
	key, ok := o.lookup(parent)
	if !ok || parent == "" || key == InitiativePlaceholder {
		return "", &UnresolvedParentError{LocalID: n.Common().LocalID, ParentID: parent}
	}
	return key, nil
}

// create maps and posts one node. It is called at most once per node.
func (o *Orchestrator) create(ctx context.Context, logger *log.Logger, n plan.Node, fields *schema.FieldSet, m mapper.Mapper, accountID, project, parentKey string) (string, error) {
	kind := string(n.Kind())
	localID := n.Common().LocalID

	ctx, span := telemetry.StartIssueSpan(ctx, kind, localID)
	defer span.End()

	payload, err := m.Map(n.Content(), fields, accountID, project, parentKey)
	if err != nil {
		o.metrics.RecordMappingError(kind, string(berrors.CodeOf(err)))
		telemetry.RecordError(span, err)
		return "", err
	}
	payload["issuetype"] = map[string]any{"name": fields.IssueType}

	start := time.Now()
	raw, err := o.poster.Post(ctx, createIssuePath, map[string]any{"fields": payload})
	if err != nil {
		o.metrics.RecordIssueError(kind, string(berrors.CodeOf(err)))
		telemetry.RecordError(span, err)
		return "", err
	}

	var created struct {
		ID  string `json:"id"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(raw, &created); err != nil || created.Key == "" {
		err = berrors.Wrap(berrors.ErrCodeTrackerNoKey, "create response carries no issue key", err)
		o.metrics.RecordIssueError(kind, string(berrors.ErrCodeTrackerNoKey))
		telemetry.RecordError(span, err)
		return "", err
	}

	o.record(localID, created.Key)
	o.metrics.RecordIssueCreated(kind, time.Since(start))
	telemetry.RecordSuccess(span)
	logger.Info("created issue", "kind", kind, "local_id", localID, "key", created.Key, "parent", parentKey)
	return fmt.Sprintf("Created %s %s (%s)", kind, created.Key, localID), nil
}
