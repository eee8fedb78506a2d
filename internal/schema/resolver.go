package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/telemetry"
)

// Getter performs a read against the tracker and returns the raw body.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error)
}

const (
	issueTypesPath = "/rest/api/3/issue/createmeta/%s/issuetypes"
	fieldMetaPath  = "/rest/api/3/issue/createmeta/%s/issuetypes/%s"
	cataloguePath  = "/rest/api/3/field"
)

// DefaultSubtaskFallback is tried, in order, when a sub-task-like type is
// requested. Projects name the type differently or lack it entirely.
var DefaultSubtaskFallback = []string{"Sub-task", "Subtask", "Task"}

// subtaskAliases are the canonical request names that trigger the fallback.
var subtaskAliases = map[string]bool{
	"sub-task": true,
	"subtask":  true,
}

type cacheKey struct {
	project   string
	issueType string
}

// Resolver discovers and caches field schemas. It is safe for concurrent use.
type Resolver struct {
	client   Getter
	logger   *log.Logger
	metrics  *metrics.Metrics
	fallback []string

	mu        sync.Mutex
	cache     map[cacheKey]*FieldSet
	types     map[string][]IssueType
	catalogue map[string]catalogueEntry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// WithMetrics records cache hits and misses.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// WithSubtaskFallback replaces the type names tried for sub-task requests.
func WithSubtaskFallback(names ...string) Option {
	return func(r *Resolver) { r.fallback = names }
}

// NewResolver creates a resolver reading through client.
func NewResolver(client Getter, opts ...Option) *Resolver {
	r := &Resolver{
		client:   client,
		logger:   log.Discard(),
		fallback: DefaultSubtaskFallback,
		cache:    make(map[cacheKey]*FieldSet),
		types:    make(map[string][]IssueType),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the field set for an issue type in a project. Results are
// cached for the life of the resolver, so repeated calls cost no round-trips.
//
// The lock is held across the remote reads. Creation is sequential and a
// second caller for the same key would only repeat the same requests.
func (r *Resolver) Resolve(ctx context.Context, projectKey, issueType string) (*FieldSet, error) {
	project := strings.ToUpper(strings.TrimSpace(projectKey))
	key := cacheKey{project: project, issueType: Canonicalize(issueType)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if fs, ok := r.cache[key]; ok {
		r.metrics.RecordSchemaLookup(issueType, true)
		return fs, nil
	}
	r.metrics.RecordSchemaLookup(issueType, false)

	ctx, span := telemetry.StartSchemaSpan(ctx, project, issueType)
	defer span.End()

	start := time.Now()
	fs, err := r.resolve(ctx, project, issueType)
	if err != nil {
		telemetry.RecordError(span, err)
		r.metrics.RecordSchemaError(issueType, string(berrors.CodeOf(err)))
		return nil, err
	}
	r.metrics.RecordSchemaResolved(issueType, time.Since(start))

	r.cache[key] = fs
	r.logger.Debug("resolved field schema",
		"project", project,
		"issue_type", fs.IssueType,
		"fields", len(fs.Fields),
		"required", len(fs.Required()),
	)
	return fs, nil
}

func (r *Resolver) resolve(ctx context.Context, project, issueType string) (*FieldSet, error) {
	types, err := r.issueTypes(ctx, project)
	if err != nil {
		return nil, err
	}

	it, tried, ok := r.matchType(types, issueType)
	if !ok {
		available := make([]string, 0, len(types))
		for _, t := range types {
			available = append(available, t.Name)
		}
		return nil, &SchemaNotFoundError{
			ProjectKey: project,
			IssueType:  issueType,
			Tried:      tried,
			Available:  available,
		}
	}
	if !strings.EqualFold(it.Name, issueType) {
		r.logger.Info("using fallback issue type", "requested", issueType, "resolved", it.Name)
	}

	raw, err := r.client.Get(ctx, fmt.Sprintf(fieldMetaPath, url.PathEscape(project), url.PathEscape(it.ID)), nil)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeSchemaUnavailable,
			fmt.Sprintf("fetch create metadata for %s/%s", project, it.Name), err)
	}
	metas, err := decodeFieldMetas(raw)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeSchemaMalformed, "create metadata", err)
	}

	catalogue, err := r.fieldCatalogue(ctx)
	if err != nil {
		return nil, err
	}

	return &FieldSet{
		ProjectKey:  project,
		IssueType:   it.Name,
		IssueTypeID: it.ID,
		Fields:      buildFieldSpecs(metas, catalogue),
	}, nil
}

// matchType finds the requested type by canonical name, walking the
// sub-task fallback chain when the request is sub-task-like.
func (r *Resolver) matchType(types []IssueType, requested string) (IssueType, []string, bool) {
	candidates := []string{requested}
	if subtaskAliases[Canonicalize(requested)] {
		candidates = r.fallback
	}
	for _, name := range candidates {
		want := Canonicalize(name)
		for _, t := range types {
			if Canonicalize(t.Name) == want {
				return t, candidates, true
			}
		}
	}
	return IssueType{}, candidates, false
}

func (r *Resolver) issueTypes(ctx context.Context, project string) ([]IssueType, error) {
	if types, ok := r.types[project]; ok {
		return types, nil
	}
	raw, err := r.client.Get(ctx, fmt.Sprintf(issueTypesPath, url.PathEscape(project)), nil)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeSchemaUnavailable,
			fmt.Sprintf("list issue types for %s", project), err)
	}
	types, err := decodeIssueTypes(raw)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeSchemaMalformed, "issue types", err)
	}
	r.types[project] = types
	return types, nil
}

func (r *Resolver) fieldCatalogue(ctx context.Context) (map[string]catalogueEntry, error) {
	if r.catalogue != nil {
		return r.catalogue, nil
	}
	raw, err := r.client.Get(ctx, cataloguePath, nil)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeSchemaUnavailable, "fetch field catalogue", err)
	}
	catalogue, err := decodeCatalogue(raw)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeSchemaMalformed, "field catalogue", err)
	}
	r.catalogue = catalogue
	return catalogue, nil
}

// IssueTypes lists the creatable issue types of a project.
func (r *Resolver) IssueTypes(ctx context.Context, projectKey string) ([]IssueType, error) {
	project := strings.ToUpper(strings.TrimSpace(projectKey))
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.issueTypes(ctx, project)
}
