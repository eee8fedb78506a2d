// Package generator turns a free-form feature request into a plan using a
// language model.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/felixgeelhaar/backlog/internal/domain"
	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/provider"
	"github.com/felixgeelhaar/backlog/internal/telemetry"
)

const schemaURL = "backlog://plan.schema.json"

// Request is one generation: the target project, the feature request and the
// context gathered from the tracker.
type Request struct {
	ProjectKey   string
	Prompt       string
	ProjectBrief string
	StyleGuide   string
	FieldsGuide  string
}

// Generator converts feature requests into validated plans.
type Generator struct {
	client     provider.ProviderClient
	schemaJSON json.RawMessage
	schema     *jsonschema.Schema
	priorities []domain.Priority
	logger     *log.Logger
	metrics    *metrics.Metrics
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the generator's logger.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithMetrics records one observation per provider call.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

// WithPriorities restricts the priority labels the model may use.
func WithPriorities(p ...domain.Priority) Option {
	return func(g *Generator) { g.priorities = p }
}

// New compiles the plan schema and returns a generator backed by client.
func New(client provider.ProviderClient, opts ...Option) (*Generator, error) {
	raw, err := plan.JSONSchemaBytes()
	if err != nil {
		return nil, fmt.Errorf("render plan schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("load plan schema: %w", err)
	}
	compiled, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}

	g := &Generator{
		client:     client,
		schemaJSON: raw,
		schema:     compiled,
		priorities: domain.StandardPriorities,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Generate asks the model for a plan, checks the reply against the plan
// schema and the plan's own rules, and returns it with the requested project
// key.
func (g *Generator) Generate(ctx context.Context, req Request) (*plan.Plan, error) {
	if err := domain.ValidateProjectKey(domain.NormalizeProjectKey(req.ProjectKey)); err != nil {
		return nil, berrors.Wrap(berrors.ErrCodePlanInvalid, "invalid project key", err)
	}

	info := g.client.GetInfo()
	ctx, span := telemetry.StartProviderSpan(ctx, info.Name, "plan.generate")
	defer span.End()

	start := time.Now()
	resp, err := g.client.Generate(ctx, &provider.GenerateRequest{
		Prompt:         buildUserPrompt(req, string(g.schemaJSON)),
		SystemPrompt:   buildSystemPrompt(g.priorities),
		ResponseSchema: g.schemaJSON,
		SchemaName:     "plan",
		Metadata:       map[string]string{"project": req.ProjectKey},
	})
	if err != nil {
		g.metrics.RecordGeneratorCall(info.Name, info.Model, false, time.Since(start))
		if berrors.CodeOf(err) == "" {
			err = berrors.Wrap(berrors.ErrCodeGeneratorAPI, "generate plan", err)
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	g.metrics.RecordGeneratorCall(info.Name, resp.Model, true, time.Since(start))
	g.logger.Info("plan generated",
		"provider", resp.Provider,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"latency", resp.Latency)

	p, err := g.decode(resp)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	want := domain.NormalizeProjectKey(req.ProjectKey)
	if p.ProjectKey != want {
		g.logger.Warn("generated plan targets another project; overriding",
			"generated", p.ProjectKey, "requested", want)
		p.ProjectKey = want
	}

	if err := p.ValidateSelf(plan.WithPriorities(g.priorities...)); err != nil {
		err = berrors.Wrap(berrors.ErrCodeGeneratorOutput, "generated plan is invalid", err).
			WithSuggestion("Run 'backlog plan generate' again or edit the plan and run 'backlog plan validate'")
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.RecordSuccess(span)
	return p, nil
}

func (g *Generator) decode(resp *provider.GenerateResponse) (*plan.Plan, error) {
	if resp.Truncated() {
		return nil, berrors.New(berrors.ErrCodeGeneratorOutput, "model reply was cut off at the token limit").
			WithSuggestion("Increase generator.max_tokens or narrow the feature request")
	}

	doc := extractJSON(resp.Content)
	if doc == "" {
		return nil, berrors.New(berrors.ErrCodeGeneratorOutput, "model reply contains no JSON object")
	}

	var v any
	if err := json.Unmarshal([]byte(doc), &v); err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeGeneratorOutput, "model reply is not valid JSON", err)
	}
	if err := g.schema.Validate(v); err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeGeneratorOutput, "model reply does not match the plan schema", err)
	}

	p, err := plan.Decode([]byte(doc), plan.FormatJSON)
	if err != nil {
		return nil, berrors.Wrap(berrors.ErrCodeGeneratorOutput, "decode generated plan", err)
	}
	return p, nil
}
