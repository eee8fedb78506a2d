package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

// StartCommandSpan creates a span for a CLI command execution.
//
// Usage:
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "publish")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("commands")
	ctx, span := tracer.Start(ctx, "command."+cmdName)

	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)

	return ctx, span
}

// StartRunSpan creates the root span of a plan materialization run.
func StartRunSpan(ctx context.Context, runID, projectKey string, nodes int) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("orchestrator")
	ctx, span := tracer.Start(ctx, "orchestrator.run")

	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("project", projectKey),
		attribute.Int("nodes", nodes),
		attribute.String("component", "orchestrator"),
	)

	return ctx, span
}

// StartSchemaSpan creates a span around a cold field schema resolution.
func StartSchemaSpan(ctx context.Context, projectKey, issueType string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("schema")
	ctx, span := tracer.Start(ctx, "schema.resolve")

	span.SetAttributes(
		attribute.String("project", projectKey),
		attribute.String("issue_type", issueType),
		attribute.String("component", "schema"),
	)

	return ctx, span
}

// StartIssueSpan creates a span around the creation of one plan node.
func StartIssueSpan(ctx context.Context, kind, localID string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("orchestrator")
	ctx, span := tracer.Start(ctx, "issue.create")

	span.SetAttributes(
		attribute.String("kind", kind),
		attribute.String("local_id", localID),
	)

	return ctx, span
}

// StartProviderSpan creates a span for a content generator API call.
//
// Usage:
//
//	ctx, span := telemetry.StartProviderSpan(ctx, "anthropic", "generate")
//	defer span.End()
func StartProviderSpan(ctx context.Context, providerName, operation string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("providers")
	ctx, span := tracer.Start(ctx, "provider."+operation)

	span.SetAttributes(
		attribute.String("provider", providerName),
		attribute.String("operation", operation),
		attribute.String("component", "provider"),
	)

	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status. Coded errors
// also get an error_code attribute.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
	if code := berrors.CodeOf(err); code != "" {
		span.SetAttributes(attribute.String("error_code", string(code)))
	}
}
