package cmd

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/backlog/internal/config"
	"github.com/felixgeelhaar/backlog/internal/generator"
	"github.com/felixgeelhaar/backlog/internal/jira"
	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/orchestrator"
	"github.com/felixgeelhaar/backlog/internal/provider"
	"github.com/felixgeelhaar/backlog/internal/schema"
	"github.com/felixgeelhaar/backlog/internal/telemetry"
	"github.com/felixgeelhaar/backlog/internal/ux"
)

// session is what one command invocation shares: configuration, logger,
// metrics registry and the command span.
type session struct {
	configPath string
	cfg        *config.Config
	logger     *log.Logger
	registry   *prometheus.Registry
	metrics    *metrics.Metrics
	span       trace.Span
	shutdown   func(context.Context) error
}

// current is the session opened by the running command.
var current *session

// openSession loads configuration and sets up observability for cmd. The
// config path is, in order: --config, $BACKLOG_CONFIG, a project-local
// .backlog.yaml, ~/.backlog/config.yaml.
func openSession(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	path := cc.ConfigPath
	if path == "" && os.Getenv(config.EnvConfig) == "" {
		if wd, err := os.Getwd(); err == nil {
			path, _ = ux.DiscoverConfigFile(wd)
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if cc.LogLevel != "" {
		cfg.Log.Level = log.ParseLevel(cc.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s := &session{configPath: resolvedConfigPath(path), cfg: cfg}
	cfg.Log.Output = log.NewOutput(cmd.ErrOrStderr())
	s.logger = setupLogging(cfg.Log)
	s.registry, s.metrics = metrics.NewRegistry()
	s.shutdown = setupTelemetry(cmd.Context(), cfg.Telemetry, s.logger)

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), cmd.Name())
	cmd.SetContext(ctx)
	s.span = span

	s.logger.Debug("session opened", "command", cmd.CommandPath(), "config", s.configPath)
	current = s
	return nil
}

// resolvedConfigPath names the file Load read, or "" when defaults were used.
func resolvedConfigPath(path string) string {
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	if path == "" {
		path = config.DefaultPath()
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

// closeSession ends the command span, writes the metrics textfile and flushes
// telemetry. It is safe to call when no session was opened.
func closeSession(runErr error) {
	s := current
	if s == nil {
		return
	}
	current = nil

	if runErr != nil {
		telemetry.RecordError(s.span, runErr)
	} else {
		telemetry.RecordSuccess(s.span)
	}
	s.span.End()

	writeMetrics(s)

	if s.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.shutdown(ctx); err != nil {
			s.logger.Warn("Failed to flush telemetry", "error", err)
		}
	}
}

func (s *session) jiraClient() *jira.Client {
	return jira.NewClient(s.cfg.Jira,
		jira.WithLogger(s.logger),
		jira.WithMetrics(s.metrics),
	)
}

func (s *session) resolver(client schema.Getter) *schema.Resolver {
	return schema.NewResolver(client,
		schema.WithLogger(s.logger),
		schema.WithMetrics(s.metrics),
	)
}

func (s *session) orchestrator(resolver orchestrator.SchemaResolver, poster orchestrator.Poster) *orchestrator.Orchestrator {
	return orchestrator.New(resolver, poster,
		orchestrator.WithLogger(s.logger),
		orchestrator.WithMetrics(s.metrics),
		orchestrator.WithMapperOptions(s.cfg.MapperOptions()),
		orchestrator.WithIssueTypes(s.cfg.IssueTypes()),
	)
}

func (s *session) generator() (*generator.Generator, error) {
	client, err := provider.New(s.cfg.Generator, provider.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	return generator.New(client,
		generator.WithLogger(s.logger),
		generator.WithMetrics(s.metrics),
		generator.WithPriorities(s.cfg.Priorities()...),
	)
}
