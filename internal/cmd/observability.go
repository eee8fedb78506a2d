package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/felixgeelhaar/backlog/internal/log"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/telemetry"
	"github.com/felixgeelhaar/backlog/internal/version"
)

// Environment overrides for telemetry.
const (
	envTelemetry         = "BACKLOG_TELEMETRY"
	envTelemetryEndpoint = "BACKLOG_TELEMETRY_ENDPOINT"
)

// setupLogging builds the process logger and makes it the default.
func setupLogging(cfg log.Config) *log.Logger {
	cfg.ServiceName = "backlog"

	logger := log.New(cfg).With("version", version.GetInfo().Version)
	log.SetDefaultLogger(logger)
	return logger
}

// setupTelemetry starts tracing when enabled and returns its shutdown
// function, or nil when tracing stays off.
func setupTelemetry(ctx context.Context, cfg telemetry.Config, logger *log.Logger) func(context.Context) error {
	if val := strings.ToLower(os.Getenv(envTelemetry)); val != "" {
		cfg.Enabled = val == "on" || val == "true" || val == "1" || val == "enabled"
	}
	if env := os.Getenv(envTelemetryEndpoint); env != "" {
		cfg.Endpoint = env
	}
	if !cfg.Enabled {
		return nil
	}

	cfg.ServiceVersion = version.GetInfo().Version
	shutdown, err := telemetry.InitProvider(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize telemetry", "error", err)
		return nil
	}

	logger.Info("Telemetry enabled",
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	)
	return shutdown
}

// writeMetrics dumps the session's metrics when a textfile is configured.
func writeMetrics(s *session) {
	path := s.cfg.Metrics.Textfile
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, s.registry); err != nil {
		s.logger.WithError(err).Warn("Failed to write metrics textfile", "path", path)
		return
	}
	s.logger.Debug("metrics written", "path", path)
}
