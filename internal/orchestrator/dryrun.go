package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/backlog/internal/domain"
)

// DryRunRequest is one create request captured by DryRunPoster.
type DryRunRequest struct {
	Key    string         `json:"key" yaml:"key"`
	Fields map[string]any `json:"fields" yaml:"fields"`
}

// DryRunPoster is a Poster that never reaches the tracker. It keeps every
// payload and answers with keys of the form PROJ-DRY1, so a run exercises
// schemas and mappers end to end without creating anything.
type DryRunPoster struct {
	project string

	mu       sync.Mutex
	requests []DryRunRequest
}

// NewDryRunPoster creates a poster that issues keys for project.
func NewDryRunPoster(project string) *DryRunPoster {
	return &DryRunPoster{project: domain.NormalizeProjectKey(project)}
}

// Post implements Poster.
func (d *DryRunPoster) Post(ctx context.Context, _ string, body any) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode dry-run request: %w", err)
	}
	var envelope struct {
		Fields map[string]any `json:"fields"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("decode dry-run request: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	key := fmt.Sprintf("%s-DRY%d", d.project, len(d.requests)+1)
	d.requests = append(d.requests, DryRunRequest{Key: key, Fields: envelope.Fields})
	return json.Marshal(map[string]string{"id": fmt.Sprint(len(d.requests)), "key": key})
}

// Requests returns the captured requests in creation order.
func (d *DryRunPoster) Requests() []DryRunRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]DryRunRequest, len(d.requests))
	copy(out, d.requests)
	return out
}
