package journal

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/felixgeelhaar/backlog/internal/log"
)

// Poster sends a create request to the tracker.
type Poster interface {
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// RecordingPoster journals every create request passed to the next poster.
// Journal failures are logged and never fail the request: the tracker's
// answer is what the run acts on.
type RecordingPoster struct {
	next    Poster
	w       *Writer
	project string
	runID   func() string
	logger  *log.Logger

	mu     sync.Mutex
	opened string
}

// NewRecordingPoster wraps next. runID is read on every request, so it may
// return the ID of a run that starts after the wrapper is built.
func NewRecordingPoster(next Poster, w *Writer, project string, runID func() string, logger *log.Logger) *RecordingPoster {
	if logger == nil {
		logger = log.Discard()
	}
	return &RecordingPoster{next: next, w: w, project: project, runID: runID, logger: logger}
}

// Post implements Poster.
func (p *RecordingPoster) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	runID := p.runID()
	p.open(runID)

	raw, err := p.next.Post(ctx, path, body)

	ev := NewEvent(EventCreated, runID)
	ev.Project = p.project
	ev.Summary, ev.IssueType = describe(body)
	if err != nil {
		ev.Type = EventFailed
		ev.WithError(err)
	} else {
		var created struct {
			Key string `json:"key"`
		}
		if json.Unmarshal(raw, &created) == nil {
			ev.Key = created.Key
		}
	}

	if jerr := p.w.Record(ev); jerr != nil {
		p.logger.WithError(jerr).Warn("Failed to journal create request", "summary", ev.Summary, "key", ev.Key)
	}
	return raw, err
}

// open writes a run_start event the first time a run makes a request.
func (p *RecordingPoster) open(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.opened == runID {
		return
	}
	p.opened = runID
	ev := NewEvent(EventRunStart, runID)
	ev.Project = p.project
	if err := p.w.Record(ev); err != nil {
		p.logger.WithError(err).Warn("Failed to journal run start", "run_id", runID)
	}
}

// Close writes a run_end event for runID with the number of issues created.
func (p *RecordingPoster) Close(runID string, created int, runErr error) {
	ev := NewEvent(EventRunEnd, runID).WithData("created", created).WithError(runErr)
	ev.Project = p.project
	if err := p.w.Record(ev); err != nil {
		p.logger.WithError(err).Warn("Failed to journal run end", "run_id", runID)
	}
}

// describe pulls the summary and issue type out of a create body.
func describe(body any) (summary, issueType string) {
	data, err := json.Marshal(body)
	if err != nil {
		return "", ""
	}
	var envelope struct {
		Fields struct {
			Summary   string `json:"summary"`
			IssueType struct {
				Name string `json:"name"`
			} `json:"issuetype"`
		} `json:"fields"`
	}
	if json.Unmarshal(data, &envelope) != nil {
		return "", ""
	}
	return envelope.Fields.Summary, envelope.Fields.IssueType.Name
}
