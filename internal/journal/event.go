package journal

import (
	"encoding/json"
	"time"
)

// EventType represents the type of journal event
type EventType string

const (
	// EventRunStart opens a publish run.
	EventRunStart EventType = "run_start"
	// EventCreated records an issue the tracker accepted.
	EventCreated EventType = "created"
	// EventFailed records a create request the tracker rejected or never answered.
	EventFailed EventType = "failed"
	// EventRunEnd closes a publish run.
	EventRunEnd EventType = "run_end"
)

// Event is one line of the journal.
type Event struct {
	Time      time.Time      `json:"time"`
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id,omitempty"`
	Project   string         `json:"project,omitempty"`
	Key       string         `json:"key,omitempty"`
	IssueType string         `json:"issue_type,omitempty"`
	Summary   string         `json:"summary,omitempty"`
	Error     string         `json:"error,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(typ EventType, runID string) *Event {
	return &Event{Time: time.Now().UTC(), Type: typ, RunID: runID}
}

// WithData adds a data field to the event
func (e *Event) WithData(key string, value any) *Event {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// WithError records err's message.
func (e *Event) WithError(err error) *Event {
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// ToJSON serializes the event as a single line.
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}
