package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/metrics"
)

// fakeTracker serves canned bodies by path and counts requests.
type fakeTracker struct {
	mu     sync.Mutex
	bodies map[string]string
	calls  map[string]int
}

func newFakeTracker(bodies map[string]string) *fakeTracker {
	return &fakeTracker{bodies: bodies, calls: make(map[string]int)}
}

func (f *fakeTracker) Get(_ context.Context, path string, _ url.Values) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[path]++
	body, ok := f.bodies[path]
	if !ok {
		return nil, fmt.Errorf("GET %s: 404", path)
	}
	return json.RawMessage(body), nil
}

func (f *fakeTracker) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

const catalogueBody = `[
	{"id":"summary","name":"Summary","schema":{"type":"string","system":"summary"}},
	{"id":"description","name":"Description","schema":{"type":"string","system":"description"}},
	{"id":"customfield_10016","name":"Story Points","custom":true,"schema":{"type":"number"}},
	{"id":"customfield_10014","name":"Epic Link","custom":true,"schema":{"type":"any"}}
]`

func projectBodies() map[string]string {
	return map[string]string{
		"/rest/api/3/issue/createmeta/ABC/issuetypes": `{"issueTypes":[
			{"id":"10000","name":"Epic"},
			{"id":"10001","name":"Story"},
			{"id":"10002","name":"Task"},
			{"id":"10003","name":"Sub-task","subtask":true}
		]}`,
		"/rest/api/3/issue/createmeta/ABC/issuetypes/10001": `{"fields":{
			"summary":{"required":true},
			"customfield_10016":{"required":true},
			"customfield_10014":{"required":false}
		}}`,
		"/rest/api/3/issue/createmeta/ABC/issuetypes/10000": `{"values":[
			{"fieldId":"summary","name":"Summary","required":true}
		]}`,
		"/rest/api/3/issue/createmeta/ABC/issuetypes/10003": `{"fields":[
			{"fieldId":"summary","name":"Summary","required":true},
			{"fieldId":"parent","name":"Parent","required":true}
		]}`,
		"/rest/api/3/field": catalogueBody,
	}
}

func TestResolveStory(t *testing.T) {
	tracker := newFakeTracker(projectBodies())
	r := NewResolver(tracker)

	fs, err := r.Resolve(context.Background(), "abc", "story")
	require.NoError(t, err)

	assert.Equal(t, "ABC", fs.ProjectKey)
	assert.Equal(t, "Story", fs.IssueType)
	assert.Equal(t, "10001", fs.IssueTypeID)

	points, ok := fs.Lookup("Story Points")
	require.True(t, ok)
	assert.Equal(t, "customfield_10016", points.RemoteID)
	assert.True(t, points.Required)
	assert.Equal(t, "number", points.Schema.Type)

	summary, ok := fs.Lookup("summary")
	require.True(t, ok)
	assert.Equal(t, "Summary", summary.Name)

	assert.Equal(t, 3, tracker.total(), "cold resolve costs three round-trips")
}

func TestResolveCaches(t *testing.T) {
	tracker := newFakeTracker(projectBodies())
	_, m := metrics.NewRegistry()
	r := NewResolver(tracker, WithMetrics(m))
	ctx := context.Background()

	first, err := r.Resolve(ctx, "ABC", "Story")
	require.NoError(t, err)
	second, err := r.Resolve(ctx, "abc", "  STORY ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 3, tracker.total())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SchemaLookups.WithLabelValues("  STORY ", "hit")))

	// A second type reuses the issue type list and the catalogue.
	_, err = r.Resolve(ctx, "ABC", "Epic")
	require.NoError(t, err)
	assert.Equal(t, 4, tracker.total())
}

func TestResolveSubtaskFallback(t *testing.T) {
	tests := []struct {
		name     string
		request  string
		types    string
		fallback []string
		want     string
	}{
		{
			name:    "sub-task preferred",
			request: "Sub-task",
			types:   `{"issueTypes":[{"id":"10002","name":"Task"},{"id":"10003","name":"Sub-task"}]}`,
			want:    "Sub-task",
		},
		{
			name:    "task matches exactly",
			request: "Task",
			types:   `{"issueTypes":[{"id":"10002","name":"Task"},{"id":"10003","name":"Sub-task"}]}`,
			want:    "Task",
		},
		{
			name:    "subtask spelling",
			request: "subtask",
			types:   `{"issueTypes":[{"id":"10003","name":"Subtask"}]}`,
			want:    "Subtask",
		},
		{
			name:    "falls back to task",
			request: "sub-task",
			types:   `{"issueTypes":[{"id":"10002","name":"Task"}]}`,
			want:    "Task",
		},
		{
			name:     "custom chain",
			request:  "SUB-TASK",
			types:    `{"issueTypes":[{"id":"10002","name":"Task"},{"id":"10003","name":"Sub-task"}]}`,
			fallback: []string{"Task"},
			want:     "Task",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bodies := map[string]string{
				"/rest/api/3/issue/createmeta/ABC/issuetypes":       tt.types,
				"/rest/api/3/issue/createmeta/ABC/issuetypes/10002": `{"fields":{"summary":{"required":true}}}`,
				"/rest/api/3/issue/createmeta/ABC/issuetypes/10003": `{"fields":{"summary":{"required":true}}}`,
				"/rest/api/3/field": catalogueBody,
			}
			var opts []Option
			if tt.fallback != nil {
				opts = append(opts, WithSubtaskFallback(tt.fallback...))
			}
			r := NewResolver(newFakeTracker(bodies), opts...)

			fs, err := r.Resolve(context.Background(), "ABC", tt.request)
			require.NoError(t, err)
			assert.Equal(t, tt.want, fs.IssueType)
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	r := NewResolver(newFakeTracker(projectBodies()))

	_, err := r.Resolve(context.Background(), "ABC", "Bug")
	require.Error(t, err)

	var nf *SchemaNotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "ABC", nf.ProjectKey)
	assert.Equal(t, []string{"Bug"}, nf.Tried)
	assert.Equal(t, []string{"Epic", "Story", "Task", "Sub-task"}, nf.Available)
	assert.Equal(t, berrors.ErrCodeSchemaNotFound, berrors.CodeOf(err))
}

func TestResolveTransportFailure(t *testing.T) {
	r := NewResolver(newFakeTracker(map[string]string{}))

	_, err := r.Resolve(context.Background(), "ABC", "Story")
	require.Error(t, err)
	assert.Equal(t, berrors.ErrCodeSchemaUnavailable, berrors.CodeOf(err))
}

func TestResolveMalformed(t *testing.T) {
	bodies := projectBodies()
	bodies["/rest/api/3/issue/createmeta/ABC/issuetypes/10001"] = `{"fields":42}`
	r := NewResolver(newFakeTracker(bodies))

	_, err := r.Resolve(context.Background(), "ABC", "Story")
	require.Error(t, err)
	assert.Equal(t, berrors.ErrCodeSchemaMalformed, berrors.CodeOf(err))
}

func TestResolveConcurrent(t *testing.T) {
	tracker := newFakeTracker(projectBodies())
	r := NewResolver(tracker)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "ABC", "Story")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, tracker.total())
}
