package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/mapper"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/schema"
)

func fieldSet(issueType string, specs ...schema.FieldSpec) *schema.FieldSet {
	fs := &schema.FieldSet{ProjectKey: "PROJ", IssueType: issueType, Fields: make(map[string]schema.FieldSpec)}
	for _, s := range specs {
		fs.Fields[s.Canonical()] = s
	}
	return fs
}

var (
	summarySpec  = schema.FieldSpec{RemoteID: "summary", Name: "Summary", Required: true}
	prioritySpec = schema.FieldSpec{RemoteID: "priority", Name: "Priority"}
	epicLinkSpec = schema.FieldSpec{RemoteID: "customfield_10014", Name: "Epic Link"}
)

type fakeResolver struct {
	sets  map[string]*schema.FieldSet
	calls []string
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{sets: map[string]*schema.FieldSet{
		"Epic":     fieldSet("Epic", summarySpec, prioritySpec),
		"Story":    fieldSet("Story", summarySpec, prioritySpec),
		"Sub-task": fieldSet("Sub-task", summarySpec, prioritySpec),
	}}
}

func (f *fakeResolver) Resolve(_ context.Context, project, issueType string) (*schema.FieldSet, error) {
	f.calls = append(f.calls, project+"/"+issueType)
	fs, ok := f.sets[issueType]
	if !ok {
		return nil, &schema.SchemaNotFoundError{ProjectKey: project, IssueType: issueType}
	}
	return fs, nil
}

type post struct {
	path   string
	fields map[string]any
}

type fakePoster struct {
	posts []post
	fail  map[string]error // by summary
	body  func(n int) string
}

func (f *fakePoster) Post(_ context.Context, path string, body any) (json.RawMessage, error) {
	fields := body.(map[string]any)["fields"].(mapper.Payload)
	f.posts = append(f.posts, post{path: path, fields: fields})
	if err := f.fail[fmt.Sprint(fields["summary"])]; err != nil {
		return nil, err
	}
	n := len(f.posts)
	if f.body != nil {
		return json.RawMessage(f.body(n)), nil
	}
	return json.RawMessage(fmt.Sprintf(`{"id":"%d","key":"PROJ-%d"}`, 10000+n, n)), nil
}

func (f *fakePoster) summaries() []string {
	var out []string
	for _, p := range f.posts {
		out = append(out, fmt.Sprint(p.fields["summary"]))
	}
	return out
}

// linearPlan is Initiative I1 > Epic E1 > Story S1 > Task T1.
func linearPlan() *plan.Plan {
	return plan.New("proj", plan.Initiative{
		Base: plan.Base{LocalID: "I1", Summary: "Initiative"},
		Epics: []plan.Epic{{
			Base:             plan.Base{LocalID: "E1", Summary: "Epic"},
			ParentInitiative: "I1",
			Stories: []plan.Story{{
				Base:       plan.Base{LocalID: "S1", Summary: "Story"},
				ParentEpic: "E1",
				Tasks: []plan.Task{{
					Base:        plan.Base{LocalID: "T1", Summary: "Task"},
					ParentStory: "S1",
				}},
			}},
		}},
	})
}

func TestCreatePlanSuccess(t *testing.T) {
	resolver := newFakeResolver()
	poster := &fakePoster{}
	o := New(resolver, poster)

	ids, err := o.CreatePlan(context.Background(), linearPlan(), "acc-1", "", nil)
	require.NoError(t, err)

	assert.Equal(t, IdentifierMap{
		"I1": InitiativePlaceholder,
		"E1": "PROJ-1",
		"S1": "PROJ-2",
		"T1": "PROJ-3",
	}, ids)
	assert.Equal(t, 3, ids.Created())
	assert.Equal(t, []string{"PROJ/Epic", "PROJ/Story", "PROJ/Sub-task"}, resolver.calls)

	require.Len(t, poster.posts, 3)
	for _, p := range poster.posts {
		assert.Equal(t, "/rest/api/3/issue", p.path)
	}
	assert.Equal(t, map[string]any{"name": "Epic"}, poster.posts[0].fields["issuetype"])
	assert.Equal(t, map[string]any{"name": "High"}, poster.posts[0].fields["priority"])
	assert.Equal(t, map[string]any{"key": "PROJ"}, poster.posts[0].fields["project"])
	assert.Equal(t, map[string]any{"id": "acc-1"}, poster.posts[0].fields["reporter"])
	assert.Equal(t, map[string]any{"key": "PROJ-1"}, poster.posts[1].fields["parent"])
	assert.Equal(t, map[string]any{"key": "PROJ-2"}, poster.posts[2].fields["parent"])
	assert.Equal(t, map[string]any{"name": "Medium"}, poster.posts[2].fields["priority"])

	state, _ := o.State()
	assert.Equal(t, StateDone, state)
	assert.NotEmpty(t, o.RunID())
}

func TestCreatePlanHaltsOnFirstFailure(t *testing.T) {
	transportErr := berrors.New(berrors.ErrCodeTransport, "POST /rest/api/3/issue: 400")
	poster := &fakePoster{fail: map[string]error{"Story": transportErr}}
	o := New(newFakeResolver(), poster)

	ids, err := o.CreatePlan(context.Background(), linearPlan(), "acc", "PROJ", nil)
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "S1", runErr.LocalID)
	assert.Equal(t, plan.KindStory, runErr.Kind)
	assert.ErrorIs(t, err, transportErr)
	assert.Equal(t, berrors.ErrCodeTransport, berrors.CodeOf(err))

	// Exactly the epic was created; the task was never attempted.
	assert.Equal(t, IdentifierMap{"I1": InitiativePlaceholder, "E1": "PROJ-1"}, ids)
	assert.Equal(t, ids, runErr.Partial)
	assert.Equal(t, ids, o.Partial())
	assert.Equal(t, 1, ids.Created())
	assert.True(t, runErr.Halted())
	assert.Equal(t, []string{"Epic", "Story"}, poster.summaries())

	state, idx := o.State()
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, 2, idx)
}

func TestStoryParentPropagation(t *testing.T) {
	t.Run("epic link", func(t *testing.T) {
		resolver := newFakeResolver()
		resolver.sets["Story"] = fieldSet("Story", summarySpec, epicLinkSpec)
		poster := &fakePoster{}

		_, err := New(resolver, poster).CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
		require.NoError(t, err)

		assert.Equal(t, "PROJ-1", poster.posts[1].fields["customfield_10014"])
		assert.NotContains(t, poster.posts[1].fields, "parent")
	})

	t.Run("generic parent", func(t *testing.T) {
		poster := &fakePoster{}
		_, err := New(newFakeResolver(), poster).CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
		require.NoError(t, err)

		assert.Equal(t, map[string]any{"key": "PROJ-1"}, poster.posts[1].fields["parent"])
	})

	t.Run("enclosing epic when reference unset", func(t *testing.T) {
		p := linearPlan()
		p.Initiatives[0].Epics[0].Stories[0].ParentEpic = ""
		p.Initiatives[0].Epics[0].Stories[0].Tasks[0].ParentStory = ""
		poster := &fakePoster{}

		_, err := New(newFakeResolver(), poster).CreatePlan(context.Background(), p, "acc", "", nil)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"key": "PROJ-1"}, poster.posts[1].fields["parent"])
		assert.Equal(t, map[string]any{"key": "PROJ-2"}, poster.posts[2].fields["parent"])
	})
}

func TestTaskUsesResolvedIssueType(t *testing.T) {
	resolver := newFakeResolver()
	resolver.sets["Sub-task"] = fieldSet("Task", summarySpec)
	poster := &fakePoster{}

	_, err := New(resolver, poster).CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Task"}, poster.posts[2].fields["issuetype"])
}

func TestUnresolvedParent(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *plan.Plan)
		localID string
		parent  string
		posts   int
	}{
		{
			name:    "story names unknown epic",
			mutate:  func(p *plan.Plan) { p.Initiatives[0].Epics[0].Stories[0].ParentEpic = "E9" },
			localID: "S1",
			parent:  "E9",
			posts:   1,
		},
		{
			name:    "task names later story",
			mutate:  func(p *plan.Plan) { p.Initiatives[0].Epics[0].Stories[0].Tasks[0].ParentStory = "S2" },
			localID: "T1",
			parent:  "S2",
			posts:   2,
		},
		{
			name:    "story names the initiative",
			mutate:  func(p *plan.Plan) { p.Initiatives[0].Epics[0].Stories[0].ParentEpic = "I1" },
			localID: "S1",
			parent:  "I1",
			posts:   1,
		},
		{
			name:    "task names the initiative",
			mutate:  func(p *plan.Plan) { p.Initiatives[0].Epics[0].Stories[0].Tasks[0].ParentStory = "I1" },
			localID: "T1",
			parent:  "I1",
			posts:   2,
		},
		{
			name:    "epic names unknown initiative",
			mutate:  func(p *plan.Plan) { p.Initiatives[0].Epics[0].ParentInitiative = "I7" },
			localID: "E1",
			parent:  "I7",
			posts:   0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := linearPlan()
			tt.mutate(p)
			poster := &fakePoster{}

			_, err := New(newFakeResolver(), poster).CreatePlan(context.Background(), p, "acc", "", nil)
			require.Error(t, err)

			var upe *UnresolvedParentError
			require.True(t, errors.As(err, &upe))
			assert.Equal(t, tt.localID, upe.LocalID)
			assert.Equal(t, tt.parent, upe.ParentID)
			assert.Equal(t, berrors.ErrCodeUnresolvedParent, berrors.CodeOf(err))
			assert.Len(t, poster.posts, tt.posts)
		})
	}
}

func TestProgressIsMonotonic(t *testing.T) {
	p := linearPlan()
	p.Initiatives = append(p.Initiatives, plan.Initiative{Base: plan.Base{LocalID: "I2", Summary: "Empty"}})

	var messages []string
	var fractions []float64
	progress := func(msg string, f float64) error {
		messages = append(messages, msg)
		fractions = append(fractions, f)
		return nil
	}

	_, err := New(newFakeResolver(), &fakePoster{}).CreatePlan(context.Background(), p, "acc", "", progress)
	require.NoError(t, err)

	require.Len(t, fractions, 5)
	for i := 1; i < len(fractions); i++ {
		assert.Greater(t, fractions[i], fractions[i-1])
	}
	for _, f := range fractions[:4] {
		assert.Less(t, f, 1.0)
	}
	assert.Equal(t, 1.0, fractions[4])
	assert.Equal(t, "Grouped initiative I1", messages[0])
	assert.Equal(t, "Created epic PROJ-1 (E1)", messages[1])
}

func TestProgressErrStopHalts(t *testing.T) {
	poster := &fakePoster{}
	calls := 0
	progress := func(string, float64) error {
		calls++
		if calls == 2 {
			return ErrStop
		}
		return nil
	}

	ids, err := New(newFakeResolver(), poster).CreatePlan(context.Background(), linearPlan(), "acc", "", progress)
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.True(t, runErr.Stopped())
	assert.False(t, runErr.Halted())
	assert.Equal(t, berrors.ErrCodeRunStopped, berrors.CodeOf(err))
	assert.Equal(t, IdentifierMap{"I1": InitiativePlaceholder, "E1": "PROJ-1"}, ids)
	assert.Len(t, poster.posts, 1)
}

func TestProgressErrStopAfterLastItemCompletes(t *testing.T) {
	progress := func(_ string, f float64) error {
		if f == 1.0 {
			return ErrStop
		}
		return nil
	}
	_, err := New(newFakeResolver(), &fakePoster{}).CreatePlan(context.Background(), linearPlan(), "acc", "", progress)
	assert.NoError(t, err)
}

func TestContextCancelledBetweenItems(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	poster := &fakePoster{}
	progress := func(msg string, _ float64) error {
		if msg == "Created epic PROJ-1 (E1)" {
			cancel()
		}
		return nil
	}

	_, err := New(newFakeResolver(), poster).CreatePlan(ctx, linearPlan(), "acc", "", progress)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, poster.posts, 1)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "S1", runErr.LocalID)
}

func TestSchemaFailureBeforeAnyCreation(t *testing.T) {
	resolver := newFakeResolver()
	delete(resolver.sets, "Story")
	poster := &fakePoster{}

	ids, err := New(resolver, poster).CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Empty(t, runErr.LocalID)
	assert.Empty(t, ids)
	assert.Empty(t, poster.posts)
	assert.False(t, runErr.Halted())
	assert.Equal(t, berrors.ErrCodeSchemaNotFound, berrors.CodeOf(err))
	assert.Contains(t, err.Error(), "before creating any issue")
}

func TestMappingFailureHalts(t *testing.T) {
	resolver := newFakeResolver()
	resolver.sets["Story"] = fieldSet("Story", summarySpec,
		schema.FieldSpec{RemoteID: "customfield_1", Name: "Team", Required: true})
	poster := &fakePoster{}

	_, err := New(resolver, poster).CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
	require.Error(t, err)

	var missing *mapper.MissingRequiredFieldsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"team"}, missing.Fields)
	assert.Equal(t, berrors.ErrCodeMissingRequired, berrors.CodeOf(err))
	assert.Len(t, poster.posts, 1)
}

func TestMapperOptionsApplied(t *testing.T) {
	resolver := newFakeResolver()
	resolver.sets["Story"] = fieldSet("Story", summarySpec,
		schema.FieldSpec{RemoteID: "customfield_1", Name: "Team", Required: true})

	o := New(resolver, &fakePoster{}, WithMapperOptions(mapper.Options{Exempt: append([]string{"team"}, mapper.DefaultExempt...)}))
	_, err := o.CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
	assert.NoError(t, err)
}

func TestResponseWithoutKey(t *testing.T) {
	poster := &fakePoster{body: func(int) string { return `{"id":"1"}` }}

	_, err := New(newFakeResolver(), poster).CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
	require.Error(t, err)
	assert.Equal(t, berrors.ErrCodeTrackerNoKey, berrors.CodeOf(err))
}

func TestRunsResetState(t *testing.T) {
	o := New(newFakeResolver(), &fakePoster{})

	_, err := o.CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
	require.NoError(t, err)
	first := o.RunID()

	p := plan.New("PROJ", plan.Initiative{Base: plan.Base{LocalID: "X1", Summary: "only"}})
	ids, err := o.CreatePlan(context.Background(), p, "acc", "", nil)
	require.NoError(t, err)

	assert.NotEqual(t, first, o.RunID())
	assert.Equal(t, IdentifierMap{"X1": InitiativePlaceholder}, ids)
}

func TestMetricsRecorded(t *testing.T) {
	_, m := metrics.NewRegistry()
	poster := &fakePoster{fail: map[string]error{"Task": errors.New("boom")}}

	_, err := New(newFakeResolver(), poster, WithMetrics(m)).CreatePlan(context.Background(), linearPlan(), "acc", "", nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IssuesCreated.WithLabelValues("epic")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IssuesCreated.WithLabelValues("story")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.IssueCreateErrors.WithLabelValues("task", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("failed")))
}
