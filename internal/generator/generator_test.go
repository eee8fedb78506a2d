package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/backlog/internal/domain"
	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/metrics"
	"github.com/felixgeelhaar/backlog/internal/plan"
	"github.com/felixgeelhaar/backlog/internal/provider"
)

const validPlan = `{
  "project_key": "demo",
  "initiatives": [{
    "local_id": "I1",
    "summary": "Checkout",
    "epics": [{
      "local_id": "E1",
      "summary": "Cart",
      "priority": "High",
      "parent_initiative": "I1",
      "stories": [{
        "local_id": "S1",
        "summary": "Add coupon field",
        "description": "Customers can enter a coupon",
        "story_points": 3,
        "acceptance_criteria": ["Valid coupon reduces total"],
        "parent_epic": "E1",
        "tasks": [{"local_id": "T1", "summary": "Coupon API", "parent_story": "S1"}]
      }]
    }]
  }]
}`

// mockProvider returns a canned reply and records the last request.
type mockProvider struct {
	response *provider.GenerateResponse
	err      error
	last     *provider.GenerateRequest
}

func (m *mockProvider) Generate(_ context.Context, req *provider.GenerateRequest) (*provider.GenerateResponse, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *mockProvider) GetInfo() *provider.ProviderInfo {
	return &provider.ProviderInfo{Name: "test-provider", Model: "test-model"}
}

func (m *mockProvider) Close() error { return nil }

func reply(content string) *mockProvider {
	return &mockProvider{response: &provider.GenerateResponse{
		Content:      content,
		Model:        "test-model",
		Provider:     "test-provider",
		FinishReason: "end_turn",
	}}
}

func newGenerator(t *testing.T, client provider.ProviderClient, opts ...Option) *Generator {
	t.Helper()
	g, err := New(client, opts...)
	require.NoError(t, err)
	return g
}

func TestGenerate(t *testing.T) {
	client := reply(validPlan)
	g := newGenerator(t, client)

	p, err := g.Generate(context.Background(), Request{
		ProjectKey:  "DEMO",
		Prompt:      "Let shoppers redeem coupons",
		StyleGuide:  "=== Jira Ticket Style Guide ===",
		FieldsGuide: "Story (DEMO) required fields: none",
	})
	require.NoError(t, err)

	assert.Equal(t, "DEMO", p.ProjectKey)
	assert.Equal(t, map[plan.Kind]int{plan.KindInitiative: 1, plan.KindEpic: 1, plan.KindStory: 1, plan.KindTask: 1}, p.Counts())

	require.NotNil(t, client.last)
	assert.Equal(t, "plan", client.last.SchemaName)
	assert.JSONEq(t, string(g.schemaJSON), string(client.last.ResponseSchema))
	assert.Contains(t, client.last.Prompt, "=== FEATURE REQUEST ===\nLet shoppers redeem coupons")
	assert.Contains(t, client.last.Prompt, "=== STYLE GUIDE ===\n=== Jira Ticket Style Guide ===")
	assert.Contains(t, client.last.SystemPrompt, "Highest, High, Medium, Low, Lowest")
}

func TestGenerateFromMarkdownReply(t *testing.T) {
	g := newGenerator(t, reply("Here is the plan:\n```json\n"+validPlan+"\n```\nLet me know."))
	p, err := g.Generate(context.Background(), Request{ProjectKey: "DEMO", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, 4, p.Len())
}

func TestGenerateOverridesProjectKey(t *testing.T) {
	g := newGenerator(t, reply(validPlan))
	p, err := g.Generate(context.Background(), Request{ProjectKey: "shop", Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "SHOP", p.ProjectKey)
}

func TestGenerateOutputErrors(t *testing.T) {
	tests := []struct {
		name    string
		client  *mockProvider
		wantMsg string
	}{
		{"no json", reply("I cannot help with that."), "contains no JSON object"},
		{"broken json", reply(`{"project_key": "DEMO", "initiatives": [}`), "not valid JSON"},
		{"missing local id", reply(`{"project_key":"DEMO","initiatives":[{"summary":"x"}]}`), "does not match the plan schema"},
		{"unknown property", reply(`{"project_key":"DEMO","initiatives":[],"owner":"me"}`), "does not match the plan schema"},
		{
			name: "duplicate ids",
			client: reply(`{"project_key":"DEMO","initiatives":[
				{"local_id":"I1","summary":"a"},
				{"local_id":"I1","summary":"b"}]}`),
			wantMsg: "generated plan is invalid",
		},
		{
			name: "priority outside scheme",
			client: reply(`{"project_key":"DEMO","initiatives":[{"local_id":"I1","summary":"a",
				"epics":[{"local_id":"E1","summary":"e","priority":"Blocker"}]}]}`),
			wantMsg: "generated plan is invalid",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newGenerator(t, tt.client).Generate(context.Background(), Request{ProjectKey: "DEMO", Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, berrors.ErrCodeGeneratorOutput, berrors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestGenerateInvalidPlanKeepsViolations(t *testing.T) {
	client := reply(`{"project_key":"DEMO","initiatives":[{"local_id":"I1","summary":""}]}`)
	_, err := newGenerator(t, client).Generate(context.Background(), Request{ProjectKey: "DEMO", Prompt: "x"})

	var verr *plan.PlanValidationError
	require.True(t, errors.As(err, &verr))
	assert.NotEmpty(t, verr.Violations)
}

func TestGenerateCustomPriorities(t *testing.T) {
	client := reply(`{"project_key":"DEMO","initiatives":[{"local_id":"I1","summary":"a",
		"epics":[{"local_id":"E1","summary":"e","priority":"Blocker"}]}]}`)
	g := newGenerator(t, client, WithPriorities("Blocker", "Minor"))

	_, err := g.Generate(context.Background(), Request{ProjectKey: "DEMO", Prompt: "x"})
	require.NoError(t, err)
	assert.Contains(t, client.last.SystemPrompt, "Blocker, Minor")
}

func TestGenerateTruncated(t *testing.T) {
	client := reply(validPlan)
	client.response.FinishReason = "max_tokens"
	_, err := newGenerator(t, client).Generate(context.Background(), Request{ProjectKey: "DEMO", Prompt: "x"})
	assert.Equal(t, berrors.ErrCodeGeneratorOutput, berrors.CodeOf(err))
	assert.ErrorContains(t, err, "token limit")
}

func TestGenerateProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want berrors.ErrorCode
	}{
		{"plain error", errors.New("connection reset"), berrors.ErrCodeGeneratorAPI},
		{"coded error kept", berrors.NewGeneratorAuthError("anthropic"), berrors.ErrCodeGeneratorAuth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, m := metrics.NewRegistry()
			g := newGenerator(t, &mockProvider{err: tt.err}, WithMetrics(m))

			_, err := g.Generate(context.Background(), Request{ProjectKey: "DEMO", Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.want, berrors.CodeOf(err))
			assert.Equal(t, 1.0, testutil.ToFloat64(m.GeneratorCalls.WithLabelValues("test-provider", "test-model", "false")))
		})
	}
}

func TestGenerateRejectsBadProjectKey(t *testing.T) {
	client := reply(validPlan)
	_, err := newGenerator(t, client).Generate(context.Background(), Request{ProjectKey: "1x", Prompt: "x"})
	assert.Equal(t, berrors.ErrCodePlanInvalid, berrors.CodeOf(err))
	assert.Nil(t, client.last, "provider must not be called")
}

func TestDefaultPriorities(t *testing.T) {
	g := newGenerator(t, reply(validPlan))
	assert.Equal(t, domain.StandardPriorities, g.priorities)
}
