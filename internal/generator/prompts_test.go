package generator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/felixgeelhaar/backlog/internal/domain"
	"github.com/felixgeelhaar/backlog/internal/projectctx"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare object", `  {"a":1}  `, `{"a":1}`},
		{"json code block", "text\n```json\n{\"a\":1}\n```", `{"a":1}`},
		{"plain code block", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"embedded in prose", `Sure! {"a":{"b":2}} Done.`, `{"a":{"b":2}}`},
		{"brace inside string", `Result: {"s":"a } b","n":{"x":"\"}"}} trailing`, `{"s":"a } b","n":{"x":"\"}"}}`},
		{"no object", "nothing here", ""},
		{"unterminated", `{"a":`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.content))
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt(Request{
		ProjectKey:   "demo",
		Prompt:       "Add SSO",
		ProjectBrief: "Project DEMO: Demo",
	}, `{"type":"object"}`)

	assert.True(t, strings.HasPrefix(prompt, "=== PROJECT KEY ===\nDEMO\n\n"))
	assert.Contains(t, prompt, "=== PROJECT CONTEXT ===\nProject DEMO: Demo")
	assert.Contains(t, prompt, "=== STYLE GUIDE ===\n"+noStyleGuide)
	assert.Contains(t, prompt, "=== FIELDS GUIDE ===\n"+projectctx.NoFieldConstraints)
	assert.True(t, strings.HasSuffix(prompt, "=== PLAN SCHEMA ===\n{\"type\":\"object\"}"))
}

func TestBuildUserPromptOmitsEmptyBrief(t *testing.T) {
	assert.NotContains(t, buildUserPrompt(Request{ProjectKey: "DEMO", Prompt: "x"}, "{}"), "PROJECT CONTEXT")
}

func TestBuildSystemPrompt(t *testing.T) {
	prompt := buildSystemPrompt([]domain.Priority{domain.PriorityHigh, domain.PriorityLow})
	assert.Contains(t, prompt, "Use only these priorities: High, Low")
	assert.Contains(t, prompt, "Return ONLY valid JSON")
}
