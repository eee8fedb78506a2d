package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/felixgeelhaar/backlog/internal/domain"
	"github.com/felixgeelhaar/backlog/internal/projectctx"
)

const noStyleGuide = "No prior style guide available."

// buildSystemPrompt creates the system prompt for request-to-plan conversion
func buildSystemPrompt(priorities []domain.Priority) string {
	labels := make([]string, len(priorities))
	for i, p := range priorities {
		labels[i] = p.String()
	}
	return fmt.Sprintf(`You are a senior agile project planner. Your task is to turn a feature request into a product backlog for an issue tracker.

Structure the backlog as initiatives containing epics, epics containing stories and stories containing tasks.

Guidelines:
1. Give every item a local_id that is unique within the plan: I1, I2 for initiatives, E1, E2 for epics, S1, S2 for stories, T1, T2 for tasks
2. Set parent_initiative, parent_epic and parent_story to the local_id of the enclosing item
3. Write summaries in the project's style; keep them short and specific
4. Give every story a description, acceptance criteria and story points
5. Use only these priorities: %s
6. Fill every required field listed in the fields guide

Output Requirements:
- Return ONLY valid JSON matching the plan schema
- Do NOT include markdown formatting or explanations`, strings.Join(labels, ", "))
}

// buildUserPrompt creates the user prompt from the request and project context
func buildUserPrompt(req Request, schema string) string {
	var b strings.Builder
	section := func(title, body, fallback string) {
		if strings.TrimSpace(body) == "" {
			body = fallback
		}
		fmt.Fprintf(&b, "=== %s ===\n%s\n\n", title, body)
	}

	section("PROJECT KEY", domain.NormalizeProjectKey(req.ProjectKey), "")
	if req.ProjectBrief != "" {
		section("PROJECT CONTEXT", req.ProjectBrief, "")
	}
	section("FEATURE REQUEST", req.Prompt, "")
	section("STYLE GUIDE", req.StyleGuide, noStyleGuide)
	section("FIELDS GUIDE", req.FieldsGuide, projectctx.NoFieldConstraints)
	section("PLAN SCHEMA", schema, "")
	return strings.TrimRight(b.String(), "\n")
}

var jsonBlockRegex = regexp.MustCompile("```(?:json)?\\s*\\n([\\s\\S]*?)```")

// extractJSON pulls a JSON object out of a reply that may wrap it in a
// markdown code block or surround it with prose.
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "{") && strings.HasSuffix(content, "}") {
		return content
	}

	if matches := jsonBlockRegex.FindStringSubmatch(content); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	start := strings.Index(content, "{")
	if start == -1 {
		return ""
	}

	// Find the matching closing brace, skipping braces inside strings.
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(content); i++ {
		c := content[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}
	return ""
}
