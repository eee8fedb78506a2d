package provider

import (
	"encoding/json"
	"time"
)

// GenerateRequest contains all parameters for generating a response
type GenerateRequest struct {
	// Prompt is the user message
	Prompt string `json:"prompt"`

	// SystemPrompt sets the system-level instructions
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Model overrides the provider's default model
	Model string `json:"model,omitempty"`

	// MaxTokens limits the maximum response length.
	// Set to 0 to use provider default
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness (0.0 = deterministic)
	Temperature float64 `json:"temperature,omitempty"`

	// ResponseSchema asks the provider for structured output conforming to
	// this JSON schema. Content then holds the JSON document.
	ResponseSchema json.RawMessage `json:"response_schema,omitempty"`

	// SchemaName names the structured output, e.g. "plan"
	SchemaName string `json:"schema_name,omitempty"`

	// Metadata for tracking and debugging
	Metadata map[string]string `json:"metadata,omitempty"`
}

// GenerateResponse contains the model's response
type GenerateResponse struct {
	// Content is the generated text, or the JSON document for structured output
	Content string `json:"content"`

	// TokensUsed is the total tokens consumed (input + output)
	TokensUsed int `json:"tokens_used"`

	// InputTokens is tokens in the prompt
	InputTokens int `json:"input_tokens,omitempty"`

	// OutputTokens is tokens in the response
	OutputTokens int `json:"output_tokens,omitempty"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Latency is how long the generation took
	Latency time.Duration `json:"latency"`

	// FinishReason explains why generation stopped
	// Common values: "stop" / "end_turn" (natural end), "length" / "max_tokens"
	FinishReason string `json:"finish_reason"`

	// Provider is the name of the provider that handled this request
	Provider string `json:"provider"`
}

// Truncated reports whether generation stopped at the token limit.
func (r *GenerateResponse) Truncated() bool {
	return r.FinishReason == "length" || r.FinishReason == "max_tokens"
}
