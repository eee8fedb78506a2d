package provider

import (
	"context"
	"encoding/json"
	"time"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicModel   = "claude-sonnet-4-5"
	anthropicVersion = "2023-06-01"
)

// AnthropicProvider implements ProviderClient for the Anthropic Messages API.
// Structured output is requested as a forced tool call whose input schema is
// the response schema.
type AnthropicProvider struct {
	api       *apiClient
	model     string
	maxTokens int
	temp      float64
}

// Anthropic API request/response structures
type anthropicRequest struct {
	Model       string               `json:"model"`
	Messages    []anthropicMessage   `json:"messages"`
	System      string               `json:"system,omitempty"`
	MaxTokens   int                  `json:"max_tokens"`
	Temperature float64              `json:"temperature"`
	Tools       []anthropicTool      `json:"tools,omitempty"`
	ToolChoice  *anthropicToolChoice `json:"tool_choice,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type anthropicToolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason,omitempty"`
	Usage      anthropicUsage     `json:"usage"`
}

type anthropicContent struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewAnthropicProvider creates a new Anthropic provider instance
func NewAnthropicProvider(cfg Config, opts ...Option) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, berrors.NewGeneratorAuthError(NameAnthropic)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = anthropicModel
	}
	// Anthropic requires max_tokens
	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	headers := map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}
	return &AnthropicProvider{
		api:       newAPIClient(NameAnthropic, baseURL, cfg, headers, opts),
		model:     model,
		maxTokens: maxTokens,
		temp:      cfg.Temperature,
	}, nil
}

// Generate implements ProviderClient.Generate
func (p *AnthropicProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	var resp anthropicResponse
	if err := p.api.post(ctx, "/messages", p.buildRequest(req), &resp, anthropicErrorMessage); err != nil {
		return nil, err
	}

	var content string
	for _, block := range resp.Content {
		if len(req.ResponseSchema) > 0 && block.Type == "tool_use" {
			content = string(block.Input)
			break
		}
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &GenerateResponse{
		Content:      content,
		TokensUsed:   resp.Usage.InputTokens + resp.Usage.OutputTokens,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Model:        resp.Model,
		Latency:      time.Since(start),
		FinishReason: resp.StopReason,
		Provider:     NameAnthropic,
	}, nil
}

// buildRequest constructs an Anthropic API request from our GenerateRequest
func (p *AnthropicProvider) buildRequest(req *GenerateRequest) *anthropicRequest {
	out := &anthropicRequest{
		Model:       p.model,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		System:      req.SystemPrompt,
		MaxTokens:   p.maxTokens,
		Temperature: p.temp,
	}
	if req.Model != "" {
		out.Model = req.Model
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		out.Temperature = req.Temperature
	}
	if len(req.ResponseSchema) > 0 {
		name := schemaName(req)
		out.Tools = []anthropicTool{{
			Name:        name,
			Description: "Return the result as structured " + name + " data.",
			InputSchema: req.ResponseSchema,
		}}
		out.ToolChoice = &anthropicToolChoice{Type: "tool", Name: name}
	}
	return out
}

func anthropicErrorMessage(body []byte) string {
	var e anthropicErrorBody
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Message
}

// GetInfo implements ProviderClient.GetInfo
func (p *AnthropicProvider) GetInfo() *ProviderInfo {
	return &ProviderInfo{Name: NameAnthropic, Model: p.model, BaseURL: p.api.baseURL}
}

// Close implements ProviderClient.Close
func (p *AnthropicProvider) Close() error {
	p.api.close()
	return nil
}

func schemaName(req *GenerateRequest) string {
	if req.SchemaName != "" {
		return req.SchemaName
	}
	return "result"
}
