package provider

import (
	"context"
	"encoding/json"
	"time"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

const (
	openAIBaseURL = "https://api.openai.com/v1"
	openAIModel   = "gpt-4o-mini"
)

// OpenAIProvider implements ProviderClient for the OpenAI Chat Completions
// API. Structured output uses the json_schema response format.
type OpenAIProvider struct {
	api       *apiClient
	model     string
	maxTokens int
	temp      float64
}

// OpenAI API request/response structures
type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type       string            `json:"type"`
	JSONSchema *openAIJSONSchema `json:"json_schema,omitempty"`
}

type openAIJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
	Strict bool            `json:"strict"`
}

type openAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Choices []openAIChoice `json:"choices"`
	Usage   openAIUsage    `json:"usage"`
}

type openAIChoice struct {
	Index        int           `json:"index"`
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason,omitempty"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type openAIErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIProvider creates a new OpenAI provider instance
func NewOpenAIProvider(cfg Config, opts ...Option) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, berrors.NewGeneratorAuthError(NameOpenAI)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openAIModel
	}

	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	return &OpenAIProvider{
		api:       newAPIClient(NameOpenAI, baseURL, cfg, headers, opts),
		model:     model,
		maxTokens: cfg.MaxTokens,
		temp:      cfg.Temperature,
	}, nil
}

// Generate implements ProviderClient.Generate
func (p *OpenAIProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	start := time.Now()

	var resp openAIResponse
	if err := p.api.post(ctx, "/chat/completions", p.buildRequest(req), &resp, openAIErrorMessage); err != nil {
		return nil, err
	}

	var content, finish string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
		finish = resp.Choices[0].FinishReason
	}

	return &GenerateResponse{
		Content:      content,
		TokensUsed:   resp.Usage.TotalTokens,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
		Latency:      time.Since(start),
		FinishReason: finish,
		Provider:     NameOpenAI,
	}, nil
}

// buildRequest constructs an OpenAI API request from our GenerateRequest
func (p *OpenAIProvider) buildRequest(req *GenerateRequest) *openAIRequest {
	var messages []openAIMessage
	if req.SystemPrompt != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	out := &openAIRequest{
		Model:       p.model,
		Messages:    messages,
		Temperature: p.temp,
		MaxTokens:   p.maxTokens,
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
		out.ResponseFormat = &openAIResponseFormat{
			Type:       "json_schema",
			JSONSchema: &openAIJSONSchema{Name: schemaName(req), Schema: req.ResponseSchema},
		}
	}
	return out
}

func openAIErrorMessage(body []byte) string {
	var e openAIErrorBody
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	return e.Error.Message
}

// GetInfo implements ProviderClient.GetInfo
func (p *OpenAIProvider) GetInfo() *ProviderInfo {
	return &ProviderInfo{Name: NameOpenAI, Model: p.model, BaseURL: p.api.baseURL}
}

// Close implements ProviderClient.Close
func (p *OpenAIProvider) Close() error {
	p.api.close()
	return nil
}
