package provider

import (
	"context"
)

// ProviderClient is implemented by every language-model backend the plan
// generator can use.
type ProviderClient interface {
	// Generate sends a prompt and returns the complete response.
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)

	// GetInfo returns the provider's name, default model and endpoint.
	GetInfo() *ProviderInfo

	// Close releases idle connections.
	Close() error
}

// ProviderInfo contains metadata about a provider
type ProviderInfo struct {
	// Name is the provider identifier, e.g. "anthropic"
	Name string

	// Model is the default model used when a request does not name one
	Model string

	// BaseURL is the API root requests are sent to
	BaseURL string
}
