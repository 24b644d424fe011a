package port

import "context"

// InvokeInput carries one classification request to a model provider.
type InvokeInput struct {
	Prompt string
	Images [][]byte // optional PNG page snapshots, attached in order
}

// InvokeOutput is the provider's raw reply before any decoding.
type InvokeOutput struct {
	RawText   string
	ModelUsed string
}

// ModelClient abstracts one LLM provider endpoint.
type ModelClient interface {
	Invoke(ctx context.Context, input InvokeInput) (*InvokeOutput, error)
}
