package providers

import (
	"context"
	"errors"
	"fmt"
)

// Endpoint identifies one completion backend. The gateway substitutes a
// backup endpoint's base URL, model and API key into the request on
// failover; an empty APIKey inherits the primary's.
type Endpoint struct {
	Name    string
	BaseURL string
	Model   string
	APIKey  string
}

// GenerationParams carries the sampling settings forwarded verbatim to the
// provider. N is the number of choices requested.
type GenerationParams struct {
	MaxTokens        int
	N                int
	Temperature      float64
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Stop             []string
}

// CompletionRequest is the provider-facing request. UserPrompt is always
// the final message; SystemPrompt, when non-empty, precedes it.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Params       GenerationParams
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Choice struct {
	Message Message `json:"message"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResult is the normalized provider response. Contents returns
// the choice texts in order; a successful result always has at least one
// assistant choice.
type CompletionResult struct {
	Provider string
	Model    string
	Choices  []Choice
	Usage    *UsageInfo
}

func (r *CompletionResult) Contents() []string {
	out := make([]string, 0, len(r.Choices))
	for _, c := range r.Choices {
		out = append(out, c.Message.Content)
	}
	return out
}

// FirstContent returns the first choice's text, or "" for an empty result.
func (r *CompletionResult) FirstContent() string {
	if len(r.Choices) == 0 {
		return ""
	}
	return r.Choices[0].Message.Content
}

// Transport sends one completion request to one endpoint. Implementations
// live in the subpackages (openai_compat, openai_sdk, anthropic_sdk) and
// must return *HTTPError for non-2xx provider responses so the gateway can
// tell a server rejection from a connection failure.
type Transport interface {
	Name() string
	Complete(ctx context.Context, ep Endpoint, req CompletionRequest) (*CompletionResult, error)
}

// HTTPError is a non-2xx provider response, with the raw body preserved.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("provider request failed:\n  Status: %d\n  Body:   %s", e.Status, e.Body)
}

// IsServerError reports whether err is an HTTP-level failure with a 5xx
// status, the class of failure that triggers immediate failover.
func IsServerError(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status >= 500
	}
	return false
}

// IsTransportError reports whether err is a connection-level failure: any
// error that is not an HTTP status rejection and not a caller cancel.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var he *HTTPError
	return !errors.As(err, &he)
}
