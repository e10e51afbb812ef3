package anthropic_sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/cobaltgrid/axon/pkg/providers"
)

const defaultMaxTokens = 1024

// Transport completes requests through the Anthropic Messages API. The API
// returns exactly one message, so N > 1 still yields a single choice.
type Transport struct {
	mu      sync.Mutex
	clients map[string]*anthropic.Client
}

func NewTransport() *Transport {
	return &Transport{
		clients: make(map[string]*anthropic.Client),
	}
}

func (t *Transport) Name() string {
	return "anthropic_sdk"
}

func (t *Transport) client(ep providers.Endpoint) *anthropic.Client {
	key := ep.BaseURL + "|" + ep.APIKey
	t.mu.Lock()
	defer t.mu.Unlock()

	if c, ok := t.clients[key]; ok {
		return c
	}

	reqOpts := []option.RequestOption{}
	if ep.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(ep.BaseURL))
	}
	if ep.APIKey != "" {
		reqOpts = append(reqOpts, option.WithAPIKey(ep.APIKey))
	}
	client := anthropic.NewClient(reqOpts...)
	t.clients[key] = &client
	return &client
}

func (t *Transport) Complete(
	ctx context.Context,
	ep providers.Endpoint,
	req providers.CompletionRequest,
) (*providers.CompletionResult, error) {
	maxTokens := req.Params.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(ep.Model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.SystemPrompt},
		}
	}
	if req.Params.Temperature > 0 {
		params.Temperature = anthropic.Float(req.Params.Temperature)
	}
	if req.Params.TopP > 0 {
		params.TopP = anthropic.Float(req.Params.TopP)
	}
	if len(req.Params.Stop) > 0 {
		params.StopSequences = req.Params.Stop
	}

	msg, err := t.client(ep).Messages.New(ctx, params)
	if err != nil {
		var apierr *anthropic.Error
		if errors.As(err, &apierr) {
			return nil, &providers.HTTPError{Status: apierr.StatusCode, Body: apierr.Error()}
		}
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}

	var content string
	for _, block := range msg.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &providers.CompletionResult{
		Provider: ep.Name,
		Model:    string(msg.Model),
		Choices: []providers.Choice{
			{Message: providers.Message{Role: "assistant", Content: content}},
		},
		Usage: &providers.UsageInfo{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}, nil
}
