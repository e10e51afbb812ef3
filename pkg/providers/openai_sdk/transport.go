package openai_sdk

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/cobaltgrid/axon/pkg/providers"
)

// Transport completes requests through the official OpenAI SDK. Clients are
// cached per endpoint so failover between backups doesn't rebuild them on
// every call.
type Transport struct {
	mu      sync.Mutex
	clients map[string]*openai.Client
}

func NewTransport() *Transport {
	return &Transport{
		clients: make(map[string]*openai.Client),
	}
}

func (t *Transport) Name() string {
	return "openai_sdk"
}

func (t *Transport) client(ep providers.Endpoint) *openai.Client {
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
	client := openai.NewClient(reqOpts...)
	t.clients[key] = &client
	return &client
}

func (t *Transport) Complete(
	ctx context.Context,
	ep providers.Endpoint,
	req providers.CompletionRequest,
) (*providers.CompletionResult, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}
	msgs = append(msgs, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(ep.Model),
		Messages:    msgs,
		Temperature: openai.Float(req.Params.Temperature),
	}
	if req.Params.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.Params.MaxTokens))
	}
	if req.Params.N > 1 {
		params.N = openai.Int(int64(req.Params.N))
	}
	if req.Params.TopP > 0 {
		params.TopP = openai.Float(req.Params.TopP)
	}
	if req.Params.FrequencyPenalty != 0 {
		params.FrequencyPenalty = openai.Float(req.Params.FrequencyPenalty)
	}
	if req.Params.PresencePenalty != 0 {
		params.PresencePenalty = openai.Float(req.Params.PresencePenalty)
	}

	resp, err := t.client(ep).Chat.Completions.New(ctx, params)
	if err != nil {
		var apierr *openai.Error
		if errors.As(err, &apierr) {
			return nil, &providers.HTTPError{Status: apierr.StatusCode, Body: apierr.Error()}
		}
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	choices := make([]providers.Choice, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		choices = append(choices, providers.Choice{
			Message: providers.Message{
				Role:    "assistant",
				Content: c.Message.Content,
			},
		})
	}

	result := &providers.CompletionResult{
		Provider: ep.Name,
		Model:    string(resp.Model),
		Choices:  choices,
	}
	if resp.Usage.TotalTokens > 0 {
		result.Usage = &providers.UsageInfo{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		}
	}
	return result, nil
}
