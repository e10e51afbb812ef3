package openai_compat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cobaltgrid/axon/pkg/providers"
)

const defaultRequestTimeout = 120 * time.Second

// Transport speaks the OpenAI-compatible /chat/completions wire format
// against whichever base URL the gateway hands it. One instance serves the
// primary and every backup endpoint.
type Transport struct {
	httpClient *http.Client
}

type Option func(*Transport)

func WithRequestTimeout(timeout time.Duration) Option {
	return func(t *Transport) {
		if timeout > 0 {
			t.httpClient.Timeout = timeout
		}
	}
}

func NewTransport(proxy string, opts ...Option) *Transport {
	client := &http.Client{
		Timeout: defaultRequestTimeout,
	}

	if proxy != "" {
		parsed, err := url.Parse(proxy)
		if err == nil {
			client.Transport = &http.Transport{
				Proxy: http.ProxyURL(parsed),
			}
		} else {
			log.Printf("openai_compat: invalid proxy URL %q: %v", proxy, err)
		}
	}

	t := &Transport{httpClient: client}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	return t
}

func (t *Transport) Name() string {
	return "openai_compat"
}

func (t *Transport) Complete(
	ctx context.Context,
	ep providers.Endpoint,
	req providers.CompletionRequest,
) (*providers.CompletionResult, error) {
	if ep.BaseURL == "" {
		return nil, fmt.Errorf("endpoint %s: base URL not configured", ep.Name)
	}

	// User prompt is always the final message.
	messages := make([]providers.Message, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, providers.Message{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, providers.Message{Role: "user", Content: req.UserPrompt})

	requestBody := map[string]any{
		"model":    ep.Model,
		"messages": messages,
	}
	if req.Params.MaxTokens > 0 {
		requestBody["max_tokens"] = req.Params.MaxTokens
	}
	if req.Params.N > 1 {
		requestBody["n"] = req.Params.N
	}
	requestBody["temperature"] = req.Params.Temperature
	if req.Params.TopP > 0 {
		requestBody["top_p"] = req.Params.TopP
	}
	if req.Params.FrequencyPenalty != 0 {
		requestBody["frequency_penalty"] = req.Params.FrequencyPenalty
	}
	if req.Params.PresencePenalty != 0 {
		requestBody["presence_penalty"] = req.Params.PresencePenalty
	}
	if len(req.Params.Stop) > 0 {
		requestBody["stop"] = req.Params.Stop
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	base := strings.TrimRight(ep.BaseURL, "/")
	httpReq, err := http.NewRequestWithContext(ctx, "POST", base+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if ep.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+ep.APIKey)
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &providers.HTTPError{Status: resp.StatusCode, Body: string(body)}
	}

	return parseResponse(body, ep)
}

func parseResponse(body []byte, ep providers.Endpoint) (*providers.CompletionResult, error) {
	var apiResponse struct {
		Model   string               `json:"model"`
		Choices []providers.Choice   `json:"choices"`
		Usage   *providers.UsageInfo `json:"usage"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	model := apiResponse.Model
	if model == "" {
		model = ep.Model
	}

	// Normalize: every choice is an assistant message even when the
	// endpoint omits the role field.
	for i := range apiResponse.Choices {
		if apiResponse.Choices[i].Message.Role == "" {
			apiResponse.Choices[i].Message.Role = "assistant"
		}
	}

	return &providers.CompletionResult{
		Provider: ep.Name,
		Model:    model,
		Choices:  apiResponse.Choices,
		Usage:    apiResponse.Usage,
	}, nil
}
