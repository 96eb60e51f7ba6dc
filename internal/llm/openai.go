package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/trace"
	"ai-crypto-trader/internal/types"
)

// chatRequest is the OpenAI-compatible chat completion request body,
// shared with the OpenRouter provider.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIProvider calls the OpenAI chat completions endpoint.
type OpenAIProvider struct {
	client *resty.Client
	apiKey string
}

var _ interfaces.AIProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider builds the provider. baseURL defaults to the public
// OpenAI endpoint when empty.
func NewOpenAIProvider(baseURL string, timeout time.Duration) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	return &OpenAIProvider{
		client: client,
		apiKey: os.Getenv("OPENAI_API_KEY"),
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Available only checks for a configured key; reachability is settled
// by the actual completion call.
func (p *OpenAIProvider) Available(ctx context.Context) bool {
	return p.apiKey != ""
}

func (p *OpenAIProvider) Complete(ctx context.Context, prompt string, opts types.CompletionOptions) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	if p.apiKey == "" {
		return "", errors.New("OPENAI_API_KEY missing")
	}

	body := chatRequest{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: opts.SystemMessage},
			{Role: "user", Content: prompt},
		},
	}

	var out chatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("openai http %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("openai http %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: no choices in response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
