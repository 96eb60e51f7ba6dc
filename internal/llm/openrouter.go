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

// OpenRouterProvider calls OpenRouter's OpenAI-compatible endpoint. It
// is the middle link in the fallback chain.
type OpenRouterProvider struct {
	client *resty.Client
	apiKey string
}

var _ interfaces.AIProvider = (*OpenRouterProvider)(nil)

func NewOpenRouterProvider(baseURL string, timeout time.Duration) *OpenRouterProvider {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("HTTP-Referer", "https://github.com/ai-crypto-trader")
	client.SetHeader("X-Title", "ai-crypto-trader")
	return &OpenRouterProvider{
		client: client,
		apiKey: os.Getenv("OPENROUTER_API_KEY"),
	}
}

func (p *OpenRouterProvider) Name() string { return "openrouter" }

func (p *OpenRouterProvider) Available(ctx context.Context) bool {
	return p.apiKey != ""
}

func (p *OpenRouterProvider) Complete(ctx context.Context, prompt string, opts types.CompletionOptions) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openrouter-api-call")
	defer span.End()

	if p.apiKey == "" {
		return "", errors.New("OPENROUTER_API_KEY missing")
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
		return "", fmt.Errorf("openrouter: %w", err)
	}
	if resp.IsError() {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("openrouter http %d: %s", resp.StatusCode(), out.Error.Message)
		}
		return "", fmt.Errorf("openrouter http %d", resp.StatusCode())
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openrouter: no choices in response")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
