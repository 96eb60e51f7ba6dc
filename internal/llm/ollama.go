package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/trace"
	"ai-crypto-trader/internal/types"
)

// OllamaProvider talks to a local Ollama daemon. It is the last link in
// the fallback chain and needs no API key.
type OllamaProvider struct {
	client *resty.Client
}

var _ interfaces.AIProvider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL string, timeout time.Duration) *OllamaProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	return &OllamaProvider{client: client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

// Available probes the daemon's tag listing. A short deadline keeps a
// dead daemon from stalling the chain.
func (p *OllamaProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	resp, err := p.client.R().SetContext(ctx).Get("/api/tags")
	return err == nil && resp.IsSuccess()
}

type ollamaRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  struct {
		Temperature float64 `json:"temperature,omitempty"`
		NumPredict  int     `json:"num_predict,omitempty"`
	} `json:"options"`
}

type ollamaResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error,omitempty"`
}

func (p *OllamaProvider) Complete(ctx context.Context, prompt string, opts types.CompletionOptions) (string, error) {
	ctx, span := trace.StartSpan(ctx, "ollama-api-call")
	defer span.End()

	body := ollamaRequest{
		Model:  opts.Model,
		Stream: false,
		Messages: []chatMessage{
			{Role: "system", Content: opts.SystemMessage},
			{Role: "user", Content: prompt},
		},
	}
	body.Options.Temperature = opts.Temperature
	body.Options.NumPredict = opts.MaxTokens

	var out ollamaResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		SetError(&out).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	if resp.IsError() {
		if out.Error != "" {
			return "", fmt.Errorf("ollama http %d: %s", resp.StatusCode(), out.Error)
		}
		return "", fmt.Errorf("ollama http %d", resp.StatusCode())
	}
	content := strings.TrimSpace(out.Message.Content)
	if content == "" {
		return "", errors.New("ollama: empty response")
	}
	return content, nil
}
