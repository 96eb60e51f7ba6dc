package llm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"ai-crypto-trader/internal/interfaces"
	"ai-crypto-trader/internal/logger"
	"ai-crypto-trader/internal/store"
	"ai-crypto-trader/internal/types"
)

// Settings keys that override the config-file provider defaults at
// runtime. Absent keys leave the config value in force.
const (
	settingOpenAIEnabled     = "OPENAI_ENABLED"
	settingOpenRouterEnabled = "OPENROUTER_ENABLED"
	settingOllamaEnabled     = "OLLAMA_ENABLED"
	settingOpenRouterModel   = "DEFAULT_OPENROUTER_MODEL"
)

// chainEntry is one provider with its config defaults and the settings
// keys that can override them.
type chainEntry struct {
	provider   interfaces.AIProvider
	cfg        store.ProviderConfig
	enabledKey string
	modelKey   string
}

// Orchestrator walks a fixed, prioritized provider chain and records
// every outcome. It implements interfaces.Decider.
type Orchestrator struct {
	chain     []chainEntry
	system    string
	decisions interfaces.DecisionStore
	settings  interfaces.SettingsStore
	alerts    interfaces.AlertPublisher
}

var _ interfaces.Decider = (*Orchestrator)(nil)

// NewOrchestrator wires the OpenAI -> OpenRouter -> Ollama chain from
// config. settings and alerts may be nil.
func NewOrchestrator(cfg *store.Config, settings interfaces.SettingsStore, decisions interfaces.DecisionStore, alerts interfaces.AlertPublisher) *Orchestrator {
	timeout := time.Duration(cfg.AI.TimeoutSeconds) * time.Second
	return &Orchestrator{
		chain: []chainEntry{
			{provider: NewOpenAIProvider(cfg.AI.OpenAI.BaseURL, timeout), cfg: cfg.AI.OpenAI, enabledKey: settingOpenAIEnabled},
			{provider: NewOpenRouterProvider(cfg.AI.OpenRouter.BaseURL, timeout), cfg: cfg.AI.OpenRouter, enabledKey: settingOpenRouterEnabled, modelKey: settingOpenRouterModel},
			{provider: NewOllamaProvider(cfg.AI.Ollama.BaseURL, timeout), cfg: cfg.AI.Ollama, enabledKey: settingOllamaEnabled},
		},
		system:    cfg.AI.SystemMessage,
		decisions: decisions,
		settings:  settings,
		alerts:    alerts,
	}
}

// GetDecision renders the prompt, walks the chain until a provider
// returns a non-empty response, parses it, and persists the decision
// record unconditionally. Provider failures never surface as errors;
// an exhausted chain yields NO_ACTION.
func (o *Orchestrator) GetDecision(ctx context.Context, pctx types.PromptContext, instrumentID int64) (types.Decision, error) {
	prompt := BuildPrompt(pctx)
	overrides := o.loadOverrides(ctx)

	d := types.Decision{
		InstrumentID: instrumentID,
		Symbol:       pctx.Symbol,
		Action:       types.ActionNoAction,
		Prompt:       prompt,
		CreatedAt:    time.Now().UTC(),
	}

	var lastErr error
	for _, entry := range o.chain {
		if !o.enabled(entry, overrides) {
			continue
		}
		if !entry.provider.Available(ctx) {
			logger.Debug(ctx, "AI provider not available, trying next",
				"provider", entry.provider.Name(), "symbol", pctx.Symbol)
			continue
		}

		model := o.model(entry, overrides)
		raw, err := entry.provider.Complete(ctx, prompt, types.CompletionOptions{
			Model:         model,
			Temperature:   entry.cfg.Temperature,
			MaxTokens:     entry.cfg.MaxTokens,
			SystemMessage: o.system,
		})
		if err != nil {
			lastErr = err
			logger.Warn(ctx, "AI provider failed, trying next",
				"provider", entry.provider.Name(), "symbol", pctx.Symbol, "error", err.Error())
			continue
		}
		if raw == "" {
			lastErr = fmt.Errorf("%s: empty response", entry.provider.Name())
			continue
		}

		d.Provider = entry.provider.Name()
		d.Model = model
		d.RawResponse = raw
		d.Action, d.Reason = ParseResponse(raw)
		o.record(ctx, d)
		return d, nil
	}

	if lastErr != nil {
		d.Reason = fmt.Sprintf("all AI providers failed, last error: %v", lastErr)
	} else {
		d.Reason = "no AI provider available"
	}
	o.record(ctx, d)
	return d, nil
}

// record persists and publishes the decision. Neither failure mode is
// allowed to disturb the trading pass.
func (o *Orchestrator) record(ctx context.Context, d types.Decision) {
	if o.decisions != nil {
		if err := o.decisions.AppendDecision(ctx, d); err != nil {
			logger.ErrorWithErr(ctx, "Failed to persist AI decision", err,
				"symbol", d.Symbol, "action", d.Action)
		}
	}
	if o.alerts != nil {
		if err := o.alerts.PublishDecision(ctx, d); err != nil {
			logger.Warn(ctx, "Failed to publish decision event",
				"symbol", d.Symbol, "error", err.Error())
		}
	}
}

// loadOverrides fetches the runtime provider flags. A store error is
// logged and treated as "no overrides".
func (o *Orchestrator) loadOverrides(ctx context.Context) map[string]string {
	if o.settings == nil {
		return nil
	}
	vals, err := o.settings.Get(ctx, []string{
		settingOpenAIEnabled, settingOpenRouterEnabled, settingOllamaEnabled, settingOpenRouterModel,
	})
	if err != nil {
		logger.Warn(ctx, "Failed to load provider settings, using config defaults", "error", err.Error())
		return nil
	}
	return vals
}

func (o *Orchestrator) enabled(entry chainEntry, overrides map[string]string) bool {
	if v, ok := overrides[entry.enabledKey]; ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return entry.cfg.Enabled
}

func (o *Orchestrator) model(entry chainEntry, overrides map[string]string) string {
	if entry.modelKey != "" {
		if v, ok := overrides[entry.modelKey]; ok && v != "" {
			return v
		}
	}
	return entry.cfg.Model
}
