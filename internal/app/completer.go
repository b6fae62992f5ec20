package app

import (
	"context"
	"strings"
	"time"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/observability"
	"dayplan/gateway/internal/provider"
	"dayplan/gateway/internal/repo"
	"dayplan/gateway/internal/runner"
	"dayplan/gateway/internal/service/ports"
)

// modelCompleter backs the planning pipeline with the configured provider,
// falling back to the fallback slot and then the demo adapter so a broken
// provider config never takes planning down.
type modelCompleter struct {
	store   ports.StateStore
	runner  *runner.Runner
	metrics *observability.Metrics
}

func (c *modelCompleter) Complete(ctx context.Context, system string, turns []domain.Turn) (string, error) {
	messages := toRunnerMessages(turns)
	var lastErr error
	for _, cfg := range c.candidates() {
		started := time.Now()
		reply, err := c.runner.GenerateReply(ctx, cfg, system, messages)
		c.observe(cfg.ProviderID, started, err)
		if err == nil {
			return reply, nil
		}
		lastErr = err
	}
	return "", lastErr
}

func (c *modelCompleter) candidates() []runner.GenerateConfig {
	out := make([]runner.GenerateConfig, 0, 3)
	if c.store != nil {
		c.store.ReadModels(func(st ports.ModelsAggregate) {
			for _, slot := range []domain.ModelSlotConfig{st.ActiveLLM, st.FallbackLLM} {
				if cfg, ok := slotGenerateConfig(slot, st.Providers); ok {
					out = append(out, cfg)
				}
			}
		})
	}
	return append(out, runner.GenerateConfig{ProviderID: runner.ProviderDemo})
}

func slotGenerateConfig(slot domain.ModelSlotConfig, providers map[string]repo.ProviderSetting) (runner.GenerateConfig, bool) {
	providerID := provider.NormalizeProviderID(slot.ProviderID)
	model := strings.TrimSpace(slot.Model)
	if providerID == "" || providerID == runner.ProviderDemo || model == "" {
		return runner.GenerateConfig{}, false
	}
	setting, _ := provider.FindProviderSettingByID(providers, providerID)
	provider.NormalizeProviderSetting(&setting)
	if !provider.ProviderEnabled(setting) {
		return runner.GenerateConfig{}, false
	}

	baseURL := setting.BaseURL
	if baseURL == "" {
		baseURL = provider.ResolveProvider(providerID).DefaultBaseURL
	}
	return runner.GenerateConfig{
		ProviderID: providerID,
		Model:      model,
		APIKey:     provider.ResolveProviderAPIKey(providerID, setting, nil),
		BaseURL:    baseURL,
		AdapterID:  provider.ResolveAdapter(providerID),
		Headers:    provider.SanitizeStringMap(setting.Headers),
		TimeoutMS:  setting.TimeoutMS,
	}, true
}

func (c *modelCompleter) observe(providerID string, started time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ProviderRequests.WithLabelValues(providerID, outcome).Inc()
	c.metrics.ProviderLatency.Observe(time.Since(started).Seconds())
}

func toRunnerMessages(turns []domain.Turn) []runner.Message {
	out := make([]runner.Message, 0, len(turns))
	for _, turn := range turns {
		role := "user"
		if turn.Speaker == domain.SpeakerAssistant {
			role = "assistant"
		}
		out = append(out, runner.Message{Role: role, Text: turn.Text})
	}
	return out
}
