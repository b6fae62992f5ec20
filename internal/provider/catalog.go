package provider

import (
	"sort"
	"strings"
)

const (
	AdapterDemo             = "demo"
	AdapterOpenAICompatible = "openai-compatible"
)

type ModelSpec struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status,omitempty"`
}

type ProviderSpec struct {
	ID                 string      `json:"id"`
	Name               string      `json:"name"`
	APIKeyPrefix       string      `json:"api_key_prefix,omitempty"`
	AllowCustomBaseURL bool        `json:"allow_custom_base_url"`
	DefaultBaseURL     string      `json:"default_base_url,omitempty"`
	Adapter            string      `json:"adapter,omitempty"`
	Models             []ModelSpec `json:"models,omitempty"`
}

var builtinProviders = map[string]ProviderSpec{
	"openai": {
		ID:                 "openai",
		Name:               "OPENAI",
		APIKeyPrefix:       "OPENAI_API_KEY",
		AllowCustomBaseURL: true,
		DefaultBaseURL:     "https://api.openai.com/v1",
		Adapter:            AdapterOpenAICompatible,
		Models: []ModelSpec{
			{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Status: "active"},
			{ID: "gpt-4.1-mini", Name: "GPT-4.1 Mini", Status: "active"},
		},
	},
}

func ResolveProvider(providerID string) ProviderSpec {
	id := normalizeProviderID(providerID)
	if spec, ok := builtinProviders[id]; ok {
		return spec
	}
	// Unknown providers are treated as custom OpenAI-compatible endpoints.
	return ProviderSpec{
		ID:                 id,
		Name:               id,
		AllowCustomBaseURL: true,
		Adapter:            AdapterOpenAICompatible,
	}
}

func ResolveAdapter(providerID string) string {
	id := normalizeProviderID(providerID)
	if id == "" || id == AdapterDemo {
		return AdapterDemo
	}
	if spec, ok := builtinProviders[id]; ok && strings.TrimSpace(spec.Adapter) != "" {
		return spec.Adapter
	}
	return AdapterOpenAICompatible
}

func ListBuiltinProviders() []ProviderSpec {
	out := make([]ProviderSpec, 0, len(builtinProviders))
	for _, spec := range builtinProviders {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func EnvPrefix(providerID string) string {
	id := normalizeProviderID(providerID)
	id = strings.ReplaceAll(id, "-", "_")
	return strings.ToUpper(id)
}

func normalizeProviderID(providerID string) string {
	return strings.ToLower(strings.TrimSpace(providerID))
}
