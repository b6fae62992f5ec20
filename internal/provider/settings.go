package provider

import (
	"os"
	"strings"

	"dayplan/gateway/internal/repo"
)

func NormalizeProviderID(providerID string) string {
	return normalizeProviderID(providerID)
}

func NormalizeProviderSetting(setting *repo.ProviderSetting) {
	if setting == nil {
		return
	}
	setting.DisplayName = strings.TrimSpace(setting.DisplayName)
	setting.APIKey = strings.TrimSpace(setting.APIKey)
	setting.BaseURL = strings.TrimSpace(setting.BaseURL)
	if setting.Enabled == nil {
		enabled := true
		setting.Enabled = &enabled
	}
	if setting.Headers == nil {
		setting.Headers = map[string]string{}
	}
}

func ProviderEnabled(setting repo.ProviderSetting) bool {
	if setting.Enabled == nil {
		return true
	}
	return *setting.Enabled
}

func ResolveProviderDisplayName(setting repo.ProviderSetting, defaultName string) string {
	if displayName := strings.TrimSpace(setting.DisplayName); displayName != "" {
		return displayName
	}
	return strings.TrimSpace(defaultName)
}

func SanitizeStringMap(in map[string]string) map[string]string {
	out := map[string]string{}
	for key, value := range in {
		k := strings.TrimSpace(key)
		v := strings.TrimSpace(value)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

func FindProviderSettingByID(
	providers map[string]repo.ProviderSetting,
	providerID string,
) (repo.ProviderSetting, bool) {
	if providers == nil {
		return repo.ProviderSetting{}, false
	}
	if setting, ok := providers[providerID]; ok {
		return setting, true
	}
	for key, setting := range providers {
		if NormalizeProviderID(key) == providerID {
			return setting, true
		}
	}
	return repo.ProviderSetting{}, false
}

func ResolveProviderAPIKey(providerID string, setting repo.ProviderSetting, envLookup func(string) string) string {
	if key := strings.TrimSpace(setting.APIKey); key != "" {
		return key
	}
	if envLookup == nil {
		envLookup = os.Getenv
	}
	return strings.TrimSpace(envLookup(EnvPrefix(providerID) + "_API_KEY"))
}
