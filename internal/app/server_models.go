package app

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/provider"
	"dayplan/gateway/internal/repo"
)

var errProviderNotFound = errors.New("provider_not_found")
var errProviderDisabled = errors.New("provider_disabled")

func (s *Server) listProviders(w http.ResponseWriter, _ *http.Request) {
	out := make([]domain.ProviderInfo, 0)
	s.store.Read(func(state *repo.State) {
		settingsByID := map[string]repo.ProviderSetting{}
		for _, spec := range provider.ListBuiltinProviders() {
			settingsByID[spec.ID] = repo.ProviderSetting{}
		}
		for rawID, setting := range state.Providers {
			id := provider.NormalizeProviderID(rawID)
			if id == "" {
				continue
			}
			settingsByID[id] = setting
		}

		ids := make([]string, 0, len(settingsByID))
		for id := range settingsByID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			out = append(out, buildProviderInfo(id, settingsByID[id]))
		}
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) configureProvider(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey      *string            `json:"api_key"`
		BaseURL     *string            `json:"base_url"`
		DisplayName *string            `json:"display_name"`
		Enabled     *bool              `json:"enabled"`
		Headers     *map[string]string `json:"headers"`
		TimeoutMS   *int               `json:"timeout_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}
	providerID := provider.NormalizeProviderID(chi.URLParam(r, "provider_id"))
	if providerID == "" {
		writeErr(w, http.StatusBadRequest, "invalid_provider_id", "provider_id is required", nil)
		return
	}
	if body.TimeoutMS != nil && *body.TimeoutMS < 0 {
		writeErr(w, http.StatusBadRequest, "invalid_provider_config", "timeout_ms must be >= 0", nil)
		return
	}

	var out domain.ProviderInfo
	if err := s.store.Write(func(state *repo.State) error {
		setting, _ := provider.FindProviderSettingByID(state.Providers, providerID)
		provider.NormalizeProviderSetting(&setting)
		if body.APIKey != nil {
			setting.APIKey = strings.TrimSpace(*body.APIKey)
		}
		if body.BaseURL != nil {
			setting.BaseURL = strings.TrimSpace(*body.BaseURL)
		}
		if body.DisplayName != nil {
			setting.DisplayName = strings.TrimSpace(*body.DisplayName)
		}
		if body.Enabled != nil {
			enabled := *body.Enabled
			setting.Enabled = &enabled
		}
		if body.Headers != nil {
			setting.Headers = provider.SanitizeStringMap(*body.Headers)
		}
		if body.TimeoutMS != nil {
			setting.TimeoutMS = *body.TimeoutMS
		}
		state.Providers[providerID] = setting
		out = buildProviderInfo(providerID, setting)
		return nil
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) deleteProvider(w http.ResponseWriter, r *http.Request) {
	providerID := provider.NormalizeProviderID(chi.URLParam(r, "provider_id"))
	if providerID == "" {
		writeErr(w, http.StatusBadRequest, "invalid_provider_id", "provider_id is required", nil)
		return
	}
	deleted := false
	if err := s.store.Write(func(state *repo.State) error {
		for key := range state.Providers {
			if provider.NormalizeProviderID(key) == providerID {
				delete(state.Providers, key)
				deleted = true
			}
		}
		if deleted {
			if provider.NormalizeProviderID(state.ActiveLLM.ProviderID) == providerID {
				state.ActiveLLM = domain.ModelSlotConfig{}
			}
			if provider.NormalizeProviderID(state.FallbackLLM.ProviderID) == providerID {
				state.FallbackLLM = domain.ModelSlotConfig{}
			}
		}
		return nil
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (s *Server) getActiveModels(w http.ResponseWriter, _ *http.Request) {
	var out domain.ActiveModelsInfo
	s.store.Read(func(state *repo.State) {
		out = domain.ActiveModelsInfo{ActiveLLM: state.ActiveLLM, FallbackLLM: state.FallbackLLM}
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) setActiveModels(w http.ResponseWriter, r *http.Request) {
	var body domain.ActiveModelsInfo
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}
	active, msg := normalizeModelSlotInput(body.ActiveLLM, true)
	if msg != "" {
		writeErr(w, http.StatusBadRequest, "invalid_model_slot", msg, nil)
		return
	}
	fallback, msg := normalizeModelSlotInput(body.FallbackLLM, false)
	if msg != "" {
		writeErr(w, http.StatusBadRequest, "invalid_model_slot", msg, nil)
		return
	}

	var out domain.ActiveModelsInfo
	if err := s.store.Write(func(state *repo.State) error {
		for _, slot := range []domain.ModelSlotConfig{active, fallback} {
			if slot.ProviderID == "" {
				continue
			}
			setting, ok := provider.FindProviderSettingByID(state.Providers, slot.ProviderID)
			if !ok {
				return errProviderNotFound
			}
			provider.NormalizeProviderSetting(&setting)
			if !provider.ProviderEnabled(setting) {
				return errProviderDisabled
			}
		}
		state.ActiveLLM = active
		state.FallbackLLM = fallback
		out = domain.ActiveModelsInfo{ActiveLLM: active, FallbackLLM: fallback}
		return nil
	}); err != nil {
		switch {
		case errors.Is(err, errProviderNotFound):
			writeErr(w, http.StatusBadRequest, "provider_not_found", "provider is not configured", nil)
		case errors.Is(err, errProviderDisabled):
			writeErr(w, http.StatusBadRequest, "provider_disabled", "provider is disabled", nil)
		default:
			writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// normalizeModelSlotInput returns a non-empty message on invalid input. The
// fallback slot may be empty; the active slot may not.
func normalizeModelSlotInput(slot domain.ModelSlotConfig, required bool) (domain.ModelSlotConfig, string) {
	slot.ProviderID = provider.NormalizeProviderID(slot.ProviderID)
	slot.Model = strings.TrimSpace(slot.Model)
	if slot.ProviderID == "" && slot.Model == "" {
		if required {
			return slot, "active_llm.provider_id and active_llm.model are required"
		}
		return domain.ModelSlotConfig{}, ""
	}
	if slot.ProviderID == "" || slot.Model == "" {
		return slot, "provider_id and model must both be set"
	}
	return slot, ""
}

func buildProviderInfo(providerID string, setting repo.ProviderSetting) domain.ProviderInfo {
	provider.NormalizeProviderSetting(&setting)
	spec := provider.ResolveProvider(providerID)
	apiKey := provider.ResolveProviderAPIKey(providerID, setting, nil)
	baseURL := setting.BaseURL
	if baseURL == "" {
		baseURL = spec.DefaultBaseURL
	}
	return domain.ProviderInfo{
		ID:             providerID,
		DisplayName:    provider.ResolveProviderDisplayName(setting, spec.Name),
		Enabled:        provider.ProviderEnabled(setting),
		HasAPIKey:      strings.TrimSpace(apiKey) != "",
		CurrentAPIKey:  maskKey(apiKey),
		CurrentBaseURL: baseURL,
		Headers:        provider.SanitizeStringMap(setting.Headers),
		TimeoutMS:      setting.TimeoutMS,
	}
}

func maskKey(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "***"
	}
	return s[:3] + "***" + s[len(s)-3:]
}
