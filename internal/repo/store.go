package repo

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"dayplan/gateway/internal/domain"
)

type ProviderSetting struct {
	APIKey      string            `json:"api_key"`
	BaseURL     string            `json:"base_url"`
	DisplayName string            `json:"display_name,omitempty"`
	Enabled     *bool             `json:"enabled,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	TimeoutMS   int               `json:"timeout_ms,omitempty"`
}

type State struct {
	Sessions       map[string]domain.PlanningSession  `json:"sessions"`
	Activities     map[string]domain.Activity         `json:"activities"`
	Journal        map[string]domain.JournalEntry     `json:"journal"`
	ReminderJobs   map[string]domain.ReminderJobSpec  `json:"reminder_jobs"`
	ReminderStates map[string]domain.ReminderJobState `json:"reminder_states"`
	Providers      map[string]ProviderSetting         `json:"providers"`
	ActiveLLM      domain.ModelSlotConfig             `json:"active_llm"`
	FallbackLLM    domain.ModelSlotConfig             `json:"fallback_llm"`
	Channels       domain.ChannelConfigMap            `json:"channels"`
}

type Store struct {
	mu        sync.RWMutex
	state     State
	stateFile string
}

func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{
		stateFile: filepath.Join(dataDir, "state.json"),
		state:     defaultState(),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func defaultState() State {
	state := State{
		Sessions:       map[string]domain.PlanningSession{},
		Activities:     map[string]domain.Activity{},
		Journal:        map[string]domain.JournalEntry{},
		ReminderJobs:   map[string]domain.ReminderJobSpec{},
		ReminderStates: map[string]domain.ReminderJobState{},
		Providers: map[string]ProviderSetting{
			"openai": defaultProviderSetting(),
		},
		ActiveLLM:   domain.ModelSlotConfig{},
		FallbackLLM: domain.ModelSlotConfig{},
		Channels: domain.ChannelConfigMap{
			"console": {
				"enabled": true,
				"prefix":  "",
			},
			"webhook": {
				"enabled":         false,
				"url":             "",
				"auth_token":      "",
				"title":           "",
				"timeout_seconds": 5,
			},
		},
	}
	ensureDefaultReminderJob(&state)
	return state
}

func (s *Store) load() error {
	b, err := os.ReadFile(s.stateFile)
	if errors.Is(err, os.ErrNotExist) {
		return s.saveLocked()
	}
	if err != nil {
		return err
	}
	var state State
	if err := json.Unmarshal(b, &state); err != nil {
		return err
	}
	if state.Sessions == nil {
		state.Sessions = map[string]domain.PlanningSession{}
	}
	for id, session := range state.Sessions {
		normalizeSession(&session)
		state.Sessions[id] = session
	}
	if state.Activities == nil {
		state.Activities = map[string]domain.Activity{}
	}
	if state.Journal == nil {
		state.Journal = map[string]domain.JournalEntry{}
	}
	if state.ReminderJobs == nil {
		state.ReminderJobs = map[string]domain.ReminderJobSpec{}
	}
	if state.ReminderStates == nil {
		state.ReminderStates = map[string]domain.ReminderJobState{}
	}
	if state.Providers == nil {
		state.Providers = map[string]ProviderSetting{
			"openai": defaultProviderSetting(),
		}
	}
	normalizedProviders := map[string]ProviderSetting{}
	for rawID, setting := range state.Providers {
		id := normalizeProviderID(rawID)
		if id == "" {
			continue
		}
		if id == "demo" {
			continue
		}
		normalizeProviderSetting(&setting)
		normalizedProviders[id] = setting
	}
	state.Providers = normalizedProviders
	state.ActiveLLM = normalizeModelSlot(state.ActiveLLM, normalizedProviders)
	state.FallbackLLM = normalizeModelSlot(state.FallbackLLM, normalizedProviders)
	if state.Channels == nil {
		state.Channels = domain.ChannelConfigMap{}
	}
	if _, ok := state.Channels["console"]; !ok {
		state.Channels["console"] = map[string]interface{}{
			"enabled": true,
			"prefix":  "",
		}
	}
	if _, ok := state.Channels["webhook"]; !ok {
		state.Channels["webhook"] = map[string]interface{}{
			"enabled":         false,
			"url":             "",
			"auth_token":      "",
			"title":           "",
			"timeout_seconds": 5,
		}
	}
	ensureDefaultReminderJob(&state)
	s.state = state
	return nil
}

func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	ensureDefaultReminderJob(&s.state)
	b, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.stateFile, b, 0o644)
}

func normalizeSession(session *domain.PlanningSession) {
	if session == nil {
		return
	}
	if mode, ok := domain.NormalizeMode(string(session.Mode)); ok {
		session.Mode = mode
	} else {
		session.Mode = domain.ModeQuick
	}
	if tag, ok := domain.NormalizeDomain(string(session.Domain)); ok {
		session.Domain = tag
	} else {
		session.Domain = domain.DomainGeneric
	}
	if session.Transcript == nil {
		session.Transcript = []domain.Turn{}
	}
	if session.AskedFields == nil {
		session.AskedFields = []string{}
	}
	if session.Stated == nil {
		session.Stated = map[string]string{}
	}
	if session.QuestionCount < 0 {
		session.QuestionCount = 0
	}
	switch session.State {
	case domain.StateCollecting, domain.StateReadyToGenerate, domain.StatePlanPending,
		domain.StateConfirming, domain.StateCompleted, domain.StateAbandoned:
	default:
		session.State = domain.StateCollecting
	}
	// A completed session must carry its activity reference; without one the
	// materialization never finished, so confirming is the resumable truth.
	if session.State == domain.StateCompleted && strings.TrimSpace(session.ActivityID) == "" {
		session.State = domain.StateConfirming
	}
}

func ensureDefaultReminderJob(state *State) {
	if state == nil {
		return
	}
	if state.ReminderJobs == nil {
		state.ReminderJobs = map[string]domain.ReminderJobSpec{}
	}
	if state.ReminderStates == nil {
		state.ReminderStates = map[string]domain.ReminderJobState{}
	}

	defaultJob := domain.ReminderJobSpec{
		ID:      domain.DefaultReminderJobID,
		Name:    domain.DefaultReminderJobName,
		Enabled: false,
		Schedule: domain.ReminderScheduleSpec{
			Type: "interval",
			Cron: domain.DefaultReminderJobInterval,
		},
		Message: domain.DefaultReminderJobMessage,
		Dispatch: domain.ReminderDispatchSpec{
			Channel: "console",
			UserID:  domain.DemoUserID,
		},
		Runtime: domain.ReminderRuntimeSpec{
			TimeoutSeconds:      30,
			MisfireGraceSeconds: 0,
		},
		Meta: map[string]interface{}{
			domain.ReminderMetaSystemDefault: true,
		},
	}

	current, ok := state.ReminderJobs[domain.DefaultReminderJobID]
	if !ok {
		state.ReminderJobs[domain.DefaultReminderJobID] = defaultJob
		return
	}

	current.ID = domain.DefaultReminderJobID
	if strings.TrimSpace(current.Name) == "" {
		current.Name = domain.DefaultReminderJobName
	}

	scheduleType := strings.ToLower(strings.TrimSpace(current.Schedule.Type))
	if scheduleType != "interval" && scheduleType != "cron" {
		scheduleType = "interval"
	}
	current.Schedule.Type = scheduleType
	if strings.TrimSpace(current.Schedule.Cron) == "" {
		current.Schedule.Cron = domain.DefaultReminderJobInterval
	}

	if strings.TrimSpace(current.Message) == "" {
		current.Message = domain.DefaultReminderJobMessage
	}
	if strings.TrimSpace(current.Dispatch.Channel) == "" {
		current.Dispatch.Channel = "console"
	}
	if strings.TrimSpace(current.Dispatch.UserID) == "" {
		current.Dispatch.UserID = domain.DemoUserID
	}

	if current.Runtime.TimeoutSeconds <= 0 {
		current.Runtime.TimeoutSeconds = 30
	}
	if current.Runtime.MisfireGraceSeconds < 0 {
		current.Runtime.MisfireGraceSeconds = 0
	}

	if current.Meta == nil {
		current.Meta = map[string]interface{}{}
	}
	current.Meta[domain.ReminderMetaSystemDefault] = true

	state.ReminderJobs[domain.DefaultReminderJobID] = current
}

func (s *Store) Read(fn func(state *State)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.state)
}

func (s *Store) Write(fn func(state *State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := fn(&s.state); err != nil {
		return err
	}
	return s.saveLocked()
}

func defaultProviderSetting() ProviderSetting {
	enabled := true
	return ProviderSetting{
		Enabled: &enabled,
		Headers: map[string]string{},
	}
}

func normalizeProviderID(providerID string) string {
	return strings.ToLower(strings.TrimSpace(providerID))
}

func normalizeProviderSetting(setting *ProviderSetting) {
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

func normalizeModelSlot(slot domain.ModelSlotConfig, providers map[string]ProviderSetting) domain.ModelSlotConfig {
	providerID := normalizeProviderID(slot.ProviderID)
	modelID := strings.TrimSpace(slot.Model)
	if providerID == "" || modelID == "" {
		return domain.ModelSlotConfig{}
	}
	if _, ok := providers[providerID]; !ok {
		return domain.ModelSlotConfig{}
	}
	return domain.ModelSlotConfig{ProviderID: providerID, Model: modelID}
}
