package domain

const (
	// DemoUserID is the pseudo identifier used for unauthenticated sessions.
	DemoUserID = "demo-user"

	DefaultReminderJobID       = "reminder-default"
	DefaultReminderJobName     = "Daily journaling nudge"
	DefaultReminderJobMessage  = "How did today go? Take a minute to jot it down."
	DefaultReminderJobInterval = "24h"
	ReminderMetaSystemDefault  = "system_default"
)

type APIErrorBody struct {
	Error APIError `json:"error"`
}

type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// PlanningMode selects the question budget for a session. Quick sessions
// generate after 3 answered question slots, smart sessions after 5.
type PlanningMode string

const (
	ModeQuick PlanningMode = "quick"
	ModeSmart PlanningMode = "smart"
)

func (m PlanningMode) MinQuestions() int {
	if m == ModeSmart {
		return 5
	}
	return 3
}

func NormalizeMode(raw string) (PlanningMode, bool) {
	switch PlanningMode(raw) {
	case ModeQuick, "":
		return ModeQuick, true
	case ModeSmart:
		return ModeSmart, true
	default:
		return "", false
	}
}

// DomainTag is the closed set of planning domains. New domains are additions
// to this enum plus a row in the planning field table, never ad hoc branches.
type DomainTag string

const (
	DomainTravel        DomainTag = "travel"
	DomainFitness       DomainTag = "fitness"
	DomainEvents        DomainTag = "events"
	DomainLearning      DomainTag = "learning"
	DomainSocial        DomainTag = "social"
	DomainEntertainment DomainTag = "entertainment"
	DomainWork          DomainTag = "work"
	DomainShopping      DomainTag = "shopping"
	DomainDining        DomainTag = "dining"
	DomainGeneric       DomainTag = "generic"
)

func AllDomains() []DomainTag {
	return []DomainTag{
		DomainTravel, DomainFitness, DomainEvents, DomainLearning, DomainSocial,
		DomainEntertainment, DomainWork, DomainShopping, DomainDining, DomainGeneric,
	}
}

func NormalizeDomain(raw string) (DomainTag, bool) {
	for _, tag := range AllDomains() {
		if string(tag) == raw {
			return tag, true
		}
	}
	return DomainGeneric, false
}

type SessionState string

const (
	StateCollecting      SessionState = "collecting"
	StateReadyToGenerate SessionState = "ready_to_generate"
	StatePlanPending     SessionState = "plan_pending"
	StateConfirming      SessionState = "confirming"
	StateCompleted       SessionState = "completed"
	StateAbandoned       SessionState = "abandoned"
)

// Live reports whether the session can still accept operations. Completed
// and abandoned sessions are terminal; callers start a fresh session instead.
func (s SessionState) Live() bool {
	return s != StateCompleted && s != StateAbandoned
}

type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	// SpeakerSource marks content extracted from a user-supplied URL or
	// document. It counts as stated context, not assistant output.
	SpeakerSource Speaker = "source"
)

type Turn struct {
	Speaker   Speaker `json:"speaker"`
	Text      string  `json:"text"`
	CreatedAt string  `json:"created_at"`
}

type PlanTask struct {
	Title     string   `json:"title"`
	Cost      *float64 `json:"cost,omitempty"`
	CostNotes string   `json:"cost_notes,omitempty"`
}

type BudgetLine struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

type BudgetBreakdown struct {
	Lines  []BudgetLine `json:"lines"`
	Buffer float64      `json:"buffer"`
}

// Plan is ephemeral: it lives on the session as pending_plan until the user
// confirms it, at which point it is materialized into an Activity.
type Plan struct {
	Title  string           `json:"title"`
	Tasks  []PlanTask       `json:"tasks"`
	Budget *BudgetBreakdown `json:"budget,omitempty"`
}

type PlanningSession struct {
	ID            string            `json:"id"`
	UserID        string            `json:"user_id"`
	Mode          PlanningMode      `json:"mode"`
	Domain        DomainTag         `json:"domain"`
	Transcript    []Turn            `json:"transcript"`
	QuestionCount int               `json:"question_count"`
	AskedFields   []string          `json:"asked_fields"`
	Stated        map[string]string `json:"stated"`
	State         SessionState      `json:"state"`
	PendingPlan   *Plan             `json:"pending_plan,omitempty"`
	SourceContent string            `json:"source_content,omitempty"`
	ActivityID    string            `json:"activity_id,omitempty"`
	CreatedAt     string            `json:"created_at"`
	LastActivity  string            `json:"last_activity_at"`
}

type ActivityTask struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Cost        *float64 `json:"cost,omitempty"`
	CostNotes   string   `json:"cost_notes,omitempty"`
	CompletedAt string   `json:"completed_at,omitempty"`
}

// Activity is the persisted form of a confirmed plan. Created exactly once
// per confirmed session, never speculatively.
type Activity struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	SessionID string           `json:"session_id"`
	Title     string           `json:"title"`
	Domain    DomainTag        `json:"domain"`
	Tasks     []ActivityTask   `json:"tasks"`
	Budget    *BudgetBreakdown `json:"budget,omitempty"`
	CreatedAt string           `json:"created_at"`
}

type JournalEntry struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id,omitempty"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

type ReminderScheduleSpec struct {
	Type     string `json:"type"`
	Cron     string `json:"cron"`
	Timezone string `json:"timezone"`
}

type ReminderDispatchSpec struct {
	Channel   string `json:"channel"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type ReminderRuntimeSpec struct {
	TimeoutSeconds      int `json:"timeout_seconds"`
	MisfireGraceSeconds int `json:"misfire_grace_seconds"`
}

type ReminderJobSpec struct {
	ID       string                 `json:"id"`
	Name     string                 `json:"name"`
	Enabled  bool                   `json:"enabled"`
	Schedule ReminderScheduleSpec   `json:"schedule"`
	Message  string                 `json:"message"`
	Dispatch ReminderDispatchSpec   `json:"dispatch"`
	Runtime  ReminderRuntimeSpec    `json:"runtime"`
	Meta     map[string]interface{} `json:"meta"`
}

type ReminderJobState struct {
	NextRunAt  *string `json:"next_run_at,omitempty"`
	LastRunAt  *string `json:"last_run_at,omitempty"`
	LastStatus *string `json:"last_status,omitempty"`
	LastError  *string `json:"last_error,omitempty"`
	Paused     bool    `json:"paused,omitempty"`
}

type ReminderJobView struct {
	Spec  ReminderJobSpec  `json:"spec"`
	State ReminderJobState `json:"state"`
}

type ModelSlotConfig struct {
	ProviderID string `json:"provider_id"`
	Model      string `json:"model"`
}

type ActiveModelsInfo struct {
	ActiveLLM   ModelSlotConfig `json:"active_llm"`
	FallbackLLM ModelSlotConfig `json:"fallback_llm"`
}

type ProviderInfo struct {
	ID             string            `json:"id"`
	DisplayName    string            `json:"display_name"`
	Enabled        bool              `json:"enabled"`
	HasAPIKey      bool              `json:"has_api_key"`
	CurrentAPIKey  string            `json:"current_api_key"`
	CurrentBaseURL string            `json:"current_base_url"`
	Headers        map[string]string `json:"headers,omitempty"`
	TimeoutMS      int               `json:"timeout_ms,omitempty"`
}

type ChannelConfigMap map[string]map[string]interface{}
