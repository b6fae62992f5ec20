package ports

import (
	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/repo"
)

type PlanningAggregate struct {
	Sessions   map[string]domain.PlanningSession
	Activities map[string]domain.Activity
}

type JournalAggregate struct {
	Entries    map[string]domain.JournalEntry
	Activities map[string]domain.Activity
}

type RemindersAggregate struct {
	Jobs   map[string]domain.ReminderJobSpec
	States map[string]domain.ReminderJobState
}

type ModelsAggregate struct {
	Providers   map[string]repo.ProviderSetting
	ActiveLLM   domain.ModelSlotConfig
	FallbackLLM domain.ModelSlotConfig
	Channels    domain.ChannelConfigMap
}

type StateStore interface {
	ReadPlanning(func(state PlanningAggregate))
	WritePlanning(func(state *PlanningAggregate) error) error

	ReadJournal(func(state JournalAggregate))
	WriteJournal(func(state *JournalAggregate) error) error

	ReadReminders(func(state RemindersAggregate))
	WriteReminders(func(state *RemindersAggregate) error) error

	ReadModels(func(state ModelsAggregate))
	WriteModels(func(state *ModelsAggregate) error) error
}
