package adapters

import (
	"errors"

	"dayplan/gateway/internal/repo"
	"dayplan/gateway/internal/service/ports"
)

type RepoStateStore struct {
	Store *repo.Store
}

func NewRepoStateStore(store *repo.Store) RepoStateStore {
	return RepoStateStore{Store: store}
}

func (s RepoStateStore) ReadPlanning(fn func(state ports.PlanningAggregate)) {
	if s.Store == nil || fn == nil {
		return
	}
	s.Store.Read(func(state *repo.State) {
		fn(ports.PlanningAggregate{
			Sessions:   state.Sessions,
			Activities: state.Activities,
		})
	})
}

func (s RepoStateStore) WritePlanning(fn func(state *ports.PlanningAggregate) error) error {
	if s.Store == nil {
		return errors.New("state store is unavailable")
	}
	return s.Store.Write(func(state *repo.State) error {
		if fn == nil {
			return nil
		}
		aggregate := ports.PlanningAggregate{
			Sessions:   state.Sessions,
			Activities: state.Activities,
		}
		if err := fn(&aggregate); err != nil {
			return err
		}
		state.Sessions = aggregate.Sessions
		state.Activities = aggregate.Activities
		return nil
	})
}

func (s RepoStateStore) ReadJournal(fn func(state ports.JournalAggregate)) {
	if s.Store == nil || fn == nil {
		return
	}
	s.Store.Read(func(state *repo.State) {
		fn(ports.JournalAggregate{
			Entries:    state.Journal,
			Activities: state.Activities,
		})
	})
}

func (s RepoStateStore) WriteJournal(fn func(state *ports.JournalAggregate) error) error {
	if s.Store == nil {
		return errors.New("state store is unavailable")
	}
	return s.Store.Write(func(state *repo.State) error {
		if fn == nil {
			return nil
		}
		aggregate := ports.JournalAggregate{
			Entries:    state.Journal,
			Activities: state.Activities,
		}
		if err := fn(&aggregate); err != nil {
			return err
		}
		state.Journal = aggregate.Entries
		state.Activities = aggregate.Activities
		return nil
	})
}

func (s RepoStateStore) ReadReminders(fn func(state ports.RemindersAggregate)) {
	if s.Store == nil || fn == nil {
		return
	}
	s.Store.Read(func(state *repo.State) {
		fn(ports.RemindersAggregate{
			Jobs:   state.ReminderJobs,
			States: state.ReminderStates,
		})
	})
}

func (s RepoStateStore) WriteReminders(fn func(state *ports.RemindersAggregate) error) error {
	if s.Store == nil {
		return errors.New("state store is unavailable")
	}
	return s.Store.Write(func(state *repo.State) error {
		if fn == nil {
			return nil
		}
		aggregate := ports.RemindersAggregate{
			Jobs:   state.ReminderJobs,
			States: state.ReminderStates,
		}
		if err := fn(&aggregate); err != nil {
			return err
		}
		state.ReminderJobs = aggregate.Jobs
		state.ReminderStates = aggregate.States
		return nil
	})
}

func (s RepoStateStore) ReadModels(fn func(state ports.ModelsAggregate)) {
	if s.Store == nil || fn == nil {
		return
	}
	s.Store.Read(func(state *repo.State) {
		fn(ports.ModelsAggregate{
			Providers:   state.Providers,
			ActiveLLM:   state.ActiveLLM,
			FallbackLLM: state.FallbackLLM,
			Channels:    state.Channels,
		})
	})
}

func (s RepoStateStore) WriteModels(fn func(state *ports.ModelsAggregate) error) error {
	if s.Store == nil {
		return errors.New("state store is unavailable")
	}
	return s.Store.Write(func(state *repo.State) error {
		if fn == nil {
			return nil
		}
		aggregate := ports.ModelsAggregate{
			Providers:   state.Providers,
			ActiveLLM:   state.ActiveLLM,
			FallbackLLM: state.FallbackLLM,
			Channels:    state.Channels,
		}
		if err := fn(&aggregate); err != nil {
			return err
		}
		state.Providers = aggregate.Providers
		state.ActiveLLM = aggregate.ActiveLLM
		state.FallbackLLM = aggregate.FallbackLLM
		state.Channels = aggregate.Channels
		return nil
	})
}
