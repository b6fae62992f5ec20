package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/ports"
)

// executeJob delivers one reminder over its dispatch channel. Each job runs at
// most once at a time within this process; a second call while the first is in
// flight returns ErrJobAlreadyRunning.
func (s *Service) executeJob(jobID string) error {
	if err := s.validateStore(); err != nil {
		return err
	}

	var job domain.ReminderJobSpec
	found := false
	s.deps.Store.ReadReminders(func(st ports.RemindersAggregate) {
		job, found = st.Jobs[jobID]
	})
	if !found {
		return ErrJobNotFound
	}

	if !s.tryAcquire(jobID) {
		return ErrJobAlreadyRunning
	}
	defer s.release(jobID)

	startedAt := s.nowISO()
	if err := s.deps.Store.WriteReminders(func(st *ports.RemindersAggregate) error {
		state := normalizePausedState(st.States[jobID])
		running := statusRunning
		state.LastStatus = &running
		state.LastRunAt = &startedAt
		state.LastError = nil
		st.States[jobID] = state
		return nil
	}); err != nil {
		return err
	}

	runErr := s.dispatchJob(job)
	finalStatus := statusSucceeded
	var finalError *string
	if runErr != nil {
		finalStatus = statusFailed
		msg := runErr.Error()
		finalError = &msg
	}

	if err := s.deps.Store.WriteReminders(func(st *ports.RemindersAggregate) error {
		state := normalizePausedState(st.States[jobID])
		state.LastStatus = &finalStatus
		state.LastError = finalError
		st.States[jobID] = state
		return nil
	}); err != nil {
		return err
	}
	return runErr
}

func (s *Service) dispatchJob(job domain.ReminderJobSpec) error {
	if s.deps.Dispatch == nil {
		return errors.New("reminder dispatch is not configured")
	}

	runtime := runtimeSpec(job)
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(runtime.TimeoutSeconds)*time.Second)
	defer cancel()

	err := s.deps.Dispatch(ctx, job.Dispatch.Channel, job.Dispatch.UserID, job.Dispatch.SessionID, job.Message)
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("reminder execution timeout after %ds", runtime.TimeoutSeconds)
	}
	return err
}
