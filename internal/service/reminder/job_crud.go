package reminder

import (
	"sort"
	"strings"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/ports"
)

func (s *Service) listJobs() ([]domain.ReminderJobSpec, error) {
	if err := s.validateStore(); err != nil {
		return nil, err
	}
	out := make([]domain.ReminderJobSpec, 0)
	s.deps.Store.ReadReminders(func(st ports.RemindersAggregate) {
		for _, job := range st.Jobs {
			out = append(out, job)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Service) createJob(job domain.ReminderJobSpec) (domain.ReminderJobSpec, error) {
	if err := s.validateStore(); err != nil {
		return domain.ReminderJobSpec{}, err
	}
	if err := validateJobSpec(&job); err != nil {
		return domain.ReminderJobSpec{}, err
	}
	if strings.TrimSpace(job.ID) == "" {
		job.ID = s.deps.NewID("rem")
	}
	if job.Meta == nil {
		job.Meta = map[string]interface{}{}
	}

	err := s.deps.Store.WriteReminders(func(st *ports.RemindersAggregate) error {
		if _, exists := st.Jobs[job.ID]; exists {
			return &ValidationError{Code: "job_exists", Message: "reminder job id already exists"}
		}
		st.Jobs[job.ID] = job
		st.States[job.ID] = alignStateForMutation(job, domain.ReminderJobState{}, s.deps.Now())
		return nil
	})
	if err != nil {
		return domain.ReminderJobSpec{}, err
	}
	return job, nil
}

func (s *Service) getJob(jobID string) (domain.ReminderJobView, error) {
	if err := s.validateStore(); err != nil {
		return domain.ReminderJobView{}, err
	}
	var view domain.ReminderJobView
	found := false
	s.deps.Store.ReadReminders(func(st ports.RemindersAggregate) {
		job, ok := st.Jobs[jobID]
		if !ok {
			return
		}
		view = domain.ReminderJobView{Spec: job, State: normalizePausedState(st.States[jobID])}
		found = true
	})
	if !found {
		return domain.ReminderJobView{}, ErrJobNotFound
	}
	return view, nil
}

func (s *Service) updateJob(jobID string, job domain.ReminderJobSpec) (domain.ReminderJobSpec, error) {
	if err := s.validateStore(); err != nil {
		return domain.ReminderJobSpec{}, err
	}
	job.ID = jobID
	if err := validateJobSpec(&job); err != nil {
		return domain.ReminderJobSpec{}, err
	}

	err := s.deps.Store.WriteReminders(func(st *ports.RemindersAggregate) error {
		current, ok := st.Jobs[jobID]
		if !ok {
			return ErrJobNotFound
		}
		if isSystemDefault(current) {
			// The default nudge keeps its identity; only schedule,
			// message, dispatch, and enablement may change.
			job.Name = current.Name
			job.Meta = current.Meta
		}
		if job.Meta == nil {
			job.Meta = map[string]interface{}{}
		}
		st.Jobs[jobID] = job
		st.States[jobID] = alignStateForMutation(job, normalizePausedState(st.States[jobID]), s.deps.Now())
		return nil
	})
	if err != nil {
		return domain.ReminderJobSpec{}, err
	}
	return job, nil
}

func (s *Service) deleteJob(jobID string) (bool, error) {
	if err := s.validateStore(); err != nil {
		return false, err
	}
	deleted := false
	err := s.deps.Store.WriteReminders(func(st *ports.RemindersAggregate) error {
		current, ok := st.Jobs[jobID]
		if !ok {
			return nil
		}
		if isSystemDefault(current) {
			return ErrDefaultProtected
		}
		delete(st.Jobs, jobID)
		delete(st.States, jobID)
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

func (s *Service) updateStatus(jobID, status string) error {
	if err := s.validateStore(); err != nil {
		return err
	}
	status = strings.ToLower(strings.TrimSpace(status))
	if status != statusPaused && status != statusResumed {
		return &ValidationError{Code: "invalid_status", Message: "status must be paused or resumed"}
	}
	return s.deps.Store.WriteReminders(func(st *ports.RemindersAggregate) error {
		job, ok := st.Jobs[jobID]
		if !ok {
			return ErrJobNotFound
		}
		state := normalizePausedState(st.States[jobID])
		marker := status
		state.LastStatus = &marker
		state.Paused = status == statusPaused
		st.States[jobID] = alignStateForMutation(job, state, s.deps.Now())
		return nil
	})
}

func (s *Service) getState(jobID string) (domain.ReminderJobState, error) {
	if err := s.validateStore(); err != nil {
		return domain.ReminderJobState{}, err
	}
	var state domain.ReminderJobState
	found := false
	s.deps.Store.ReadReminders(func(st ports.RemindersAggregate) {
		if _, ok := st.Jobs[jobID]; !ok {
			return
		}
		state = normalizePausedState(st.States[jobID])
		found = true
	})
	if !found {
		return domain.ReminderJobState{}, ErrJobNotFound
	}
	return state, nil
}

func validateJobSpec(job *domain.ReminderJobSpec) error {
	if job == nil {
		return &ValidationError{Code: "invalid_job", Message: "reminder job is required"}
	}
	job.Name = strings.TrimSpace(job.Name)
	if job.Name == "" {
		return &ValidationError{Code: "invalid_name", Message: "reminder job name is required"}
	}
	job.Message = strings.TrimSpace(job.Message)
	if job.Message == "" {
		return &ValidationError{Code: "invalid_message", Message: "reminder job message is required"}
	}
	job.Dispatch.Channel = strings.ToLower(strings.TrimSpace(job.Dispatch.Channel))
	if job.Dispatch.Channel == "" {
		return &ValidationError{Code: "invalid_dispatch", Message: "dispatch.channel is required"}
	}
	if strings.TrimSpace(job.Dispatch.UserID) == "" {
		job.Dispatch.UserID = domain.DemoUserID
	}

	switch scheduleType(*job) {
	case "interval":
		if _, err := interval(*job); err != nil {
			return &ValidationError{Code: "invalid_schedule", Message: err.Error()}
		}
	case "cron":
		if _, _, err := expression(*job); err != nil {
			return &ValidationError{Code: "invalid_schedule", Message: err.Error()}
		}
	default:
		return &ValidationError{Code: "invalid_schedule", Message: "schedule.type must be interval or cron"}
	}

	if job.Runtime.TimeoutSeconds <= 0 {
		job.Runtime.TimeoutSeconds = 30
	}
	if job.Runtime.MisfireGraceSeconds < 0 {
		job.Runtime.MisfireGraceSeconds = 0
	}
	return nil
}

func isSystemDefault(job domain.ReminderJobSpec) bool {
	if job.ID == domain.DefaultReminderJobID {
		return true
	}
	if job.Meta == nil {
		return false
	}
	flag, ok := job.Meta[domain.ReminderMetaSystemDefault].(bool)
	return ok && flag
}
