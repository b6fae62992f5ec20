package reminder

import (
	"context"
	"errors"
	"sync"
	"time"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/ports"
)

const (
	statusPaused    = "paused"
	statusResumed   = "resumed"
	statusRunning   = "running"
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

var (
	ErrJobNotFound       = errors.New("reminder_job_not_found")
	ErrJobAlreadyRunning = errors.New("reminder_job_already_running")
	ErrDefaultProtected  = errors.New("reminder_default_protected")
)

type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// Dispatch delivers the reminder message over a channel; the app wires it to
// the channel registry.
type Dispatch func(ctx context.Context, channelName, userID, sessionID, text string) error

type Dependencies struct {
	Store    ports.StateStore
	Dispatch Dispatch
	Now      func() time.Time
	NewID    func(prefix string) string
}

type Service struct {
	deps Dependencies

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewService(deps Dependencies) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		deps:     deps,
		inFlight: map[string]bool{},
	}
}

func (s *Service) ListJobs() ([]domain.ReminderJobSpec, error) {
	return s.listJobs()
}

func (s *Service) CreateJob(job domain.ReminderJobSpec) (domain.ReminderJobSpec, error) {
	return s.createJob(job)
}

func (s *Service) GetJob(jobID string) (domain.ReminderJobView, error) {
	return s.getJob(jobID)
}

func (s *Service) UpdateJob(jobID string, job domain.ReminderJobSpec) (domain.ReminderJobSpec, error) {
	return s.updateJob(jobID, job)
}

func (s *Service) DeleteJob(jobID string) (bool, error) {
	return s.deleteJob(jobID)
}

func (s *Service) UpdateStatus(jobID, status string) error {
	return s.updateStatus(jobID, status)
}

func (s *Service) GetState(jobID string) (domain.ReminderJobState, error) {
	return s.getState(jobID)
}

func (s *Service) SchedulerTick(now time.Time) ([]string, error) {
	return s.schedulerTick(now)
}

func (s *Service) ExecuteJob(jobID string) error {
	return s.executeJob(jobID)
}

func (s *Service) validateStore() error {
	if s == nil || s.deps.Store == nil {
		return errors.New("reminder service store is unavailable")
	}
	return nil
}

func (s *Service) nowISO() string {
	return s.deps.Now().UTC().Format(time.RFC3339)
}

func (s *Service) tryAcquire(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[jobID] {
		return false
	}
	s.inFlight[jobID] = true
	return true
}

func (s *Service) release(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, jobID)
}
