package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"dayplan/gateway/internal/channel"
	"dayplan/gateway/internal/config"
	"dayplan/gateway/internal/content"
	"dayplan/gateway/internal/observability"
	"dayplan/gateway/internal/planning"
	"dayplan/gateway/internal/repo"
	"dayplan/gateway/internal/runner"
	"dayplan/gateway/internal/service/adapters"
	"dayplan/gateway/internal/service/reminder"
)

const version = "0.1.0"

const reminderTickInterval = time.Second

type Server struct {
	cfg     config.Config
	store   *repo.Store
	runner  *runner.Runner
	metrics *observability.Metrics

	planning  *planning.Service
	reminders *reminder.Service
	channels  *channel.Registry

	reminderStop chan struct{}
	reminderDone chan struct{}
	reminderWG   sync.WaitGroup
	closeOnce    sync.Once
}

func NewServer(cfg config.Config) (*Server, error) {
	store, err := repo.NewStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		cfg:          cfg,
		store:        store,
		runner:       runner.New(),
		channels:     channel.NewRegistry(channel.NewConsoleChannel(), channel.NewWebhookChannel()),
		reminderStop: make(chan struct{}),
		reminderDone: make(chan struct{}),
	}
	if cfg.MetricsEnabled {
		srv.metrics = observability.NewMetrics()
	}

	stateStore := adapters.NewRepoStateStore(store)
	extractor := content.NewExtractor()
	srv.planning = planning.NewService(planning.Dependencies{
		Store:         stateStore,
		Completer:     &modelCompleter{store: stateStore, runner: srv.runner, metrics: srv.metrics},
		ExtractSource: extractor.ExtractURL,
		IdleWindow:    cfg.SessionIdleWindow,
		NewID:         newID,
	})
	srv.reminders = reminder.NewService(reminder.Dependencies{
		Store:    stateStore,
		Dispatch: srv.dispatchReminder,
		NewID:    newID,
	})

	if cfg.EnableReminders {
		srv.startReminderScheduler()
	} else {
		close(srv.reminderDone)
	}
	return srv, nil
}

func (s *Server) Close() {
	s.closeOnce.Do(func() {
		close(s.reminderStop)
		<-s.reminderDone
		s.reminderWG.Wait()
	})
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(observability.RequestID)
	r.Use(observability.Logging)
	r.Use(cors)

	r.Get("/version", s.handleVersion)
	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	r.Group(func(api chi.Router) {
		api.Use(observability.APIKey(s.cfg.APIKey))

		api.Route("/planning", func(r chi.Router) {
			r.Post("/messages", s.handlePlanningMessage)
			r.Get("/sessions/{session_id}", s.getPlanningSession)
			r.Post("/sessions/{session_id}/materialize", s.materializeSession)
		})

		api.Route("/activities", func(r chi.Router) {
			r.Get("/", s.listActivities)
			r.Get("/{activity_id}", s.getActivity)
			r.Post("/{activity_id}/tasks/{task_id}/complete", s.completeActivityTask)
			r.Post("/{activity_id}/tasks/{task_id}/reopen", s.reopenActivityTask)
		})

		api.Route("/journal", func(r chi.Router) {
			r.Get("/entries", s.listJournalEntries)
			r.Post("/entries", s.createJournalEntry)
			r.Delete("/entries/{entry_id}", s.deleteJournalEntry)
		})

		api.Route("/reminders", func(r chi.Router) {
			r.Get("/jobs", s.listReminderJobs)
			r.Post("/jobs", s.createReminderJob)
			r.Get("/jobs/{job_id}", s.getReminderJob)
			r.Put("/jobs/{job_id}", s.updateReminderJob)
			r.Delete("/jobs/{job_id}", s.deleteReminderJob)
			r.Post("/jobs/{job_id}/pause", s.pauseReminderJob)
			r.Post("/jobs/{job_id}/resume", s.resumeReminderJob)
			r.Post("/jobs/{job_id}/run", s.runReminderJob)
			r.Get("/jobs/{job_id}/state", s.getReminderJobState)
		})

		api.Route("/models", func(r chi.Router) {
			r.Get("/", s.listProviders)
			r.Put("/{provider_id}/config", s.configureProvider)
			r.Delete("/{provider_id}", s.deleteProvider)
			r.Get("/active", s.getActiveModels)
			r.Put("/active", s.setActiveModels)
		})
	})

	return r
}

func (s *Server) startReminderScheduler() {
	go func() {
		defer close(s.reminderDone)
		s.reminderTick()

		ticker := time.NewTicker(reminderTickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.reminderTick()
			case <-s.reminderStop:
				return
			}
		}
	}()
}

func (s *Server) reminderTick() {
	due, err := s.reminders.SchedulerTick(time.Now().UTC())
	if err != nil {
		log.Printf("reminder scheduler tick failed: %v", err)
		return
	}
	for _, jobID := range due {
		s.reminderWG.Add(1)
		go func(jobID string) {
			defer s.reminderWG.Done()
			s.executeReminder(jobID)
		}(jobID)
	}
}

func (s *Server) executeReminder(jobID string) {
	err := s.reminders.ExecuteJob(jobID)
	if s.metrics != nil {
		status := "succeeded"
		if err != nil {
			status = "failed"
		}
		s.metrics.ReminderRuns.WithLabelValues(status).Inc()
	}
	if err != nil &&
		!errors.Is(err, reminder.ErrJobNotFound) &&
		!errors.Is(err, reminder.ErrJobAlreadyRunning) {
		log.Printf("reminder job %s execute failed: %v", jobID, err)
	}
}

func (s *Server) dispatchReminder(ctx context.Context, channelName, userID, sessionID, text string) error {
	var channels map[string]map[string]interface{}
	s.store.Read(func(state *repo.State) {
		channels = state.Channels
	})
	return s.channels.Send(ctx, channelName, userID, sessionID, text, channels)
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization,X-Api-Key,X-Request-Id")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
