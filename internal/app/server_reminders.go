package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/reminder"
)

func (s *Server) listReminderJobs(w http.ResponseWriter, _ *http.Request) {
	jobs, err := s.reminders.ListJobs()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) createReminderJob(w http.ResponseWriter, r *http.Request) {
	var req domain.ReminderJobSpec
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}
	job, err := s.reminders.CreateJob(req)
	if err != nil {
		s.writeReminderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) getReminderJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.reminders.GetJob(chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeReminderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) updateReminderJob(w http.ResponseWriter, r *http.Request) {
	var req domain.ReminderJobSpec
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}
	job, err := s.reminders.UpdateJob(chi.URLParam(r, "job_id"), req)
	if err != nil {
		s.writeReminderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) deleteReminderJob(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.reminders.DeleteJob(chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeReminderError(w, err)
		return
	}
	if !deleted {
		writeErr(w, http.StatusNotFound, "not_found", "reminder job not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) pauseReminderJob(w http.ResponseWriter, r *http.Request) {
	s.updateReminderStatus(w, r, "paused")
}

func (s *Server) resumeReminderJob(w http.ResponseWriter, r *http.Request) {
	s.updateReminderStatus(w, r, "resumed")
}

func (s *Server) updateReminderStatus(w http.ResponseWriter, r *http.Request, status string) {
	jobID := chi.URLParam(r, "job_id")
	if err := s.reminders.UpdateStatus(jobID, status); err != nil {
		s.writeReminderError(w, err)
		return
	}
	state, err := s.reminders.GetState(jobID)
	if err != nil {
		s.writeReminderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) runReminderJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if err := s.reminders.ExecuteJob(jobID); err != nil {
		if errors.Is(err, reminder.ErrJobNotFound) || errors.Is(err, reminder.ErrJobAlreadyRunning) {
			s.writeReminderError(w, err)
			return
		}
		// Dispatch failures are recorded on the job state; surface them too.
		writeErr(w, http.StatusBadGateway, "dispatch_failed", err.Error(), map[string]string{"job_id": jobID})
		return
	}
	state, err := s.reminders.GetState(jobID)
	if err != nil {
		s.writeReminderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) getReminderJobState(w http.ResponseWriter, r *http.Request) {
	state, err := s.reminders.GetState(chi.URLParam(r, "job_id"))
	if err != nil {
		s.writeReminderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) writeReminderError(w http.ResponseWriter, err error) {
	var validation *reminder.ValidationError
	switch {
	case errors.As(err, &validation):
		writeErr(w, http.StatusBadRequest, validation.Code, validation.Message, nil)
	case errors.Is(err, reminder.ErrJobNotFound):
		writeErr(w, http.StatusNotFound, "not_found", "reminder job not found", nil)
	case errors.Is(err, reminder.ErrJobAlreadyRunning):
		writeErr(w, http.StatusConflict, "already_running", "reminder job is already running", nil)
	case errors.Is(err, reminder.ErrDefaultProtected):
		writeErr(w, http.StatusBadRequest, "default_protected", "default reminder job cannot be deleted", nil)
	default:
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
	}
}
