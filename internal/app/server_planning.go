package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/planning"
)

type planningMessageRequest struct {
	UserID    string `json:"user_id"`
	Mode      string `json:"mode"`
	Text      string `json:"text"`
	SourceURL string `json:"source_url"`
}

type planningMessageResponse struct {
	SessionID  string                `json:"session_id"`
	State      domain.SessionState   `json:"state"`
	Reply      string                `json:"reply"`
	Progress   planning.ProgressInfo `json:"progress"`
	Plan       *domain.Plan          `json:"plan,omitempty"`
	ActivityID string                `json:"activity_id,omitempty"`
}

func (s *Server) handlePlanningMessage(w http.ResponseWriter, r *http.Request) {
	var req planningMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}

	result, err := s.planning.HandleMessage(r.Context(), req.UserID, req.Mode, req.Text, req.SourceURL)
	if err != nil {
		s.writePlanningError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.PlanningTurns.WithLabelValues(string(result.Session.Mode), string(result.Session.State)).Inc()
		if result.ActivityID != "" {
			s.metrics.Materializations.Inc()
		}
	}
	writeJSON(w, http.StatusOK, planningMessageResponse{
		SessionID:  result.Session.ID,
		State:      result.Session.State,
		Reply:      result.Reply,
		Progress:   result.Progress,
		Plan:       result.Session.PendingPlan,
		ActivityID: result.ActivityID,
	})
}

func (s *Server) getPlanningSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.planning.GetSession(chi.URLParam(r, "session_id"))
	if err != nil {
		s.writePlanningError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) materializeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	activityID, err := s.planning.Materialize(sessionID)
	if err != nil {
		s.writePlanningError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Materializations.Inc()
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID, "activity_id": activityID})
}

func (s *Server) writePlanningError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, planning.ErrEmptyMessage):
		writeErr(w, http.StatusBadRequest, "empty_message", "text is required", nil)
	case errors.Is(err, planning.ErrInvalidMode):
		writeErr(w, http.StatusBadRequest, "invalid_mode", "mode must be quick or smart", nil)
	case errors.Is(err, planning.ErrSessionNotFound):
		writeErr(w, http.StatusNotFound, "session_not_found", "planning session not found", nil)
	case errors.Is(err, planning.ErrSessionConflict):
		writeErr(w, http.StatusConflict, "session_conflict", "session changed underneath this request, retry", nil)
	case errors.Is(err, planning.ErrSessionNotConfirmable):
		writeErr(w, http.StatusConflict, "session_not_confirmable", "session has no confirmed pending plan", nil)
	case errors.Is(err, planning.ErrGenerationFailed):
		writeErr(w, http.StatusBadGateway, "generation_failed", "plan generation failed, send another message to retry", nil)
	case errors.Is(err, planning.ErrMaterializationFailed):
		writeErr(w, http.StatusBadGateway, "materialization_failed", "could not save the plan, retry the confirmation", nil)
	default:
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
	}
}
