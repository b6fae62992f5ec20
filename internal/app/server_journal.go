package app

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/repo"
)

func (s *Server) listJournalEntries(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	activityID := r.URL.Query().Get("activity_id")
	out := make([]domain.JournalEntry, 0)
	s.store.Read(func(state *repo.State) {
		for _, entry := range state.Journal {
			if userID != "" && entry.UserID != userID {
				continue
			}
			if activityID != "" && entry.ActivityID != activityID {
				continue
			}
			out = append(out, entry)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req domain.JournalEntry
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid_json", "invalid request body", nil)
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeErr(w, http.StatusBadRequest, "invalid_entry", "text is required", nil)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = domain.DemoUserID
	}
	req.ID = newID("journal")
	req.CreatedAt = nowISO()

	if err := s.store.Write(func(state *repo.State) error {
		if req.ActivityID != "" {
			if _, ok := state.Activities[req.ActivityID]; !ok {
				req.ActivityID = ""
			}
		}
		state.Journal[req.ID] = req
		return nil
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (s *Server) deleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "entry_id")
	deleted := false
	if err := s.store.Write(func(state *repo.State) error {
		if _, ok := state.Journal[id]; ok {
			deleted = true
			delete(state.Journal, id)
		}
		return nil
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
		return
	}
	if !deleted {
		writeErr(w, http.StatusNotFound, "not_found", "journal entry not found", map[string]string{"entry_id": id})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
