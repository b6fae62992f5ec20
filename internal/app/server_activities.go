package app

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/repo"
)

func (s *Server) listActivities(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	out := make([]domain.Activity, 0)
	s.store.Read(func(state *repo.State) {
		for _, activity := range state.Activities {
			if userID != "" && activity.UserID != userID {
				continue
			}
			out = append(out, activity)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "activity_id")
	var activity domain.Activity
	found := false
	s.store.Read(func(state *repo.State) {
		activity, found = state.Activities[id]
	})
	if !found {
		writeErr(w, http.StatusNotFound, "not_found", "activity not found", map[string]string{"activity_id": id})
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (s *Server) completeActivityTask(w http.ResponseWriter, r *http.Request) {
	s.setActivityTaskCompletion(w, r, true)
}

func (s *Server) reopenActivityTask(w http.ResponseWriter, r *http.Request) {
	s.setActivityTaskCompletion(w, r, false)
}

func (s *Server) setActivityTaskCompletion(w http.ResponseWriter, r *http.Request, completed bool) {
	activityID := chi.URLParam(r, "activity_id")
	taskID := chi.URLParam(r, "task_id")

	var updated domain.Activity
	activityFound := false
	taskFound := false
	if err := s.store.Write(func(state *repo.State) error {
		activity, ok := state.Activities[activityID]
		if !ok {
			return nil
		}
		activityFound = true
		for i := range activity.Tasks {
			if activity.Tasks[i].ID != taskID {
				continue
			}
			taskFound = true
			if completed {
				activity.Tasks[i].CompletedAt = nowISO()
			} else {
				activity.Tasks[i].CompletedAt = ""
			}
			break
		}
		if !taskFound {
			return nil
		}
		state.Activities[activityID] = activity
		updated = activity
		return nil
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, "store_error", err.Error(), nil)
		return
	}
	if !activityFound {
		writeErr(w, http.StatusNotFound, "not_found", "activity not found", map[string]string{"activity_id": activityID})
		return
	}
	if !taskFound {
		writeErr(w, http.StatusNotFound, "not_found", "task not found", map[string]string{"task_id": taskID})
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
