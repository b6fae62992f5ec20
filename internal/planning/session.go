package planning

import (
	"strings"
	"time"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/ports"
)

// SessionStore owns the lifecycle of planning sessions on top of the shared
// state store. The store's single writer lock is what serializes concurrent
// turns on the same session.
type SessionStore struct {
	Store      ports.StateStore
	IdleWindow time.Duration
	Now        func() time.Time
	NewID      func(prefix string) string
}

// GetOrCreate returns the one live session for (user, mode), creating a fresh
// one when none exists. A live session idle past the window is marked
// abandoned on the spot and replaced.
func (s *SessionStore) GetOrCreate(userID string, mode domain.PlanningMode) (domain.PlanningSession, bool, error) {
	var session domain.PlanningSession
	created := false
	err := s.Store.WritePlanning(func(st *ports.PlanningAggregate) error {
		now := s.Now()
		for id, existing := range st.Sessions {
			if existing.UserID != userID || existing.Mode != mode || !existing.State.Live() {
				continue
			}
			if s.stale(existing, now) {
				existing.State = domain.StateAbandoned
				st.Sessions[id] = existing
				continue
			}
			session = existing
			return nil
		}
		session = domain.PlanningSession{
			ID:           s.NewID("sess"),
			UserID:       userID,
			Mode:         mode,
			Domain:       domain.DomainGeneric,
			Transcript:   []domain.Turn{},
			AskedFields:  []string{},
			Stated:       map[string]string{},
			State:        domain.StateCollecting,
			CreatedAt:    now.UTC().Format(time.RFC3339),
			LastActivity: now.UTC().Format(time.RFC3339),
		}
		st.Sessions[session.ID] = session
		created = true
		return nil
	})
	if err != nil {
		return domain.PlanningSession{}, false, err
	}
	return session, created, nil
}

// Get returns the stored session record, live or terminal.
func (s *SessionStore) Get(sessionID string) (domain.PlanningSession, error) {
	var session domain.PlanningSession
	found := false
	s.Store.ReadPlanning(func(st ports.PlanningAggregate) {
		session, found = st.Sessions[sessionID]
	})
	if !found {
		return domain.PlanningSession{}, ErrSessionNotFound
	}
	return session, nil
}

// Commit re-validates the updated session against the authoritative stored
// record and persists it. The turn was computed outside the lock; if another
// turn landed in between, the update is rejected rather than applied to a
// state the caller never saw.
func (s *SessionStore) Commit(base domain.PlanningSession, updated domain.PlanningSession) error {
	return s.Store.WritePlanning(func(st *ports.PlanningAggregate) error {
		stored, ok := st.Sessions[updated.ID]
		if !ok || !stored.State.Live() {
			return ErrSessionNotFound
		}
		if stored.State != base.State || len(stored.Transcript) != len(base.Transcript) {
			return ErrSessionConflict
		}
		updated.LastActivity = s.Now().UTC().Format(time.RFC3339)
		st.Sessions[updated.ID] = updated
		return nil
	})
}

func (s *SessionStore) stale(session domain.PlanningSession, now time.Time) bool {
	if s.IdleWindow <= 0 {
		return false
	}
	last, err := time.Parse(time.RFC3339, strings.TrimSpace(session.LastActivity))
	if err != nil {
		return false
	}
	return now.Sub(last) > s.IdleWindow
}
