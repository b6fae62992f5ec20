package planning

import (
	"fmt"
	"time"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/ports"
)

// Materializer converts a confirmed pending plan into persisted activity and
// task records. The whole conversion happens inside a single store write, and
// retries are idempotent: a session that already completed hands back the
// activity it produced the first time.
type Materializer struct {
	Store ports.StateStore
	Now   func() time.Time
	NewID func(prefix string) string
}

func (m *Materializer) Materialize(sessionID string) (string, error) {
	var activityID string
	err := m.Store.WritePlanning(func(st *ports.PlanningAggregate) error {
		session, ok := st.Sessions[sessionID]
		if !ok || session.State == domain.StateAbandoned {
			return ErrSessionNotFound
		}
		if session.State == domain.StateCompleted {
			activityID = session.ActivityID
			return nil
		}
		if session.State != domain.StateConfirming || session.PendingPlan == nil {
			return ErrSessionNotConfirmable
		}

		now := m.Now().UTC().Format(time.RFC3339)
		plan := session.PendingPlan
		activity := domain.Activity{
			ID:        m.NewID("act"),
			UserID:    session.UserID,
			SessionID: session.ID,
			Title:     plan.Title,
			Domain:    session.Domain,
			Tasks:     make([]domain.ActivityTask, 0, len(plan.Tasks)),
			Budget:    plan.Budget,
			CreatedAt: now,
		}
		for _, task := range plan.Tasks {
			activity.Tasks = append(activity.Tasks, domain.ActivityTask{
				ID:        m.NewID("task"),
				Title:     task.Title,
				Cost:      task.Cost,
				CostNotes: task.CostNotes,
			})
		}

		st.Activities[activity.ID] = activity
		session.ActivityID = activity.ID
		session.PendingPlan = nil
		session.State = domain.StateCompleted
		session.LastActivity = now
		st.Sessions[session.ID] = session
		activityID = activity.ID
		return nil
	})
	if err != nil {
		if err == ErrSessionNotFound || err == ErrSessionNotConfirmable {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrMaterializationFailed, err)
	}
	return activityID, nil
}
