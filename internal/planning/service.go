package planning

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/ports"
)

type Dependencies struct {
	Store         ports.StateStore
	Completer     Completer
	ExtractSource func(ctx context.Context, url string) (string, error)
	IdleWindow    time.Duration
	Now           func() time.Time
	NewID         func(prefix string) string
}

type Service struct {
	deps         Dependencies
	sessions     *SessionStore
	classifier   *Classifier
	extractor    *Extractor
	generator    *Generator
	materializer *Materializer
}

func NewService(deps Dependencies) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func(prefix string) string {
			return prefix + "-" + uuid.NewString()
		}
	}
	return &Service{
		deps: deps,
		sessions: &SessionStore{
			Store:      deps.Store,
			IdleWindow: deps.IdleWindow,
			Now:        deps.Now,
			NewID:      deps.NewID,
		},
		classifier: &Classifier{Completer: deps.Completer},
		extractor:  &Extractor{Completer: deps.Completer},
		generator:  &Generator{Completer: deps.Completer},
		materializer: &Materializer{
			Store: deps.Store,
			Now:   deps.Now,
			NewID: deps.NewID,
		},
	}
}

type MessageResult struct {
	Session    domain.PlanningSession
	Reply      string
	Progress   ProgressInfo
	ActivityID string
}

const confirmQuestion = "Are you comfortable with this plan?"

// HandleMessage runs one conversational turn through the planning state
// machine and persists the outcome in a single commit.
func (s *Service) HandleMessage(ctx context.Context, userID, modeRaw, text, sourceURL string) (MessageResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return MessageResult{}, ErrEmptyMessage
	}
	mode, ok := domain.NormalizeMode(strings.TrimSpace(modeRaw))
	if !ok {
		return MessageResult{}, fmt.Errorf("%w: %q", ErrInvalidMode, modeRaw)
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = domain.DemoUserID
	}

	session, created, err := s.sessions.GetOrCreate(userID, mode)
	if err != nil {
		return MessageResult{}, err
	}
	base := session

	if created {
		session.Domain = s.classifier.Classify(ctx, text)
	}
	now := s.nowISO()
	session.Transcript = append(session.Transcript, domain.Turn{
		Speaker:   domain.SpeakerUser,
		Text:      text,
		CreatedAt: now,
	})
	s.foldSourceContent(ctx, &session, sourceURL)

	if base.State == domain.StatePlanPending || base.State == domain.StateConfirming {
		switch DetectConfirmation(text) {
		case VerdictAffirm:
			return s.confirmAndMaterialize(base, session)
		case VerdictReject:
			session.PendingPlan = nil
			session.State = domain.StateCollecting
			reply := "Okay, let's start fresh. What would you like instead?"
			session.Transcript = append(session.Transcript, domain.Turn{
				Speaker:   domain.SpeakerAssistant,
				Text:      reply,
				CreatedAt: s.nowISO(),
			})
			if err := s.sessions.Commit(base, session); err != nil {
				return MessageResult{}, err
			}
			return s.result(session, reply, ""), nil
		default:
			// The refinement is already a user turn; it re-enters
			// collection so extraction picks it up.
			session.PendingPlan = nil
			session.State = domain.StateCollecting
		}
	}

	return s.collectOrGenerate(ctx, base, session)
}

func (s *Service) collectOrGenerate(ctx context.Context, base, session domain.PlanningSession) (MessageResult, error) {
	// Extraction re-runs against the full transcript, so the latest validated
	// value wins per field; a restated destination replaces the old one. A
	// degraded empty extraction has no keys and touches nothing.
	extracted := s.extractor.Extract(ctx, &session, FieldsFor(session.Domain))
	for name, value := range extracted {
		session.Stated[name] = value
	}

	missing := MissingFields(session.Domain, session.Stated)
	batch := PlanQuestions(&session, missing)
	if !batch.Ready {
		session.State = domain.StateCollecting
		session.QuestionCount += len(batch.NewFields)
		session.AskedFields = append(session.AskedFields, batch.NewFields...)
		reply := QuestionText(batch.Fields)
		session.Transcript = append(session.Transcript, domain.Turn{
			Speaker:   domain.SpeakerAssistant,
			Text:      reply,
			CreatedAt: s.nowISO(),
		})
		if err := s.sessions.Commit(base, session); err != nil {
			return MessageResult{}, err
		}
		return s.result(session, reply, ""), nil
	}

	session.State = domain.StateReadyToGenerate
	plan, err := s.generator.Generate(ctx, &session)
	if err != nil {
		// Keep the turn and whatever was extracted; the session stays
		// ready so the next message can retry generation.
		if commitErr := s.sessions.Commit(base, session); commitErr != nil {
			return MessageResult{}, commitErr
		}
		return MessageResult{}, err
	}

	session.PendingPlan = plan
	session.State = domain.StatePlanPending
	reply := planSummary(plan) + " " + confirmQuestion
	session.Transcript = append(session.Transcript, domain.Turn{
		Speaker:   domain.SpeakerAssistant,
		Text:      reply,
		CreatedAt: s.nowISO(),
	})
	if err := s.sessions.Commit(base, session); err != nil {
		return MessageResult{}, err
	}
	return s.result(session, reply, ""), nil
}

func (s *Service) confirmAndMaterialize(base, session domain.PlanningSession) (MessageResult, error) {
	session.State = domain.StateConfirming
	if err := s.sessions.Commit(base, session); err != nil {
		return MessageResult{}, err
	}
	activityID, err := s.materializer.Materialize(session.ID)
	if err != nil {
		return MessageResult{}, err
	}
	final, getErr := s.sessions.Get(session.ID)
	if getErr != nil {
		final = session
	}
	return s.result(final, "Done! Your plan is saved and ready to go.", activityID), nil
}

// GetSession returns the stored record; a live session idle past the window
// is abandoned on this access.
func (s *Service) GetSession(sessionID string) (domain.PlanningSession, error) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return domain.PlanningSession{}, err
	}
	if session.State.Live() && s.sessions.stale(session, s.deps.Now()) {
		writeErr := s.deps.Store.WritePlanning(func(st *ports.PlanningAggregate) error {
			stored, ok := st.Sessions[sessionID]
			if !ok || !stored.State.Live() {
				return nil
			}
			stored.State = domain.StateAbandoned
			st.Sessions[sessionID] = stored
			return nil
		})
		if writeErr != nil {
			log.Printf("planning session %s abandon on access failed: %v", sessionID, writeErr)
		}
		session.State = domain.StateAbandoned
	}
	return session, nil
}

func (s *Service) Materialize(sessionID string) (string, error) {
	return s.materializer.Materialize(sessionID)
}

func (s *Service) foldSourceContent(ctx context.Context, session *domain.PlanningSession, sourceURL string) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" || s.deps.ExtractSource == nil {
		return
	}
	text, err := s.deps.ExtractSource(ctx, sourceURL)
	if err != nil {
		log.Printf("planning session %s source extraction failed url=%s err=%v", session.ID, sourceURL, err)
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if session.SourceContent == "" {
		session.SourceContent = text
	} else {
		session.SourceContent = session.SourceContent + "\n" + text
	}
	session.Transcript = append(session.Transcript, domain.Turn{
		Speaker:   domain.SpeakerSource,
		Text:      text,
		CreatedAt: s.nowISO(),
	})
}

func (s *Service) result(session domain.PlanningSession, reply, activityID string) MessageResult {
	return MessageResult{
		Session:    session,
		Reply:      reply,
		Progress:   Progress(&session),
		ActivityID: activityID,
	}
}

func (s *Service) nowISO() string {
	return s.deps.Now().UTC().Format(time.RFC3339)
}

func planSummary(plan *domain.Plan) string {
	steps := "steps"
	if len(plan.Tasks) == 1 {
		steps = "step"
	}
	return fmt.Sprintf("Here's %q — %d %s.", plan.Title, len(plan.Tasks), steps)
}
