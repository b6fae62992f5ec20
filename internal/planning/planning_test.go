package planning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dayplan/gateway/internal/domain"
	"dayplan/gateway/internal/service/ports"
)

// memStore is an in-memory ports.StateStore for exercising the planning
// pipeline without touching disk.
type memStore struct {
	sessions   map[string]domain.PlanningSession
	activities map[string]domain.Activity
	writeErr   error
}

func newMemStore() *memStore {
	return &memStore{
		sessions:   map[string]domain.PlanningSession{},
		activities: map[string]domain.Activity{},
	}
}

func (m *memStore) ReadPlanning(fn func(state ports.PlanningAggregate)) {
	fn(ports.PlanningAggregate{Sessions: m.sessions, Activities: m.activities})
}

func (m *memStore) WritePlanning(fn func(state *ports.PlanningAggregate) error) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	aggregate := ports.PlanningAggregate{Sessions: m.sessions, Activities: m.activities}
	if err := fn(&aggregate); err != nil {
		return err
	}
	m.sessions = aggregate.Sessions
	m.activities = aggregate.Activities
	return nil
}

func (m *memStore) ReadJournal(func(state ports.JournalAggregate)) {}

func (m *memStore) WriteJournal(func(state *ports.JournalAggregate) error) error { return nil }

func (m *memStore) ReadReminders(func(state ports.RemindersAggregate)) {}

func (m *memStore) WriteReminders(func(state *ports.RemindersAggregate) error) error { return nil }

func (m *memStore) ReadModels(func(state ports.ModelsAggregate)) {}

func (m *memStore) WriteModels(func(state *ports.ModelsAggregate) error) error { return nil }

var _ ports.StateStore = (*memStore)(nil)

// scriptedCompleter routes prompts on their instruction text and hands back
// canned replies, mirroring how the pipeline routes real model calls.
type scriptedCompleter struct {
	classifyReply  string
	extractReply   string
	extractReplies []string
	planReply      string
	classifyErr    error
	extractErr     error
	planErr        error
	planCalls      int
}

func (c *scriptedCompleter) Complete(_ context.Context, system string, _ []domain.Turn) (string, error) {
	instructions := strings.ToLower(system)
	switch {
	case strings.Contains(instructions, "classify"):
		return c.classifyReply, c.classifyErr
	case strings.Contains(instructions, "json object"):
		if len(c.extractReplies) > 0 {
			reply := c.extractReplies[0]
			c.extractReplies = c.extractReplies[1:]
			return reply, c.extractErr
		}
		return c.extractReply, c.extractErr
	default:
		c.planCalls++
		return c.planReply, c.planErr
	}
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(store ports.StateStore, completer Completer, clock *testClock) *Service {
	counter := 0
	return NewService(Dependencies{
		Store:      store,
		Completer:  completer,
		IdleWindow: 30 * time.Minute,
		Now:        clock.Now,
		NewID: func(prefix string) string {
			counter++
			return fmt.Sprintf("%s-%d", prefix, counter)
		},
	})
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

var errScripted = errors.New("scripted failure")
