package app

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"dayplan/gateway/internal/config"
	"dayplan/gateway/internal/domain"
)

func TestPublicEndpoints(t *testing.T) {
	ts := newTestServer(t, "")

	var version map[string]string
	if status := doJSON(t, ts, http.MethodGet, "/version", nil, &version); status != http.StatusOK {
		t.Fatalf("version status=%d", status)
	}
	if version["version"] == "" {
		t.Fatal("expected a version string")
	}

	var health map[string]bool
	if status := doJSON(t, ts, http.MethodGet, "/healthz", nil, &health); status != http.StatusOK {
		t.Fatalf("healthz status=%d", status)
	}
	if !health["ok"] {
		t.Fatal("expected ok=true")
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status=%d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "dayplan_planning_turns_total") {
		t.Fatal("expected planning turn counter in metrics exposition")
	}
}

func TestAPIKeyProtectsAPIRoutes(t *testing.T) {
	ts := newTestServer(t, "secret-key")

	resp, err := http.Get(ts.URL + "/activities")
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got=%d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/activities", nil)
	req.Header.Set("X-API-Key", "secret-key")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with key, got=%d", resp.StatusCode)
	}

	if resp, err = http.Get(ts.URL + "/healthz"); err != nil {
		t.Fatal(err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz must bypass auth, got=%d", resp.StatusCode)
	}
}

func TestPlanningConversationOverDemoProvider(t *testing.T) {
	ts := newTestServer(t, "")

	var first planningMessageResponse
	status := doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{
		Mode: "quick",
		Text: "help me plan a relaxing saturday",
	}, &first)
	if status != http.StatusOK {
		t.Fatalf("first message status=%d", status)
	}
	if first.State != domain.StateCollecting {
		t.Fatalf("expected collecting after first message, got=%s", first.State)
	}
	if first.Progress.Total != 3 {
		t.Fatalf("quick mode total=%d", first.Progress.Total)
	}
	if first.Reply == "" {
		t.Fatal("expected questions in the reply")
	}

	var second planningMessageResponse
	status = doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{
		Mode: "quick",
		Text: "whatever works, surprise me",
	}, &second)
	if status != http.StatusOK {
		t.Fatalf("second message status=%d", status)
	}
	if second.SessionID != first.SessionID {
		t.Fatalf("expected the same live session, got %s then %s", first.SessionID, second.SessionID)
	}
	if second.State != domain.StatePlanPending {
		t.Fatalf("expected plan_pending, got=%s", second.State)
	}
	if second.Plan == nil || len(second.Plan.Tasks) == 0 {
		t.Fatal("expected a pending plan with tasks")
	}

	var third planningMessageResponse
	status = doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{
		Mode: "quick",
		Text: "yes",
	}, &third)
	if status != http.StatusOK {
		t.Fatalf("third message status=%d", status)
	}
	if third.State != domain.StateCompleted {
		t.Fatalf("expected completed, got=%s", third.State)
	}
	if third.ActivityID == "" {
		t.Fatal("expected an activity id after confirmation")
	}

	var activities []domain.Activity
	if status := doJSON(t, ts, http.MethodGet, "/activities?user_id="+domain.DemoUserID, nil, &activities); status != http.StatusOK {
		t.Fatalf("list activities status=%d", status)
	}
	if len(activities) != 1 || activities[0].ID != third.ActivityID {
		t.Fatalf("expected the materialized activity, got=%+v", activities)
	}

	var repeat map[string]string
	if status := doJSON(t, ts, http.MethodPost, "/planning/sessions/"+first.SessionID+"/materialize", nil, &repeat); status != http.StatusOK {
		t.Fatalf("repeat materialize status=%d", status)
	}
	if repeat["activity_id"] != third.ActivityID {
		t.Fatalf("materialize must be idempotent, got=%q want=%q", repeat["activity_id"], third.ActivityID)
	}
}

func TestPlanningMessageValidation(t *testing.T) {
	ts := newTestServer(t, "")

	var errBody domain.APIErrorBody
	if status := doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{Mode: "quick"}, &errBody); status != http.StatusBadRequest {
		t.Fatalf("empty text status=%d", status)
	}
	if errBody.Error.Code != "empty_message" {
		t.Fatalf("expected empty_message, got=%q", errBody.Error.Code)
	}

	if status := doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{Mode: "turbo", Text: "plan my day"}, &errBody); status != http.StatusBadRequest {
		t.Fatalf("bad mode status=%d", status)
	}
	if errBody.Error.Code != "invalid_mode" {
		t.Fatalf("expected invalid_mode, got=%q", errBody.Error.Code)
	}

	if status := doJSON(t, ts, http.MethodGet, "/planning/sessions/missing", nil, &errBody); status != http.StatusNotFound {
		t.Fatalf("missing session status=%d", status)
	}
	if errBody.Error.Code != "session_not_found" {
		t.Fatalf("expected session_not_found, got=%q", errBody.Error.Code)
	}
}

func TestActivityTaskCompletionToggle(t *testing.T) {
	ts := newTestServer(t, "")
	activityID := runDemoPlanToActivity(t, ts)

	var activity domain.Activity
	if status := doJSON(t, ts, http.MethodGet, "/activities/"+activityID, nil, &activity); status != http.StatusOK {
		t.Fatalf("get activity status=%d", status)
	}
	if len(activity.Tasks) == 0 {
		t.Fatal("expected tasks on the activity")
	}
	taskID := activity.Tasks[0].ID

	var updated domain.Activity
	if status := doJSON(t, ts, http.MethodPost, "/activities/"+activityID+"/tasks/"+taskID+"/complete", nil, &updated); status != http.StatusOK {
		t.Fatalf("complete task status=%d", status)
	}
	if updated.Tasks[0].CompletedAt == "" {
		t.Fatal("expected completed_at to be stamped")
	}

	if status := doJSON(t, ts, http.MethodPost, "/activities/"+activityID+"/tasks/"+taskID+"/reopen", nil, &updated); status != http.StatusOK {
		t.Fatalf("reopen task status=%d", status)
	}
	if updated.Tasks[0].CompletedAt != "" {
		t.Fatal("expected completed_at cleared after reopen")
	}

	var errBody domain.APIErrorBody
	if status := doJSON(t, ts, http.MethodPost, "/activities/"+activityID+"/tasks/nope/complete", nil, &errBody); status != http.StatusNotFound {
		t.Fatalf("unknown task status=%d", status)
	}
}

func TestJournalEntryLifecycle(t *testing.T) {
	ts := newTestServer(t, "")

	var created domain.JournalEntry
	status := doJSON(t, ts, http.MethodPost, "/journal/entries", domain.JournalEntry{
		Text: "great walk in the park today",
	}, &created)
	if status != http.StatusOK {
		t.Fatalf("create entry status=%d", status)
	}
	if created.ID == "" || created.UserID != domain.DemoUserID {
		t.Fatalf("unexpected created entry: %+v", created)
	}

	var entries []domain.JournalEntry
	if status := doJSON(t, ts, http.MethodGet, "/journal/entries?user_id="+domain.DemoUserID, nil, &entries); status != http.StatusOK {
		t.Fatalf("list entries status=%d", status)
	}
	if len(entries) != 1 || entries[0].ID != created.ID {
		t.Fatalf("expected the created entry, got=%+v", entries)
	}

	var errBody domain.APIErrorBody
	if status := doJSON(t, ts, http.MethodPost, "/journal/entries", domain.JournalEntry{Text: "   "}, &errBody); status != http.StatusBadRequest {
		t.Fatalf("blank entry status=%d", status)
	}

	var deleted map[string]bool
	if status := doJSON(t, ts, http.MethodDelete, "/journal/entries/"+created.ID, nil, &deleted); status != http.StatusOK {
		t.Fatalf("delete entry status=%d", status)
	}
	if status := doJSON(t, ts, http.MethodDelete, "/journal/entries/"+created.ID, nil, &errBody); status != http.StatusNotFound {
		t.Fatalf("second delete status=%d", status)
	}
}

func TestReminderJobLifecycle(t *testing.T) {
	ts := newTestServer(t, "")

	var created domain.ReminderJobSpec
	status := doJSON(t, ts, http.MethodPost, "/reminders/jobs", domain.ReminderJobSpec{
		Name:     "midday check-in",
		Message:  "how is the plan going?",
		Enabled:  true,
		Schedule: domain.ReminderScheduleSpec{Type: "interval", Cron: "3600"},
		Dispatch: domain.ReminderDispatchSpec{Channel: "console"},
	}, &created)
	if status != http.StatusOK {
		t.Fatalf("create job status=%d", status)
	}
	if created.ID == "" {
		t.Fatal("expected a generated job id")
	}

	var view domain.ReminderJobView
	if status := doJSON(t, ts, http.MethodGet, "/reminders/jobs/"+created.ID, nil, &view); status != http.StatusOK {
		t.Fatalf("get job status=%d", status)
	}
	if view.Spec.Name != "midday check-in" {
		t.Fatalf("unexpected job view: %+v", view.Spec)
	}

	var state domain.ReminderJobState
	if status := doJSON(t, ts, http.MethodPost, "/reminders/jobs/"+created.ID+"/pause", nil, &state); status != http.StatusOK {
		t.Fatalf("pause status=%d", status)
	}
	if !state.Paused {
		t.Fatal("expected paused state")
	}
	if status := doJSON(t, ts, http.MethodPost, "/reminders/jobs/"+created.ID+"/resume", nil, &state); status != http.StatusOK {
		t.Fatalf("resume status=%d", status)
	}
	if state.Paused || state.NextRunAt == nil {
		t.Fatalf("expected rescheduled state after resume, got=%+v", state)
	}

	if status := doJSON(t, ts, http.MethodPost, "/reminders/jobs/"+created.ID+"/run", nil, &state); status != http.StatusOK {
		t.Fatalf("run status=%d", status)
	}
	if state.LastStatus == nil || *state.LastStatus != "succeeded" {
		t.Fatalf("expected succeeded run, got=%+v", state)
	}

	var errBody domain.APIErrorBody
	if status := doJSON(t, ts, http.MethodDelete, "/reminders/jobs/"+domain.DefaultReminderJobID, nil, &errBody); status != http.StatusBadRequest {
		t.Fatalf("default delete status=%d", status)
	}
	if errBody.Error.Code != "default_protected" {
		t.Fatalf("expected default_protected, got=%q", errBody.Error.Code)
	}

	var deleted map[string]bool
	if status := doJSON(t, ts, http.MethodDelete, "/reminders/jobs/"+created.ID, nil, &deleted); status != http.StatusOK {
		t.Fatalf("delete status=%d", status)
	}
}

func TestModelAdministration(t *testing.T) {
	ts := newTestServer(t, "")

	var providers []domain.ProviderInfo
	if status := doJSON(t, ts, http.MethodGet, "/models/", nil, &providers); status != http.StatusOK {
		t.Fatalf("list providers status=%d", status)
	}
	foundOpenAI := false
	for _, info := range providers {
		if info.ID == "openai" {
			foundOpenAI = true
		}
	}
	if !foundOpenAI {
		t.Fatalf("expected builtin openai provider, got=%+v", providers)
	}

	var errBody domain.APIErrorBody
	status := doJSON(t, ts, http.MethodPut, "/models/active", domain.ActiveModelsInfo{
		ActiveLLM: domain.ModelSlotConfig{ProviderID: "nope", Model: "any"},
	}, &errBody)
	if status != http.StatusBadRequest || errBody.Error.Code != "provider_not_found" {
		t.Fatalf("expected provider_not_found, got status=%d code=%q", status, errBody.Error.Code)
	}

	apiKey := "sk-test-0123456789"
	var configured domain.ProviderInfo
	status = doJSON(t, ts, http.MethodPut, "/models/myproxy/config", map[string]interface{}{
		"api_key":  apiKey,
		"base_url": "https://llm.example.com/v1",
	}, &configured)
	if status != http.StatusOK {
		t.Fatalf("configure provider status=%d", status)
	}
	if !configured.HasAPIKey || configured.CurrentAPIKey == apiKey {
		t.Fatalf("expected masked key, got=%+v", configured)
	}

	var active domain.ActiveModelsInfo
	status = doJSON(t, ts, http.MethodPut, "/models/active", domain.ActiveModelsInfo{
		ActiveLLM:   domain.ModelSlotConfig{ProviderID: "myproxy", Model: "llama-3.1-70b"},
		FallbackLLM: domain.ModelSlotConfig{ProviderID: "openai", Model: "gpt-4o-mini"},
	}, &active)
	if status != http.StatusOK {
		t.Fatalf("set active status=%d", status)
	}
	if active.ActiveLLM.ProviderID != "myproxy" || active.FallbackLLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected active models: %+v", active)
	}

	if status := doJSON(t, ts, http.MethodGet, "/models/active", nil, &active); status != http.StatusOK {
		t.Fatalf("get active status=%d", status)
	}
	if active.ActiveLLM.Model != "llama-3.1-70b" {
		t.Fatalf("active slot not persisted: %+v", active)
	}

	var deleted map[string]bool
	if status := doJSON(t, ts, http.MethodDelete, "/models/myproxy", nil, &deleted); status != http.StatusOK {
		t.Fatalf("delete provider status=%d", status)
	}
	if !deleted["deleted"] {
		t.Fatal("expected deleted=true")
	}
	if status := doJSON(t, ts, http.MethodGet, "/models/active", nil, &active); status != http.StatusOK {
		t.Fatalf("get active status=%d", status)
	}
	if active.ActiveLLM.ProviderID != "" {
		t.Fatalf("expected active slot cleared after provider delete, got=%+v", active)
	}
}

func runDemoPlanToActivity(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	var resp planningMessageResponse
	if status := doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{Mode: "quick", Text: "plan something fun"}, &resp); status != http.StatusOK {
		t.Fatalf("first message status=%d", status)
	}
	if status := doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{Mode: "quick", Text: "no preferences at all"}, &resp); status != http.StatusOK {
		t.Fatalf("second message status=%d", status)
	}
	if status := doJSON(t, ts, http.MethodPost, "/planning/messages", planningMessageRequest{Mode: "quick", Text: "yes"}, &resp); status != http.StatusOK {
		t.Fatalf("confirmation status=%d", status)
	}
	if resp.ActivityID == "" {
		t.Fatalf("expected an activity, ended in state=%s", resp.State)
	}
	return resp.ActivityID
}

func newTestServer(t *testing.T, apiKey string) *httptest.Server {
	t.Helper()
	dir, err := os.MkdirTemp("", "dayplan-app-")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	srv, err := NewServer(config.Config{
		Host:              "127.0.0.1",
		Port:              "0",
		DataDir:           dir,
		APIKey:            apiKey,
		SessionIdleWindow: 30 * time.Minute,
		EnableReminders:   false,
		MetricsEnabled:    true,
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return ts
}

func doJSON(t *testing.T, ts *httptest.Server, method, path string, body interface{}, out interface{}) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}
