package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dayplan/gateway/internal/domain"
)

func TestConsoleChannelSendTextLogsWithoutMessageBody(t *testing.T) {
	var buf bytes.Buffer
	originalOutput := log.Writer()
	originalFlags := log.Flags()
	originalPrefix := log.Prefix()
	log.SetOutput(&buf)
	log.SetFlags(0)
	log.SetPrefix("")
	t.Cleanup(func() {
		log.SetOutput(originalOutput)
		log.SetFlags(originalFlags)
		log.SetPrefix(originalPrefix)
	})

	ch := NewConsoleChannel()
	secret := "my-secret-token-123"
	if err := ch.SendText(context.Background(), "u1", "s1", secret, nil); err != nil {
		t.Fatalf("SendText returned error: %v", err)
	}

	logText := buf.String()
	if strings.Contains(logText, secret) {
		t.Fatalf("expected log to hide message body, got=%q", logText)
	}
	if !strings.Contains(logText, "chars=") {
		t.Fatalf("expected redacted metric in log, got=%q", logText)
	}
}

func TestWebhookChannelPostsReminderNotification(t *testing.T) {
	t.Parallel()
	var got webhookPayload
	var auth string
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode webhook payload failed: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer endpoint.Close()

	registry := NewRegistry(NewWebhookChannel())
	channels := domain.ChannelConfigMap{
		"webhook": {
			"enabled":    true,
			"url":        endpoint.URL,
			"auth_token": "push-secret",
		},
	}
	err := registry.Send(context.Background(), "webhook", "u1", "sess-1", "Time to plan your day", channels)
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if got.Event != "reminder.due" {
		t.Fatalf("unexpected event: %q", got.Event)
	}
	if got.UserID != "u1" || got.SessionID != "sess-1" {
		t.Fatalf("unexpected routing fields: user=%q session=%q", got.UserID, got.SessionID)
	}
	if got.Notification.Title != defaultWebhookTitle || got.Notification.Body != "Time to plan your day" {
		t.Fatalf("unexpected notification: %+v", got.Notification)
	}
	if got.SentAt == "" {
		t.Fatalf("sent_at must be stamped")
	}
	if auth != "Bearer push-secret" {
		t.Fatalf("expected bearer auth from config, got=%q", auth)
	}
}

func TestWebhookChannelRequiresURL(t *testing.T) {
	t.Parallel()
	ch := NewWebhookChannel()
	err := ch.SendText(context.Background(), "u1", "", "hello", map[string]interface{}{})
	if err == nil || !strings.Contains(err.Error(), "config.url") {
		t.Fatalf("expected missing url error, got=%v", err)
	}
}

func TestWebhookChannelSurfacesUpstreamFailure(t *testing.T) {
	t.Parallel()
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer endpoint.Close()

	ch := NewWebhookChannel()
	err := ch.SendText(context.Background(), "u1", "", "hello", map[string]interface{}{"url": endpoint.URL})
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("expected upstream status error, got=%v", err)
	}
}

func TestRegistryRejectsUnknownChannel(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(NewConsoleChannel())
	err := registry.Send(context.Background(), "telegram", "u1", "s1", "hi", nil)
	if err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Fatalf("expected unknown channel error, got=%v", err)
	}
}

func TestRegistryRespectsDisabledFlag(t *testing.T) {
	t.Parallel()
	registry := NewRegistry(NewConsoleChannel())
	channels := domain.ChannelConfigMap{
		"console": {"enabled": false},
	}
	err := registry.Send(context.Background(), "console", "u1", "s1", "hi", channels)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("expected disabled channel error, got=%v", err)
	}
}
