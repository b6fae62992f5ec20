package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	webhookReminderEvent  = "reminder.due"
	defaultWebhookTitle   = "Day plan reminder"
	defaultWebhookTimeout = 5 * time.Second
	webhookUserAgent      = "dayplan-gateway"
)

// WebhookChannel delivers reminder notifications to a configured HTTP
// endpoint. This is where a push-notification service attaches: the payload
// carries the notification content plus the planning session the reminder
// belongs to, so the receiver can deep-link back into the app.
type WebhookChannel struct {
	client *http.Client
}

func NewWebhookChannel() *WebhookChannel {
	return &WebhookChannel{client: &http.Client{}}
}

func (c *WebhookChannel) Name() string {
	return "webhook"
}

type webhookNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type webhookPayload struct {
	Event        string              `json:"event"`
	UserID       string              `json:"user_id"`
	SessionID    string              `json:"planning_session_id,omitempty"`
	Notification webhookNotification `json:"notification"`
	SentAt       string              `json:"sent_at"`
}

func (c *WebhookChannel) SendText(ctx context.Context, userID, sessionID, text string, cfg map[string]interface{}) error {
	endpoint := strings.TrimSpace(cfgString(cfg, "url"))
	if endpoint == "" {
		return fmt.Errorf("channel webhook requires config.url")
	}

	payload := webhookPayload{
		Event:     webhookReminderEvent,
		UserID:    userID,
		SessionID: sessionID,
		Notification: webhookNotification{
			Title: notificationTitle(cfg),
			Body:  text,
		},
		SentAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload failed: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, cfgTimeout(cfg))
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", webhookUserAgent)
	if token := strings.TrimSpace(cfgString(cfg, "auth_token")); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

func notificationTitle(cfg map[string]interface{}) string {
	if title := strings.TrimSpace(cfgString(cfg, "title")); title != "" {
		return title
	}
	return defaultWebhookTitle
}

func cfgString(cfg map[string]interface{}, key string) string {
	value, _ := cfg[key].(string)
	return value
}

func cfgTimeout(cfg map[string]interface{}) time.Duration {
	switch v := cfg["timeout_seconds"].(type) {
	case float64:
		if v > 0 {
			return time.Duration(v * float64(time.Second))
		}
	case int:
		if v > 0 {
			return time.Duration(v) * time.Second
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Second
		}
	}
	return defaultWebhookTimeout
}
