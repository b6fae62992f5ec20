package channel

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"dayplan/gateway/internal/domain"
)

// Sender delivers an outbound text to a user over one transport. Reminder
// dispatch goes through here; the webhook sender is the boundary to the
// push-notification service.
type Sender interface {
	Name() string
	SendText(ctx context.Context, userID, sessionID, text string, cfg map[string]interface{}) error
}

type Registry struct {
	senders map[string]Sender
}

func NewRegistry(senders ...Sender) *Registry {
	r := &Registry{senders: map[string]Sender{}}
	for _, sender := range senders {
		if sender == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(sender.Name()))
		if name == "" {
			continue
		}
		r.senders[name] = sender
	}
	return r
}

func (r *Registry) Send(ctx context.Context, name, userID, sessionID, text string, channels domain.ChannelConfigMap) error {
	key := strings.ToLower(strings.TrimSpace(name))
	sender, ok := r.senders[key]
	if !ok {
		return fmt.Errorf("channel %q is not registered", key)
	}
	cfg := map[string]interface{}{}
	if channels != nil {
		if raw, ok := channels[key]; ok {
			cfg = raw
		}
	}
	if enabled, ok := cfg["enabled"].(bool); ok && !enabled {
		return fmt.Errorf("channel %q is disabled", key)
	}
	return sender.SendText(ctx, userID, sessionID, text, cfg)
}

type ConsoleChannel struct{}

func NewConsoleChannel() *ConsoleChannel {
	return &ConsoleChannel{}
}

func (c *ConsoleChannel) Name() string {
	return "console"
}

func (c *ConsoleChannel) SendText(_ context.Context, _ string, _ string, text string, _ map[string]interface{}) error {
	log.Printf("[console] outbound message delivered chars=%d", utf8.RuneCountInString(text))
	return nil
}
