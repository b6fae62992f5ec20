package planning

import (
	"context"
	"strings"

	"dayplan/gateway/internal/domain"
)

// Completer is the one seam to the language model. The app layer backs it
// with the provider runner; tests back it with scripted replies.
type Completer interface {
	Complete(ctx context.Context, system string, turns []domain.Turn) (string, error)
}

const classifySystemPrompt = `You label day-planning requests.
Classify the request into exactly one of these labels:
travel, fitness, events, learning, social, entertainment, work, shopping, dining, generic.
Reply with the label only, nothing else.`

type Classifier struct {
	Completer Completer
}

// Classify never fails: model errors and unrecognized labels fall back to
// keyword matching, then to the generic domain.
func (c *Classifier) Classify(ctx context.Context, text string) domain.DomainTag {
	if c != nil && c.Completer != nil {
		reply, err := c.Completer.Complete(ctx, classifySystemPrompt, []domain.Turn{
			{Speaker: domain.SpeakerUser, Text: text},
		})
		if err == nil {
			label := strings.ToLower(strings.Trim(strings.TrimSpace(reply), ".\"'`"))
			if tag, ok := domain.NormalizeDomain(label); ok {
				return tag
			}
		}
	}
	if tag, ok := keywordDomain(text); ok {
		return tag
	}
	return domain.DomainGeneric
}
