package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"dayplan/gateway/internal/domain"
)

// hedgeMarkers disqualify a quote: an undecided statement leaves the field
// missing so the planner asks instead of guessing.
var hedgeMarkers = []string{
	"maybe", "not sure", "might", "possibly", "perhaps",
	"thinking about", "undecided", "haven't decided", "don't know",
}

type Extractor struct {
	Completer Completer
}

type extractedField struct {
	Value string `json:"value"`
	Quote string `json:"quote"`
}

// Extract pulls field values out of what the user literally said. Every value
// must carry a quote found verbatim in a user or source turn; anything else is
// dropped. Any failure degrades to an empty map.
func (e *Extractor) Extract(ctx context.Context, session *domain.PlanningSession, fields []FieldSpec) map[string]string {
	if e == nil || e.Completer == nil || session == nil || len(fields) == 0 {
		return map[string]string{}
	}
	turns := statedTurns(session)
	if len(turns) == 0 {
		return map[string]string{}
	}
	reply, err := e.Completer.Complete(ctx, extractionPrompt(fields), turns)
	if err != nil {
		return map[string]string{}
	}
	parsed := parseExtraction(reply)
	return validateExtraction(parsed, fields, statedText(session))
}

func extractionPrompt(fields []FieldSpec) string {
	names := make([]string, 0, len(fields))
	for _, field := range fields {
		names = append(names, field.Name)
	}
	return fmt.Sprintf(`Return a JSON object describing what the user has stated.
Consider only these fields: %s.
For each field the user has literally stated, emit {"value": "...", "quote": "..."}
where quote is the exact span of user text the value came from.
Omit fields the user has not stated. Never infer or guess. Reply with JSON only.`,
		strings.Join(names, ", "))
}

func statedTurns(session *domain.PlanningSession) []domain.Turn {
	out := make([]domain.Turn, 0, len(session.Transcript))
	for _, turn := range session.Transcript {
		if turn.Speaker == domain.SpeakerAssistant {
			continue
		}
		out = append(out, turn)
	}
	return out
}

// statedText is the concatenation of everything the user stated or supplied,
// used as the ground truth quotes must appear in.
func statedText(session *domain.PlanningSession) string {
	var b strings.Builder
	for _, turn := range session.Transcript {
		if turn.Speaker == domain.SpeakerAssistant {
			continue
		}
		b.WriteString(turn.Text)
		b.WriteString("\n")
	}
	b.WriteString(session.SourceContent)
	return strings.ToLower(b.String())
}

func parseExtraction(reply string) map[string]extractedField {
	raw := stripCodeFence(reply)
	var parsed map[string]extractedField
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &parsed); err != nil {
			return nil
		}
	}
	return parsed
}

func validateExtraction(parsed map[string]extractedField, fields []FieldSpec, groundTruth string) map[string]string {
	out := map[string]string{}
	if len(parsed) == 0 {
		return out
	}
	known := map[string]bool{}
	for _, field := range fields {
		known[field.Name] = true
	}
	for name, field := range parsed {
		key := strings.ToLower(strings.TrimSpace(name))
		if !known[key] {
			continue
		}
		value := strings.TrimSpace(field.Value)
		quote := strings.ToLower(strings.TrimSpace(field.Quote))
		if value == "" || quote == "" {
			continue
		}
		if !strings.Contains(groundTruth, quote) {
			continue
		}
		if hasHedge(quote) {
			continue
		}
		out[key] = value
	}
	return out
}

func hasHedge(quote string) bool {
	for _, marker := range hedgeMarkers {
		if strings.Contains(quote, marker) {
			return true
		}
	}
	return false
}

func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
