package planning

import (
	"strings"

	"dayplan/gateway/internal/domain"
)

const maxQuestionsPerBatch = 3

type QuestionBatch struct {
	Ready     bool
	Fields    []FieldSpec
	NewFields []string
}

// PlanQuestions decides whether to keep collecting or move on to generation.
// The session is ready once nothing essential is missing, the question budget
// for its mode is spent (boundary inclusive), or every missing field was
// already asked once; a question that got no usable answer is not repeated.
func PlanQuestions(session *domain.PlanningSession, missing []FieldSpec) QuestionBatch {
	minQuestions := session.Mode.MinQuestions()
	if len(missing) == 0 || session.QuestionCount >= minQuestions {
		return QuestionBatch{Ready: true}
	}

	asked := map[string]bool{}
	for _, name := range session.AskedFields {
		asked[name] = true
	}
	unasked := make([]FieldSpec, 0, len(missing))
	for _, field := range missing {
		if asked[field.Name] {
			continue
		}
		unasked = append(unasked, field)
	}
	if len(unasked) == 0 {
		return QuestionBatch{Ready: true}
	}

	// A batch never overshoots the mode budget, whatever the field table size.
	limit := maxQuestionsPerBatch
	if remaining := minQuestions - session.QuestionCount; remaining < limit {
		limit = remaining
	}
	if len(unasked) < limit {
		limit = len(unasked)
	}
	batch := unasked[:limit]
	newFields := make([]string, 0, len(batch))
	for _, field := range batch {
		newFields = append(newFields, field.Name)
	}
	return QuestionBatch{Fields: batch, NewFields: newFields}
}

func QuestionText(fields []FieldSpec) string {
	prompts := make([]string, 0, len(fields))
	for _, field := range fields {
		prompts = append(prompts, field.Prompt)
	}
	return strings.Join(prompts, " ")
}

type ProgressInfo struct {
	Current int                 `json:"current"`
	Total   int                 `json:"total"`
	Mode    domain.PlanningMode `json:"mode"`
}

func Progress(session *domain.PlanningSession) ProgressInfo {
	total := session.Mode.MinQuestions()
	current := session.QuestionCount
	if current > total {
		current = total
	}
	return ProgressInfo{Current: current, Total: total, Mode: session.Mode}
}
