package planning

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"dayplan/gateway/internal/domain"
)

type Generator struct {
	Completer Completer
}

// Generate builds the pending plan from what the user stated. The prompt is
// restricted to stated fields and extracted source content; the reply is
// repaired, parsed, and then scrubbed of any amount that cannot be traced
// back to the user's own words.
func (g *Generator) Generate(ctx context.Context, session *domain.PlanningSession) (*domain.Plan, error) {
	if g == nil || g.Completer == nil {
		return nil, fmt.Errorf("%w: no completer configured", ErrGenerationFailed)
	}
	reply, err := g.Completer.Complete(ctx, generationPrompt(session), []domain.Turn{
		{Speaker: domain.SpeakerUser, Text: generationInput(session)},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	plan := parsePlan(reply)
	if plan == nil {
		return nil, fmt.Errorf("%w: reply is not a plan", ErrGenerationFailed)
	}
	sanitizePlan(plan, session)
	if len(plan.Tasks) == 0 {
		return nil, fmt.Errorf("%w: plan has no tasks", ErrGenerationFailed)
	}
	return plan, nil
}

func generationPrompt(session *domain.PlanningSession) string {
	prompt := `Write a day-by-day plan as JSON with this shape:
{"title": "...", "tasks": [{"title": "...", "cost": 0, "cost_notes": "..."}],
 "budget": {"lines": [{"label": "...", "amount": 0}], "buffer": 0}}
Use only the details provided. Omit cost and cost_notes when the user gave no amounts.`
	if !budgetStated(session) {
		prompt += "\nThe user stated no budget: omit the budget section entirely."
	}
	return prompt
}

// generationInput flattens the stated fields and source content; the raw
// transcript never reaches the generator.
func generationInput(session *domain.PlanningSession) string {
	var b strings.Builder
	b.WriteString("Planning domain: ")
	b.WriteString(string(session.Domain))
	b.WriteString("\n")

	names := make([]string, 0, len(session.Stated))
	for name := range session.Stated {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(session.Stated[name])
		b.WriteString("\n")
	}
	if source := strings.TrimSpace(session.SourceContent); source != "" {
		b.WriteString("Reference material:\n")
		b.WriteString(source)
		b.WriteString("\n")
	}
	return b.String()
}

func parsePlan(reply string) *domain.Plan {
	raw := stripCodeFence(reply)
	var plan domain.Plan
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(repaired), &plan); err != nil {
			return nil
		}
	}
	return &plan
}

// sanitizePlan silently corrects hallucinations: the budget section survives
// only when the user stated a budget, and every amount must appear in the
// user's own text or the source content.
func sanitizePlan(plan *domain.Plan, session *domain.PlanningSession) {
	if plan == nil {
		return
	}
	if strings.TrimSpace(plan.Title) == "" {
		plan.Title = "Your plan"
	}
	groundTruth := statedText(session)

	tasks := make([]domain.PlanTask, 0, len(plan.Tasks))
	for _, task := range plan.Tasks {
		task.Title = strings.TrimSpace(task.Title)
		if task.Title == "" {
			continue
		}
		if task.Cost != nil && !amountTraceable(*task.Cost, groundTruth) {
			task.Cost = nil
			task.CostNotes = ""
		}
		tasks = append(tasks, task)
	}
	plan.Tasks = tasks

	if !budgetStated(session) {
		plan.Budget = nil
		return
	}
	if plan.Budget == nil {
		return
	}
	lines := make([]domain.BudgetLine, 0, len(plan.Budget.Lines))
	for _, line := range plan.Budget.Lines {
		line.Label = strings.TrimSpace(line.Label)
		if line.Label == "" {
			continue
		}
		if !amountTraceable(line.Amount, groundTruth) {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		plan.Budget = nil
		return
	}
	plan.Budget.Lines = lines
	if !amountTraceable(plan.Budget.Buffer, groundTruth) {
		plan.Budget.Buffer = 0
	}
}

func budgetStated(session *domain.PlanningSession) bool {
	for name, value := range session.Stated {
		if strings.Contains(strings.ToLower(name), "budget") && strings.TrimSpace(value) != "" {
			return true
		}
	}
	return false
}

// amountTraceable accepts an amount only when its digits appear in the text
// the user supplied. Derived sums the model invented do not pass.
func amountTraceable(amount float64, groundTruth string) bool {
	if amount == 0 {
		return true
	}
	candidates := []string{
		strconv.FormatFloat(amount, 'f', -1, 64),
		strconv.FormatFloat(amount, 'f', 2, 64),
	}
	if amount == float64(int64(amount)) {
		candidates = append(candidates, strconv.FormatInt(int64(amount), 10))
	}
	for _, candidate := range candidates {
		if strings.Contains(groundTruth, candidate) {
			return true
		}
	}
	return false
}
