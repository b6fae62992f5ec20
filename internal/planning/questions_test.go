package planning

import (
	"testing"

	"dayplan/gateway/internal/domain"
)

func TestPlanQuestionsBatchesAtMostThree(t *testing.T) {
	t.Parallel()
	session := &domain.PlanningSession{Mode: domain.ModeSmart, Stated: map[string]string{}}
	missing := FieldsFor(domain.DomainTravel)
	batch := PlanQuestions(session, missing)
	if batch.Ready {
		t.Fatalf("expected more questions, got ready")
	}
	if len(batch.Fields) != 3 {
		t.Fatalf("expected batch of 3, got=%d", len(batch.Fields))
	}
	if batch.Fields[0].Name != "destination" || batch.Fields[1].Name != "dates" {
		t.Fatalf("expected table priority order, got=%+v", batch.Fields)
	}
	if len(batch.NewFields) != 3 {
		t.Fatalf("expected 3 new fields, got=%v", batch.NewFields)
	}
}

func TestPlanQuestionsReadyWhenNothingMissing(t *testing.T) {
	t.Parallel()
	session := &domain.PlanningSession{Mode: domain.ModeQuick, QuestionCount: 0}
	batch := PlanQuestions(session, nil)
	if !batch.Ready {
		t.Fatalf("expected ready with no missing fields")
	}
}

func TestPlanQuestionsBudgetBoundaryIsInclusive(t *testing.T) {
	t.Parallel()
	missing := FieldsFor(domain.DomainTravel)

	quick := &domain.PlanningSession{Mode: domain.ModeQuick, QuestionCount: 2}
	if batch := PlanQuestions(quick, missing); batch.Ready {
		t.Fatalf("question count 2 of 3 must keep collecting")
	}
	quick.QuestionCount = 3
	if batch := PlanQuestions(quick, missing); !batch.Ready {
		t.Fatalf("question count 3 of 3 must be ready even with missing fields")
	}

	smart := &domain.PlanningSession{Mode: domain.ModeSmart, QuestionCount: 4}
	if batch := PlanQuestions(smart, missing); batch.Ready {
		t.Fatalf("question count 4 of 5 must keep collecting")
	}
	smart.QuestionCount = 5
	if batch := PlanQuestions(smart, missing); !batch.Ready {
		t.Fatalf("question count 5 of 5 must be ready")
	}
}

func TestPlanQuestionsSkipsAlreadyAskedFields(t *testing.T) {
	t.Parallel()
	session := &domain.PlanningSession{
		Mode:        domain.ModeSmart,
		AskedFields: []string{"destination", "dates"},
	}
	missing := FieldsFor(domain.DomainTravel)
	batch := PlanQuestions(session, missing)
	if batch.Ready {
		t.Fatalf("expected a question batch")
	}
	if len(batch.Fields) != 3 {
		t.Fatalf("expected 3 unasked fields, got=%d", len(batch.Fields))
	}
	if batch.Fields[0].Name != "duration" || batch.Fields[1].Name != "budget" || batch.Fields[2].Name != "travelers" {
		t.Fatalf("expected unasked fields in priority order, got=%+v", batch.Fields)
	}
	if len(batch.NewFields) != 3 {
		t.Fatalf("expected 3 new fields, got=%v", batch.NewFields)
	}
}

func TestPlanQuestionsClampsBatchToRemainingBudget(t *testing.T) {
	t.Parallel()
	session := &domain.PlanningSession{
		Mode:          domain.ModeSmart,
		QuestionCount: 4,
		AskedFields:   []string{"destination"},
	}
	missing := FieldsFor(domain.DomainTravel)
	batch := PlanQuestions(session, missing)
	if batch.Ready {
		t.Fatalf("one question left in the budget must keep collecting")
	}
	if len(batch.Fields) != 1 {
		t.Fatalf("expected batch clamped to remaining budget of 1, got=%d", len(batch.Fields))
	}
	if batch.Fields[0].Name != "dates" {
		t.Fatalf("expected next unasked field in priority order, got=%+v", batch.Fields)
	}
}

func TestPlanQuestionsReadyWhenAllMissingWereAsked(t *testing.T) {
	t.Parallel()
	session := &domain.PlanningSession{
		Mode:          domain.ModeSmart,
		QuestionCount: 3,
		AskedFields:   []string{"what", "when", "where"},
	}
	missing := FieldsFor(domain.DomainGeneric)
	if batch := PlanQuestions(session, missing); !batch.Ready {
		t.Fatalf("nothing left to ask must mean ready, got=%+v", batch)
	}
}

func TestProgressClampsToBudget(t *testing.T) {
	t.Parallel()
	session := &domain.PlanningSession{Mode: domain.ModeQuick, QuestionCount: 7}
	progress := Progress(session)
	if progress.Current != 3 || progress.Total != 3 {
		t.Fatalf("expected 3/3, got=%d/%d", progress.Current, progress.Total)
	}
	if progress.Mode != domain.ModeQuick {
		t.Fatalf("unexpected mode: %q", progress.Mode)
	}
}
