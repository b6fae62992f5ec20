package planning

import (
	"strings"

	"dayplan/gateway/internal/domain"
)

// FieldSpec is one essential detail the planner collects before generating.
// Table order is priority order: earlier fields are asked first.
type FieldSpec struct {
	Name   string
	Prompt string
}

var domainFields = map[domain.DomainTag][]FieldSpec{
	domain.DomainTravel: {
		{Name: "destination", Prompt: "Where are you headed?"},
		{Name: "dates", Prompt: "When is the trip?"},
		{Name: "duration", Prompt: "How long will you be away?"},
		{Name: "budget", Prompt: "What's your budget?"},
		{Name: "travelers", Prompt: "Who's coming along?"},
	},
	domain.DomainFitness: {
		{Name: "goal", Prompt: "What are you working toward?"},
		{Name: "timeframe", Prompt: "By when do you want to get there?"},
		{Name: "current_level", Prompt: "Where are you starting from?"},
		{Name: "schedule", Prompt: "How many days a week can you train?"},
	},
	domain.DomainEvents: {
		{Name: "occasion", Prompt: "What's the occasion?"},
		{Name: "date", Prompt: "When is it happening?"},
		{Name: "guests", Prompt: "How many people are you expecting?"},
		{Name: "budget", Prompt: "What's your budget?"},
		{Name: "venue", Prompt: "Do you have a venue in mind?"},
	},
	domain.DomainLearning: {
		{Name: "subject", Prompt: "What do you want to learn?"},
		{Name: "goal", Prompt: "What would success look like?"},
		{Name: "timeframe", Prompt: "How much time do you have?"},
		{Name: "experience", Prompt: "How familiar are you with it already?"},
	},
	domain.DomainSocial: {
		{Name: "occasion", Prompt: "What's the get-together for?"},
		{Name: "people", Prompt: "Who's involved?"},
		{Name: "date", Prompt: "When works for everyone?"},
		{Name: "budget", Prompt: "What's your budget?"},
	},
	domain.DomainEntertainment: {
		{Name: "interest", Prompt: "What are you in the mood for?"},
		{Name: "date", Prompt: "When do you want to go?"},
		{Name: "budget", Prompt: "What's your budget?"},
	},
	domain.DomainWork: {
		{Name: "objective", Prompt: "What's the goal?"},
		{Name: "deadline", Prompt: "When does it need to be done?"},
		{Name: "collaborators", Prompt: "Who else is involved?"},
	},
	domain.DomainShopping: {
		{Name: "items", Prompt: "What are you shopping for?"},
		{Name: "budget", Prompt: "What's your budget?"},
		{Name: "deadline", Prompt: "When do you need it by?"},
	},
	domain.DomainDining: {
		{Name: "cuisine", Prompt: "What kind of food are you after?"},
		{Name: "date", Prompt: "When are you going?"},
		{Name: "people", Prompt: "How many people?"},
		{Name: "budget", Prompt: "What's your budget?"},
	},
	domain.DomainGeneric: {
		{Name: "what", Prompt: "What are you planning?"},
		{Name: "when", Prompt: "When should it happen?"},
		{Name: "where", Prompt: "Where will it take place?"},
	},
}

var domainKeywords = map[domain.DomainTag][]string{
	domain.DomainTravel:        {"trip", "travel", "flight", "vacation", "itinerary", "visit", "hotel"},
	domain.DomainFitness:       {"workout", "gym", "run", "training", "fitness", "marathon", "exercise"},
	domain.DomainEvents:        {"party", "wedding", "birthday", "event", "celebration", "anniversary"},
	domain.DomainLearning:      {"learn", "study", "course", "class", "practice", "exam"},
	domain.DomainSocial:        {"hang out", "hangout", "meet up", "meetup", "friends", "reunion"},
	domain.DomainEntertainment: {"movie", "concert", "show", "game night", "festival", "theater"},
	domain.DomainWork:          {"project", "deadline", "presentation", "meeting", "launch", "sprint"},
	domain.DomainShopping:      {"buy", "shopping", "purchase", "gift", "order"},
	domain.DomainDining:        {"dinner", "lunch", "restaurant", "brunch", "meal", "cook"},
}

func FieldsFor(tag domain.DomainTag) []FieldSpec {
	if fields, ok := domainFields[tag]; ok {
		return fields
	}
	return domainFields[domain.DomainGeneric]
}

// MissingFields returns the fields of the domain table not yet stated,
// preserving table order.
func MissingFields(tag domain.DomainTag, stated map[string]string) []FieldSpec {
	fields := FieldsFor(tag)
	out := make([]FieldSpec, 0, len(fields))
	for _, field := range fields {
		if strings.TrimSpace(stated[field.Name]) != "" {
			continue
		}
		out = append(out, field)
	}
	return out
}

func keywordDomain(text string) (domain.DomainTag, bool) {
	lowered := strings.ToLower(text)
	for _, tag := range domain.AllDomains() {
		for _, keyword := range domainKeywords[tag] {
			if strings.Contains(lowered, keyword) {
				return tag, true
			}
		}
	}
	return domain.DomainGeneric, false
}
