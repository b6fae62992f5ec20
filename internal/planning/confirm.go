package planning

import "strings"

type Verdict string

const (
	VerdictAffirm Verdict = "affirm"
	VerdictReject Verdict = "reject"
	VerdictRefine Verdict = "refine"
)

// refineMarkers override an embedded affirmation: "yes but make it cheaper"
// is a refinement, not consent.
var refineMarkers = []string{
	"but", "change", "instead", "except", "swap", "replace", "remove",
	"increase", "decrease", "cheaper", "shorter", "longer", "actually",
	"what if", "can you", "could you", "make it",
}

var affirmPhrases = []string{
	"sounds good", "looks good", "let's do it", "lets do it",
	"love it", "do it", "go ahead", "works for me", "i'm in", "im in",
}

var affirmWords = []string{
	"yes", "yep", "yeah", "yup", "sure", "ok", "okay",
	"perfect", "great", "confirm", "confirmed", "approved",
}

var rejectPhrases = []string{
	"start over", "forget it", "not what i", "scrap it", "never mind", "nevermind",
}

var rejectWords = []string{
	"no", "nope", "nah", "cancel", "reject", "stop",
}

// DetectConfirmation maps a free-text answer to a pending plan onto a closed
// verdict. Anything ambiguous is treated as a refinement so the user's words
// feed back into collection rather than being discarded.
func DetectConfirmation(text string) Verdict {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return VerdictRefine
	}
	for _, marker := range refineMarkers {
		if containsToken(normalized, marker) {
			return VerdictRefine
		}
	}
	for _, phrase := range rejectPhrases {
		if strings.Contains(normalized, phrase) {
			return VerdictReject
		}
	}
	for _, phrase := range affirmPhrases {
		if strings.Contains(normalized, phrase) {
			return VerdictAffirm
		}
	}
	words := tokenize(normalized)
	for _, word := range words {
		for _, affirm := range affirmWords {
			if word == affirm {
				return VerdictAffirm
			}
		}
		for _, reject := range rejectWords {
			if word == reject {
				return VerdictReject
			}
		}
	}
	return VerdictRefine
}

func containsToken(normalized, marker string) bool {
	if strings.Contains(marker, " ") {
		return strings.Contains(normalized, marker)
	}
	for _, word := range tokenize(normalized) {
		if word == marker {
			return true
		}
	}
	return false
}

func tokenize(normalized string) []string {
	return strings.FieldsFunc(normalized, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
}
