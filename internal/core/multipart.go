package core

import "strings"

// Category is the semantic type of answer expected at a conversational
// step; it selects validation and extraction logic.
type Category string

const (
	CategorySymptoms           Category = "symptoms"
	CategoryPreviousHistory    Category = "previous_history"
	CategoryMedicationHistory  Category = "medication_history"
	CategoryAdditionalSymptoms Category = "additional_symptoms"
	CategoryGeneral            Category = "general"
)

// clausePattern describes one compound question: the two clause phrasings,
// the trigger words that affirm the first clause, and the follow-up
// vocabulary that must appear once a trigger fired.
type clausePattern struct {
	parts     [2]string
	triggers  []string
	followUps []string
}

var multiPartPatterns = map[Category]clausePattern{
	CategoryPreviousHistory: {
		parts:     [2]string{"Have you consulted a doctor", "what was their diagnosis"},
		triggers:  []string{"yes", "i have", "i did", "consulted"},
		followUps: []string{"diagnosis", "said", "told me", "found"},
	},
	CategoryMedicationHistory: {
		parts:     [2]string{"Have you taken any medications", "what medications"},
		triggers:  []string{"yes", "i have", "i did", "taking", "took"},
		followUps: []string{"medication", "drug", "pill", "medicine", "paracetamol", "ibuprofen"},
	},
}

// checkMultiPart reports whether an answer covers all clauses of a compound
// question. The missing clause is inferred from the question text: whichever
// clause phrase does not appear in the question is the one still owed. This
// assumes exactly one of the two phrasings occurs in any given question; it
// is a best-effort heuristic, not a guarantee.
func checkMultiPart(question, answer string, category Category) (complete bool, missingPart string) {
	pattern, ok := multiPartPatterns[category]
	if !ok {
		return true, ""
	}

	lower := strings.ToLower(answer)
	triggered := false
	for _, t := range pattern.triggers {
		if strings.Contains(lower, t) {
			triggered = true
			break
		}
	}
	if !triggered {
		return true, ""
	}

	for _, f := range pattern.followUps {
		if strings.Contains(lower, f) {
			return true, ""
		}
	}

	if strings.Contains(strings.ToLower(question), strings.ToLower(pattern.parts[0])) {
		return false, pattern.parts[1]
	}
	return false, pattern.parts[0]
}
