package core

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"medintake/internal/llm"
	"medintake/internal/store"
)

// shortAnswerLimit is the length at or below which answers skip the
// multi-part and oracle checks.
const shortAnswerLimit = 10

// Outcome is the validator's verdict on one answer.
type Outcome struct {
	IsValid bool
	// Feedback is shown to the user when the answer was rejected.
	Feedback string
	// ProcessedResponse is the answer, possibly cleaned up by the oracle.
	ProcessedResponse string
	Details           *store.ValidationDetails
}

// Validator screens free-text answers before they are trusted as facts. It
// applies a cascade of increasingly expensive checks and returns at the
// first conclusive signal; when the oracle fails or returns garbage it
// degrades to "valid" so validation never stalls the conversation.
type Validator struct {
	oracle llm.Client
	log    *logrus.Logger
}

func NewValidator(oracle llm.Client, log *logrus.Logger) *Validator {
	return &Validator{oracle: oracle, log: log}
}

func (v *Validator) Validate(ctx context.Context, question, answer string, category Category) Outcome {
	// Continuation token always passes unchanged.
	if answer == TokenContinue {
		return Outcome{IsValid: true, ProcessedResponse: answer}
	}

	lower := strings.ToLower(answer)

	// A bare "yes" to the consultation question is never a complete answer,
	// no matter how the rest of the cascade would score it.
	if category == CategoryPreviousHistory && lower == "yes" {
		return Outcome{
			IsValid:           false,
			Feedback:          BareYesFeedback,
			ProcessedResponse: answer,
			Details: &store.ValidationDetails{
				HasConsultedDoctor: true,
				PartialAnswer:      true,
			},
		}
	}

	if len(strings.TrimSpace(answer)) <= shortAnswerLimit {
		return v.validateShort(answer, lower, category)
	}

	if complete, missing := checkMultiPart(question, answer, category); !complete {
		invalid := false
		return Outcome{
			IsValid:           false,
			Feedback:          MultiPartFeedback(missing),
			ProcessedResponse: answer,
			Details: &store.ValidationDetails{
				IsValid:       &invalid,
				Reason:        "Incomplete answer to multi-part question. Missing: " + missing,
				PartialAnswer: true,
			},
		}
	}

	return v.validateWithOracle(ctx, question, answer, category)
}

// validateShort handles answers short enough to skip the expensive checks.
func (v *Validator) validateShort(answer, lower string, category Category) Outcome {
	switch category {
	case CategorySymptoms:
		if lower == "hi" || lower == "hello" {
			invalid := false
			return Outcome{
				IsValid:           false,
				Feedback:          GreetingInsteadOfSymptomsFeedback,
				ProcessedResponse: answer,
				Details: &store.ValidationDetails{
					IsValid: &invalid,
					Reason:  "Greeting instead of symptoms",
				},
			}
		}
	case CategoryPreviousHistory:
		// Best-effort local extraction: "yes" anywhere implies a prior
		// consultation; without a "no" the text itself is the diagnosis.
		valid := true
		diagnosis := answer
		if strings.Contains(lower, "no") {
			diagnosis = ""
		}
		return Outcome{
			IsValid:           true,
			ProcessedResponse: answer,
			Details: &store.ValidationDetails{
				IsValid:            &valid,
				HasConsultedDoctor: strings.Contains(lower, "yes"),
				ExtractedDiagnosis: diagnosis,
			},
		}
	}
	return Outcome{IsValid: true, ProcessedResponse: answer}
}

// validateWithOracle asks the oracle to judge relevance, instructing it to
// answer with a JSON object in the category's shape.
func (v *Validator) validateWithOracle(ctx context.Context, question, answer string, category Category) Outcome {
	var prompt string
	switch category {
	case CategoryPreviousHistory:
		prompt = validatePreviousHistoryPrompt(question, answer)
	case CategorySymptoms:
		prompt = validateSymptomsPrompt(question, answer)
	case CategoryMedicationHistory:
		prompt = validateMedicationPrompt(question, answer)
	case CategoryAdditionalSymptoms:
		prompt = validateAdditionalSymptomsPrompt(question, answer)
	default:
		prompt = validateGeneralPrompt(question, answer)
	}

	raw, err := v.oracle.Invoke(ctx, prompt)
	if err != nil {
		// Liveness over strictness: an unreachable oracle must never block
		// the conversation.
		v.log.WithError(err).Warn("validation oracle call failed, accepting answer")
		return Outcome{IsValid: true, ProcessedResponse: answer}
	}

	details, ok := parseDetails(raw)
	if !ok {
		v.log.WithField("category", category).Debug("no parsable JSON in oracle validation reply, accepting answer")
		return Outcome{IsValid: true, ProcessedResponse: answer}
	}

	processed := answer
	if details.ProcessedResponse != "" {
		processed = details.ProcessedResponse
	}
	if !details.Valid() {
		return Outcome{
			IsValid:           false,
			Feedback:          InvalidAnswerFeedback(category, details.Reason),
			ProcessedResponse: processed,
			Details:           details,
		}
	}
	return Outcome{IsValid: true, ProcessedResponse: processed, Details: details}
}

// parseDetails extracts the first brace-delimited object from the oracle's
// free text and decodes it. Anything that does not decode cleanly is
// reported as unparsable rather than guessed at.
func parseDetails(raw string) (*store.ValidationDetails, bool) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	var details store.ValidationDetails
	if err := json.Unmarshal([]byte(raw[start:end+1]), &details); err != nil {
		return nil, false
	}
	return &details, true
}
