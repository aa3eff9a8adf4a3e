package core

import (
	"context"
	"fmt"
	"strings"

	"medintake/internal/store"
)

// Step handlers. Each one records the validated answer, may consult the
// oracle, and returns the next question plus the step to move to.

// start greets the user or, when the answer already names symptoms, jumps
// straight to the consultation question.
func (f *Flow) start(ctx context.Context, userID, answer string, firstContact bool) (Result, error) {
	if answer == "" {
		greeting := GreetingReturning
		if firstContact {
			greeting = GreetingNew
		}
		return Result{NextQuestion: greeting, CurrentStep: store.StepSymptoms}, nil
	}

	if hasSymptomKeyword(answer) {
		if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeySymptoms, Value: answer}); err != nil {
			return Result{}, fmt.Errorf("record symptoms: %w", err)
		}
		return Result{NextQuestion: PreviousHistoryQuestion, CurrentStep: store.StepPreviousHistory}, nil
	}

	note := store.Fact{Key: store.KeyConversationNote, Value: ConversationNoteNoSymptoms}
	if err := f.store.Record(ctx, userID, note); err != nil {
		return Result{}, fmt.Errorf("record note: %w", err)
	}
	return Result{NextQuestion: SymptomsRetryQuestion, CurrentStep: store.StepSymptoms}, nil
}

// collectSymptoms stores the validated symptom description and moves on to
// the consultation question.
func (f *Flow) collectSymptoms(ctx context.Context, userID, answer string) (Result, error) {
	if answer != "" && answer != TokenContinue {
		if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeySymptoms, Value: answer}); err != nil {
			return Result{}, fmt.Errorf("record symptoms: %w", err)
		}
	}
	return Result{NextQuestion: PreviousHistoryQuestion, CurrentStep: store.StepPreviousHistory}, nil
}

// previousHistory stores the consultation answer and parses a diagnosis out
// of it locally. A named diagnosis triggers an oracle note about related
// conditions; a bare "yes" keeps the step and asks for the diagnosis.
func (f *Flow) previousHistory(ctx context.Context, userID, answer string) (Result, error) {
	if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeyPreviousHistory, Value: answer}); err != nil {
		return Result{}, fmt.Errorf("record previous history: %w", err)
	}

	lower := strings.ToLower(answer)
	if lower == "yes" {
		return Result{NextQuestion: DoctorDiagnosisQuestion, CurrentStep: store.StepPreviousHistory}, nil
	}

	consulted, diagnosis := extractDiagnosis(lower)

	switch {
	case consulted && diagnosis != "":
		rec, _, err := f.store.Get(ctx, userID)
		if err != nil {
			return Result{}, fmt.Errorf("load user: %w", err)
		}
		symptoms := strings.Join(rec.Symptoms, ", ")
		similar, err := f.oracle.Invoke(ctx, SimilarDiagnosisPrompt(symptoms, diagnosis))
		if err != nil {
			return Result{}, &oracleFailure{op: "similar diagnosis", err: err}
		}
		return Result{
			NextQuestion: SimilarDiagnosisReply(diagnosis, similar),
			CurrentStep:  store.StepMedicationHistory,
		}, nil
	case consulted:
		return Result{NextQuestion: DoctorDiagnosisQuestion, CurrentStep: store.StepPreviousHistory}, nil
	default:
		return Result{NextQuestion: MedicationQuestion, CurrentStep: store.StepMedicationHistory}, nil
	}
}

// medicationHistory stores the medication answer and acknowledges any
// medications the validator extracted for this turn.
func (f *Flow) medicationHistory(ctx context.Context, userID, answer string) (Result, error) {
	if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeyMedicationHistory, Value: answer}); err != nil {
		return Result{}, fmt.Errorf("record medication history: %w", err)
	}

	rec, _, err := f.store.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load user: %w", err)
	}

	question := AdditionalSymptomsQuestion
	if details := rec.LastDetails(); details != nil && len(details.Medications) > 0 {
		question = MedicationThanksQuestion(strings.Join(details.Medications, ", "))
	}
	return Result{NextQuestion: question, CurrentStep: store.StepAdditionalSymptoms}, nil
}

// additionalSymptoms stores the last intake answer and immediately produces
// the diagnosis in the same turn; the user never has to send another
// message to get it. Negation phrases are filtered from the symptom list by
// the store.
func (f *Flow) additionalSymptoms(ctx context.Context, userID, answer string) (Result, error) {
	if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeyAdditionalSymptoms, Value: answer}); err != nil {
		return Result{}, fmt.Errorf("record additional symptoms: %w", err)
	}

	rec, _, err := f.store.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load user: %w", err)
	}

	ack := NoAdditionalSymptomsAck
	if details := rec.LastDetails(); details != nil &&
		details.HasAdditionalSymptoms && len(details.AdditionalSymptoms) > 0 {
		ack = AdditionalSymptomsAck(strings.Join(details.AdditionalSymptoms, ", "))
	}
	if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeyIntermediate, Value: ack}); err != nil {
		return Result{}, fmt.Errorf("record intermediate message: %w", err)
	}

	return f.diagnoseFromRecord(ctx, userID, rec)
}

// generateDiagnosis produces the diagnosis from stored data alone, for the
// diagnosis_prep and diagnosis steps.
func (f *Flow) generateDiagnosis(ctx context.Context, userID string) (Result, error) {
	rec, _, err := f.store.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load user: %w", err)
	}
	return f.diagnoseFromRecord(ctx, userID, rec)
}

func (f *Flow) diagnoseFromRecord(ctx context.Context, userID string, rec store.UserRecord) (Result, error) {
	prompt := DiagnosisPrompt(
		strings.Join(rec.Symptoms, ", "),
		rec.PreviousHistory,
		rec.MedicationHistory,
		rec.AdditionalSymptoms,
	)
	diagnosis, err := f.oracle.Invoke(ctx, prompt)
	if err != nil {
		return Result{}, &oracleFailure{op: "generate diagnosis", err: err}
	}
	if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeyDiagnosis, Value: diagnosis}); err != nil {
		return Result{}, fmt.Errorf("record diagnosis: %w", err)
	}
	return Result{NextQuestion: diagnosis, CurrentStep: store.StepCriticality}, nil
}

// assessCriticality asks the oracle for an urgency assessment and derives
// the critical flag from the "urgency: yes" line of the reply.
func (f *Flow) assessCriticality(ctx context.Context, userID string) (Result, error) {
	rec, _, err := f.store.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load user: %w", err)
	}

	prompt := CriticalityPrompt(
		strings.Join(rec.Symptoms, ", "),
		rec.PreviousHistory,
		rec.MedicationHistory,
		rec.Diagnosis,
	)
	assessment, err := f.oracle.Invoke(ctx, prompt)
	if err != nil {
		return Result{}, &oracleFailure{op: "assess criticality", err: err}
	}

	critical := "no"
	if strings.Contains(strings.ToLower(assessment), "urgency: yes") {
		critical = "yes"
	}
	if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeyCritical, Value: critical}); err != nil {
		return Result{}, fmt.Errorf("record critical flag: %w", err)
	}

	return Result{NextQuestion: CriticalityReply(assessment), CurrentStep: store.StepEnd}, nil
}

// commonConditions are condition names recognized by the local diagnosis
// extraction.
var commonConditions = []string{"fever", "flu", "cold", "infection", "virus", "allergy"}

// bareConditionAnswers are whole answers treated as a diagnosis on their own.
var bareConditionAnswers = map[string]struct{}{
	"viral fever": {},
	"flu":         {},
	"cold":        {},
	"fever":       {},
	"infection":   {},
}

// extractDiagnosis parses a consultation answer for a diagnosis phrase:
// "diagnosed ... with X", "doctor said: X", or a bare mention of a common
// condition. It runs independently of the validator's own extraction; both
// results are kept.
func extractDiagnosis(lower string) (consulted bool, diagnosis string) {
	if strings.Contains(lower, "yes") || strings.Contains(lower, "diagnosed") || strings.Contains(lower, "doctor said") {
		consulted = true
		switch {
		case strings.Contains(lower, "with") && strings.Contains(lower, "diagnosed"):
			if _, after, ok := strings.Cut(lower, "with"); ok {
				diagnosis = strings.TrimSpace(after)
			}
		case strings.Contains(lower, ":"):
			if _, after, ok := strings.Cut(lower, ":"); ok {
				diagnosis = strings.TrimSpace(after)
			}
		default:
			for _, condition := range commonConditions {
				if strings.Contains(lower, condition) {
					diagnosis = condition
					break
				}
			}
		}
	}

	if _, ok := bareConditionAnswers[lower]; ok {
		consulted = true
		diagnosis = lower
	}
	return consulted, diagnosis
}
