package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medintake/internal/llm"
	"medintake/internal/store"
)

// scriptedOracle returns a mock keyed on the distinctive phrase of each
// prompt the flow can issue.
func scriptedOracle() *llm.MockClient {
	return &llm.MockClient{
		Rules: []llm.MockRule{
			{Contains: "addresses medical history", Reply: `{"is_valid": true, "has_consulted_doctor": true, "extracted_diagnosis": "flu"}`},
			{Contains: "addresses medication history", Reply: `{"is_valid": true, "medications": ["paracetamol"]}`},
			{Contains: "suggest 2-3 similar", Reply: "Common cold, viral bronchitis"},
			{Contains: "provide a detailed diagnosis", Reply: "• Influenza\n- Fever and headache support this"},
			{Contains: "Assess the urgency/severity", Reply: "Urgency: Yes\nTimeframe: immediately\nPrecautions: rest and hydrate"},
		},
		Default: `{"is_valid": true}`,
	}
}

func TestFullConsultationWalk(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	oracle := scriptedOracle()
	flow := NewFlow(st, oracle, testLogger())

	// Opening message already names symptoms, so the greeting is skipped.
	res, err := flow.Advance(ctx, "u1", "I have a bad headache and fever")
	require.NoError(t, err)
	assert.Equal(t, PreviousHistoryQuestion, res.NextQuestion)
	assert.Equal(t, store.StepPreviousHistory, res.CurrentStep)
	assert.Zero(t, oracle.CallCount(), "the symptom shortcut must not consult the oracle")

	// A bare "yes" is only half an answer; the step must not move.
	res, err = flow.Advance(ctx, "u1", "yes")
	require.NoError(t, err)
	assert.Equal(t, BareYesFeedback, res.NextQuestion)
	assert.Equal(t, store.StepPreviousHistory, res.CurrentStep)

	// Naming the diagnosis moves on and folds in related conditions.
	res, err = flow.Advance(ctx, "u1", "doctor said: flu")
	require.NoError(t, err)
	assert.Contains(t, res.NextQuestion, "flu")
	assert.Contains(t, res.NextQuestion, "Common cold, viral bronchitis")
	assert.Contains(t, res.NextQuestion, MedicationQuestion)
	assert.Equal(t, store.StepMedicationHistory, res.CurrentStep)

	// Medications extracted by the validator are acknowledged by name.
	res, err = flow.Advance(ctx, "u1", "I took paracetamol yesterday")
	require.NoError(t, err)
	assert.Equal(t, MedicationThanksQuestion("paracetamol"), res.NextQuestion)
	assert.Equal(t, store.StepAdditionalSymptoms, res.CurrentStep)

	// Declining further symptoms yields the diagnosis in the same turn.
	res, err = flow.Advance(ctx, "u1", "no")
	require.NoError(t, err)
	assert.Contains(t, res.NextQuestion, "Influenza")
	assert.Equal(t, store.StepCriticality, res.CurrentStep)

	rec, ok, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"I have a bad headache and fever"}, rec.Symptoms,
		"the negation must not land in the symptom list")
	assert.Contains(t, rec.Diagnosis, "Influenza")

	// Any acknowledgement triggers the urgency assessment and ends the flow.
	res, err = flow.Advance(ctx, "u1", "ok")
	require.NoError(t, err)
	assert.Contains(t, res.NextQuestion, "Urgency: Yes")
	assert.Contains(t, res.NextQuestion, "DISCLAIMER")
	assert.Equal(t, store.StepEnd, res.CurrentStep)

	rec, _, err = st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, rec.Critical)
	assert.Equal(t, store.StepEnd, rec.CurrentStep)
}

func TestFirstContactWithoutSymptomsGreets(t *testing.T) {
	ctx := context.Background()
	flow := NewFlow(store.NewMemoryStore(), scriptedOracle(), testLogger())

	res, err := flow.Advance(ctx, "u1", "hi there")
	require.NoError(t, err)
	assert.Equal(t, GreetingNew, res.NextQuestion)
	assert.Equal(t, store.StepSymptoms, res.CurrentStep)
}

func TestRestartAfterEndGreetsAgainOrJumpsOnSymptoms(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	flow := NewFlow(st, scriptedOracle(), testLogger())

	require.NoError(t, st.SetPosition(ctx, "u1", store.StepEnd, "bye"))

	// No symptom vocabulary: the restart notes it and asks again.
	res, err := flow.Advance(ctx, "u1", "thanks bye")
	require.NoError(t, err)
	assert.Equal(t, SymptomsRetryQuestion, res.NextQuestion)
	assert.Equal(t, store.StepSymptoms, res.CurrentStep)

	require.NoError(t, st.SetPosition(ctx, "u2", store.StepEnd, "bye"))

	// Symptom vocabulary jumps straight back into the interview.
	res, err = flow.Advance(ctx, "u2", "my stomach hurts again")
	require.NoError(t, err)
	assert.Equal(t, PreviousHistoryQuestion, res.NextQuestion)
	assert.Equal(t, store.StepPreviousHistory, res.CurrentStep)
}

func TestUnknownStepFallsBackToStart(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	flow := NewFlow(st, scriptedOracle(), testLogger())

	require.NoError(t, st.SetPosition(ctx, "u1", store.Step("weird"), "?"))

	res, err := flow.Advance(ctx, "u1", "my throat is really sore")
	require.NoError(t, err)
	assert.Equal(t, PreviousHistoryQuestion, res.NextQuestion)
	assert.Equal(t, store.StepPreviousHistory, res.CurrentStep)
}

func TestPartialAnswerIsRecordedWithoutAdvancing(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	flow := NewFlow(st, scriptedOracle(), testLogger())

	_, err := flow.Advance(ctx, "u1", "I have a headache")
	require.NoError(t, err)
	_, err = flow.Advance(ctx, "u1", "yes")
	require.NoError(t, err)

	rec, _, err := st.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, store.StepPreviousHistory, rec.CurrentStep)

	var partial *store.TurnEntry
	for i := range rec.TurnLog {
		if rec.TurnLog[i].Key == "partial_previous_history" {
			partial = &rec.TurnLog[i]
		}
	}
	require.NotNil(t, partial, "the half answer must be kept on record")
	assert.Equal(t, "yes", partial.Value)
	require.NotNil(t, partial.Details)
	assert.True(t, partial.Details.HasConsultedDoctor)
}

func TestContinueAnywayReplaysLastAnswer(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	flow := NewFlow(st, scriptedOracle(), testLogger())

	_, err := flow.Advance(ctx, "u1", "I have a headache")
	require.NoError(t, err)
	_, err = flow.Advance(ctx, "u1", "yes")
	require.NoError(t, err)

	// The replayed "yes" reaches the handler untouched by validation.
	res, err := flow.Advance(ctx, "u1", TokenContinueAnyway)
	require.NoError(t, err)
	assert.Equal(t, DoctorDiagnosisQuestion, res.NextQuestion)
	assert.Equal(t, store.StepPreviousHistory, res.CurrentStep)
}

func TestContinueForceAdvanceIsDeterministic(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	flow := NewFlow(st, scriptedOracle(), testLogger())

	seed := func(userID string) {
		_, err := flow.Advance(ctx, userID, "I have a headache and fever")
		require.NoError(t, err)
		_, err = flow.Advance(ctx, userID, "no I have not seen a doctor yet")
		require.NoError(t, err)
	}
	seed("u1")
	seed("u2")

	res1, err := flow.Advance(ctx, "u1", TokenContinue)
	require.NoError(t, err)
	res2, err := flow.Advance(ctx, "u2", TokenContinue)
	require.NoError(t, err)

	assert.Equal(t, res1, res2, "identical stored data must force-advance identically")
}

func TestContinueFromUnknownUserGreets(t *testing.T) {
	ctx := context.Background()
	flow := NewFlow(store.NewMemoryStore(), scriptedOracle(), testLogger())

	res, err := flow.Advance(ctx, "nobody", TokenContinue)
	require.NoError(t, err)
	assert.Equal(t, GreetingNew, res.NextQuestion)
	assert.Equal(t, store.StepSymptoms, res.CurrentStep)
}

func TestHandlerOracleFailureApologizesInPlace(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	oracle := &llm.MockClient{Err: errors.New("boom")}
	flow := NewFlow(st, oracle, testLogger())

	require.NoError(t, st.SetPosition(ctx, "u1", store.StepCriticality, "?"))

	res, err := flow.Advance(ctx, "u1", "ok")
	require.NoError(t, err)
	assert.Equal(t, ApologyQuestion, res.NextQuestion)
	assert.Equal(t, store.StepCriticality, res.CurrentStep)
}

func TestExtractDiagnosis(t *testing.T) {
	tests := []struct {
		answer    string
		consulted bool
		diagnosis string
	}{
		{"no, i haven't", false, ""},
		{"yes", true, ""},
		{"i was diagnosed with viral fever", true, "viral fever"},
		{"doctor said: bronchitis", true, "bronchitis"},
		{"yes, the flu", true, "flu"},
		{"viral fever", true, "viral fever"},
		{"flu", true, "flu"},
	}
	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			consulted, diagnosis := extractDiagnosis(tt.answer)
			assert.Equal(t, tt.consulted, consulted)
			assert.Equal(t, tt.diagnosis, diagnosis)
		})
	}
}

func TestCurrentStepDefaultsToStart(t *testing.T) {
	assert.Equal(t, store.StepStart, currentStep(store.UserRecord{}))
	assert.Equal(t, store.StepDiagnosis, currentStep(store.UserRecord{CurrentStep: store.StepDiagnosis}))
}
