package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAppendsSymptomsWithoutDeduplication(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeySymptoms, Value: "headache"}))
	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeySymptoms, Value: "headache"}))

	rec, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"headache", "headache"}, rec.Symptoms)
	assert.Len(t, rec.TurnLog, 2)
}

func TestAdditionalSymptomsNegationNotAppended(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, v := range []string{"no", "none", "not really", "that's all", "No"} {
		require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeyAdditionalSymptoms, Value: v}))
	}
	rec, _, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rec.Symptoms)
	assert.Equal(t, "No", rec.AdditionalSymptoms)

	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeyAdditionalSymptoms, Value: "blurry vision"}))
	rec, _, err = s.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"blurry vision"}, rec.Symptoms)
	assert.Equal(t, "blurry vision", rec.AdditionalSymptoms)
}

func TestCriticalFlagParsing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeyCritical, Value: "yes"}))
	rec, _, _ := s.Get(ctx, "u1")
	assert.True(t, rec.Critical)

	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeyCritical, Value: "no"}))
	rec, _, _ = s.Get(ctx, "u1")
	assert.False(t, rec.Critical)
}

func TestSetPositionUpdatesCursorAndLogsMove(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SetPosition(ctx, "u1", StepPreviousHistory, "Have you consulted a doctor?"))

	rec, ok, err := s.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StepPreviousHistory, rec.CurrentStep)
	assert.Equal(t, "Have you consulted a doctor?", rec.CurrentQuestion)

	// The move itself is audited in the turn log.
	require.Len(t, rec.TurnLog, 2)
	assert.Equal(t, "current_question", rec.TurnLog[0].Key)
	assert.Equal(t, "current_step", rec.TurnLog[1].Key)
	assert.Equal(t, string(StepPreviousHistory), rec.TurnLog[1].Value)
}

func TestEnsureReportsCreation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	created, err := s.Ensure(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Ensure(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestGetMissingUserReturnsZeroRecord(t *testing.T) {
	s := NewMemoryStore()
	rec, ok, err := s.Get(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "ghost", rec.UserID)
	assert.Empty(t, rec.TurnLog)
}

func TestLastDetailsAndLastAnswer(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeySymptoms, Value: "fever"}))
	require.NoError(t, s.Record(ctx, "u1", Fact{
		Key:   KeyValidation,
		Value: "valid",
		Details: &ValidationDetails{
			Medications: []string{"paracetamol"},
		},
	}))
	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeyMedicationHistory, Value: "took paracetamol"}))

	rec, _, err := s.Get(ctx, "u1")
	require.NoError(t, err)

	details := rec.LastDetails()
	require.NotNil(t, details)
	assert.Equal(t, []string{"paracetamol"}, details.Medications)

	assert.Equal(t, "took paracetamol", rec.LastAnswer())
}

func TestGetReturnsIndependentSnapshot(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeySymptoms, Value: "fever"}))

	rec, _, _ := s.Get(ctx, "u1")
	rec.Symptoms[0] = "mutated"

	again, _, _ := s.Get(ctx, "u1")
	assert.Equal(t, "fever", again.Symptoms[0])
}

func TestAllSnapshotsEveryRecord(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Record(ctx, "u1", Fact{Key: KeySymptoms, Value: "fever"}))
	require.NoError(t, s.Record(ctx, "u2", Fact{Key: KeySymptoms, Value: "cough"}))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, []string{"fever"}, all["u1"].Symptoms)
	assert.Equal(t, []string{"cough"}, all["u2"].Symptoms)
}
