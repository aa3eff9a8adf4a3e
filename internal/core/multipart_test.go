package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckMultiPart(t *testing.T) {
	tests := []struct {
		name     string
		question string
		answer   string
		category Category
		complete bool
		missing  string
	}{
		{
			name:     "no trigger means nothing owed",
			question: MedicationQuestion,
			answer:   "nothing so far",
			category: CategoryMedicationHistory,
			complete: true,
		},
		{
			name:     "trigger without follow-up is incomplete",
			question: MedicationQuestion,
			answer:   "yes, I took something for it",
			category: CategoryMedicationHistory,
			complete: false,
			missing:  "what medications",
		},
		{
			name:     "trigger with named medication is complete",
			question: MedicationQuestion,
			answer:   "yes, I took paracetamol twice a day",
			category: CategoryMedicationHistory,
			complete: true,
		},
		{
			name:     "consultation affirmed without diagnosis is incomplete",
			question: PreviousHistoryQuestion,
			answer:   "yes I have been to a doctor",
			category: CategoryPreviousHistory,
			complete: false,
			missing:  "what was their diagnosis",
		},
		{
			name:     "consultation with diagnosis is complete",
			question: PreviousHistoryQuestion,
			answer:   "yes, the doctor said it was the flu",
			category: CategoryPreviousHistory,
			complete: true,
		},
		{
			name:     "missing clause inferred from question text",
			question: DoctorDiagnosisQuestion,
			answer:   "yes I have seen one",
			category: CategoryPreviousHistory,
			complete: false,
			missing:  "Have you consulted a doctor",
		},
		{
			name:     "category without a pattern is always complete",
			question: "How are you feeling?",
			answer:   "yes",
			category: CategoryGeneral,
			complete: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			complete, missing := checkMultiPart(tt.question, tt.answer, tt.category)
			assert.Equal(t, tt.complete, complete)
			assert.Equal(t, tt.missing, missing)
		})
	}
}
