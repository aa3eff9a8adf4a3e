package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Step names a position in the fixed interview sequence.
type Step string

const (
	StepStart              Step = "start"
	StepSymptoms           Step = "symptoms"
	StepPreviousHistory    Step = "previous_history"
	StepMedicationHistory  Step = "medication_history"
	StepAdditionalSymptoms Step = "additional_symptoms"
	StepDiagnosisPrep      Step = "diagnosis_prep"
	StepDiagnosis          Step = "diagnosis"
	StepCriticality        Step = "criticality"
	StepEnd                Step = "end"
)

// Known reports whether s is one of the defined step names.
func (s Step) Known() bool {
	switch s {
	case StepStart, StepSymptoms, StepPreviousHistory, StepMedicationHistory,
		StepAdditionalSymptoms, StepDiagnosisPrep, StepDiagnosis, StepCriticality, StepEnd:
		return true
	}
	return false
}

// Fact keys recognised by UserRecord.apply. Any other key is logged
// verbatim without touching the top-level fields.
const (
	KeySymptoms           = "symptoms"
	KeyPreviousHistory    = "previous_history"
	KeyMedicationHistory  = "medication_history"
	KeyAdditionalSymptoms = "additional_symptoms"
	KeyDiagnosis          = "diagnosis"
	KeyCritical           = "critical"
	KeyValidation         = "validation"
	KeyConversationNote   = "conversation_note"
	KeyIntermediate       = "intermediate_message"
)

// ValidationDetails is the structured extraction produced by the response
// validator for one turn. Its JSON shape doubles as the contract the oracle
// is instructed to return, so the zero value of every field means "absent".
type ValidationDetails struct {
	IsValid               *bool    `json:"is_valid,omitempty"`
	Reason                string   `json:"reason,omitempty"`
	HasConsultedDoctor    bool     `json:"has_consulted_doctor,omitempty"`
	ExtractedDiagnosis    string   `json:"extracted_diagnosis,omitempty"`
	ExtractedSymptoms     []string `json:"extracted_symptoms,omitempty"`
	Medications           []string `json:"medications,omitempty"`
	SideEffects           []string `json:"side_effects,omitempty"`
	HasAdditionalSymptoms bool     `json:"has_additional_symptoms,omitempty"`
	AdditionalSymptoms    []string `json:"additional_symptoms,omitempty"`
	ProcessedResponse     string   `json:"processed_response,omitempty"`
	PartialAnswer         bool     `json:"partial_answer,omitempty"`
}

// Valid treats a missing is_valid field as valid, so an oracle that omits
// the flag never blocks the conversation.
func (d *ValidationDetails) Valid() bool {
	return d == nil || d.IsValid == nil || *d.IsValid
}

// Fact is one piece of information learned during a turn.
type Fact struct {
	Key     string
	Value   string
	Details *ValidationDetails
}

// TurnEntry is one record in a user's append-only turn log.
type TurnEntry struct {
	ID        string             `json:"id"`
	Key       string             `json:"key"`
	Value     string             `json:"value"`
	Details   *ValidationDetails `json:"validation_details,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// UserRecord holds everything learned about one user. Symptoms is
// append-only and deliberately not deduplicated; the scalar fields are
// last-write-wins. The turn log is never trimmed and keeps the full audit
// trail alongside the explicit CurrentStep/CurrentQuestion cursor.
type UserRecord struct {
	UserID             string      `json:"user_id"`
	Symptoms           []string    `json:"symptoms"`
	PreviousHistory    string      `json:"previous_history"`
	MedicationHistory  string      `json:"medication_history"`
	AdditionalSymptoms string      `json:"additional_symptoms"`
	Diagnosis          string      `json:"diagnosis"`
	Critical           bool        `json:"critical"`
	CurrentStep        Step        `json:"current_step"`
	CurrentQuestion    string      `json:"current_question"`
	TurnLog            []TurnEntry `json:"turn_log"`
}

// negations are answers to the additional-symptoms question that mean
// "nothing more" and must not be appended to the symptom list.
var negations = map[string]struct{}{
	"no":         {},
	"none":       {},
	"not really": {},
	"that's all": {},
}

// IsNegation reports whether v is a recognised "no more symptoms" phrase.
func IsNegation(v string) bool {
	_, ok := negations[strings.ToLower(v)]
	return ok
}

// apply appends a turn entry for f and updates the matching top-level field.
func (u *UserRecord) apply(f Fact) {
	u.TurnLog = append(u.TurnLog, TurnEntry{
		ID:        uuid.NewString(),
		Key:       f.Key,
		Value:     f.Value,
		Details:   f.Details,
		CreatedAt: time.Now().UTC(),
	})
	switch f.Key {
	case KeySymptoms:
		u.Symptoms = append(u.Symptoms, f.Value)
	case KeyPreviousHistory:
		u.PreviousHistory = f.Value
	case KeyMedicationHistory:
		u.MedicationHistory = f.Value
	case KeyAdditionalSymptoms:
		u.AdditionalSymptoms = f.Value
		if !IsNegation(f.Value) {
			u.Symptoms = append(u.Symptoms, f.Value)
		}
	case KeyDiagnosis:
		u.Diagnosis = f.Value
	case KeyCritical:
		u.Critical = strings.EqualFold(f.Value, "yes")
	}
}

// LastDetails returns the validation details of the most recent turn that
// carried any, or nil.
func (u *UserRecord) LastDetails() *ValidationDetails {
	for i := len(u.TurnLog) - 1; i >= 0; i-- {
		if u.TurnLog[i].Details != nil {
			return u.TurnLog[i].Details
		}
	}
	return nil
}

// LastAnswer returns the raw value of the most recent answer-bearing turn,
// used when a caller asks to proceed with the previously given answer.
func (u *UserRecord) LastAnswer() string {
	for i := len(u.TurnLog) - 1; i >= 0; i-- {
		switch k := u.TurnLog[i].Key; {
		case k == KeySymptoms, k == KeyPreviousHistory, k == KeyMedicationHistory,
			k == KeyAdditionalSymptoms, strings.HasPrefix(k, "partial_"):
			return u.TurnLog[i].Value
		}
	}
	return ""
}

// clone returns a deep copy safe to hand out from the store.
func (u *UserRecord) clone() UserRecord {
	out := *u
	out.Symptoms = append([]string(nil), u.Symptoms...)
	out.TurnLog = append([]TurnEntry(nil), u.TurnLog...)
	return out
}
