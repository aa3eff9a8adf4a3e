package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"medintake/internal/llm"
	"medintake/internal/store"
)

// Sentinel answers that bypass validation.
const (
	// TokenContinue force-advances the flow using already-stored data.
	TokenContinue = "continue"
	// TokenContinueAnyway re-uses the previous raw answer and skips
	// validation.
	TokenContinueAnyway = "continue_anyway"
)

// Result is one turn's outcome: the question to ask next and the step the
// conversation is now on.
type Result struct {
	NextQuestion string
	CurrentStep  store.Step
}

// oracleFailure marks an error from an oracle call inside a step handler.
// The flow converts it into an in-conversation apology instead of failing
// the request.
type oracleFailure struct {
	op  string
	err error
}

func (e *oracleFailure) Error() string { return e.op + ": " + e.err.Error() }
func (e *oracleFailure) Unwrap() error { return e.err }

// Flow is the step state machine. It resolves the user's position, screens
// the answer through the validator, dispatches to the step handler, and
// persists the new position. Turns for the same user are serialized by a
// per-user mutex; turns for different users are independent.
type Flow struct {
	store     store.Store
	oracle    llm.Client
	validator *Validator
	log       *logrus.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewFlow(st store.Store, oracle llm.Client, log *logrus.Logger) *Flow {
	return &Flow{
		store:     st,
		oracle:    oracle,
		validator: NewValidator(oracle, log),
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

// stepCategories maps each step to the answer category expected there.
var stepCategories = map[store.Step]Category{
	store.StepStart:              CategorySymptoms,
	store.StepSymptoms:           CategorySymptoms,
	store.StepPreviousHistory:    CategoryPreviousHistory,
	store.StepMedicationHistory:  CategoryMedicationHistory,
	store.StepAdditionalSymptoms: CategoryAdditionalSymptoms,
	store.StepDiagnosisPrep:      CategoryGeneral,
	store.StepDiagnosis:          CategoryGeneral,
	store.StepCriticality:        CategoryGeneral,
	store.StepEnd:                CategoryGeneral,
}

func categoryForStep(s store.Step) Category {
	if c, ok := stepCategories[s]; ok {
		return c
	}
	return CategoryGeneral
}

// Advance processes one inbound turn for userID and returns the next
// question plus the step the conversation is now on. Invalid answers are
// rejected without advancing state.
func (f *Flow) Advance(ctx context.Context, userID, answer string) (Result, error) {
	unlock := f.lockUser(userID)
	defer unlock()

	rec, exists, err := f.store.Get(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("load user %s: %w", userID, err)
	}

	if answer == TokenContinue && exists {
		return f.execute(ctx, userID, currentStep(rec), answer, false)
	}

	if !exists {
		return f.firstContact(ctx, userID, answer)
	}

	step := currentStep(rec)
	processed := answer
	switch answer {
	case TokenContinueAnyway:
		processed = rec.LastAnswer()
	default:
		question := rec.CurrentQuestion
		if question == "" {
			question = DefaultPreviousQuestion
		}
		outcome := f.validator.Validate(ctx, question, answer, categoryForStep(step))
		if !outcome.IsValid {
			if outcome.Details != nil && outcome.Details.PartialAnswer {
				// Keep the partial answer on record; the step does not move.
				fact := store.Fact{Key: "partial_" + string(step), Value: answer, Details: outcome.Details}
				if err := f.store.Record(ctx, userID, fact); err != nil {
					return Result{}, fmt.Errorf("record partial answer: %w", err)
				}
			}
			return Result{NextQuestion: outcome.Feedback, CurrentStep: step}, nil
		}
		processed = outcome.ProcessedResponse
		fact := store.Fact{Key: store.KeyValidation, Value: "valid", Details: outcome.Details}
		if err := f.store.Record(ctx, userID, fact); err != nil {
			return Result{}, fmt.Errorf("record validation: %w", err)
		}
	}

	return f.execute(ctx, userID, step, processed, false)
}

// firstContact handles the very first turn of a brand-new user. An opening
// answer that already names symptoms skips the greeting entirely.
func (f *Flow) firstContact(ctx context.Context, userID, answer string) (Result, error) {
	if _, err := f.store.Ensure(ctx, userID); err != nil {
		return Result{}, fmt.Errorf("create user %s: %w", userID, err)
	}
	if hasSymptomKeyword(answer) {
		if err := f.store.Record(ctx, userID, store.Fact{Key: store.KeySymptoms, Value: answer}); err != nil {
			return Result{}, fmt.Errorf("record symptoms: %w", err)
		}
		res := Result{NextQuestion: PreviousHistoryQuestion, CurrentStep: store.StepPreviousHistory}
		if err := f.store.SetPosition(ctx, userID, res.CurrentStep, res.NextQuestion); err != nil {
			return Result{}, fmt.Errorf("store position: %w", err)
		}
		return res, nil
	}
	return f.execute(ctx, userID, store.StepStart, "", true)
}

// execute dispatches to the step handler and persists the resulting
// position. Oracle failures inside handlers become an apology that keeps
// the step unchanged; anything else surfaces as an internal error.
func (f *Flow) execute(ctx context.Context, userID string, step store.Step, answer string, firstContact bool) (Result, error) {
	res, err := f.runStep(ctx, userID, step, answer, firstContact)
	if err != nil {
		var of *oracleFailure
		if errors.As(err, &of) {
			f.log.WithError(of.err).WithFields(logrus.Fields{
				"user_id": userID,
				"step":    step,
				"op":      of.op,
			}).Error("oracle call failed in step handler")
			return Result{NextQuestion: ApologyQuestion, CurrentStep: step}, nil
		}
		return Result{}, err
	}
	if res.NextQuestion == "" {
		res.NextQuestion = FallbackQuestion
	}
	if err := f.store.SetPosition(ctx, userID, res.CurrentStep, res.NextQuestion); err != nil {
		return Result{}, fmt.Errorf("store position: %w", err)
	}
	return res, nil
}

// runStep maps a step to its handler. The mapping is total: unknown step
// names, and the terminal end step, fall back to the greeting handler.
func (f *Flow) runStep(ctx context.Context, userID string, step store.Step, answer string, firstContact bool) (Result, error) {
	switch step {
	case store.StepSymptoms:
		return f.collectSymptoms(ctx, userID, answer)
	case store.StepPreviousHistory:
		return f.previousHistory(ctx, userID, answer)
	case store.StepMedicationHistory:
		return f.medicationHistory(ctx, userID, answer)
	case store.StepAdditionalSymptoms:
		return f.additionalSymptoms(ctx, userID, answer)
	case store.StepDiagnosisPrep, store.StepDiagnosis:
		return f.generateDiagnosis(ctx, userID)
	case store.StepCriticality:
		return f.assessCriticality(ctx, userID)
	default:
		// start, end, and anything unrecognized all restart the greeting.
		return f.start(ctx, userID, answer, firstContact)
	}
}

// currentStep reads the conversation cursor, defaulting to start for a
// record that has never been positioned.
func currentStep(rec store.UserRecord) store.Step {
	if rec.CurrentStep == "" {
		return store.StepStart
	}
	return rec.CurrentStep
}

// symptomKeywords is the vocabulary that marks an opening answer as already
// describing symptoms.
var symptomKeywords = []string{
	"fever", "headache", "pain", "cough", "cold", "sick", "hurts", "ache",
	"sore", "throat", "stomach", "nausea", "vomit", "dizzy", "tired", "fatigue",
}

func hasSymptomKeyword(answer string) bool {
	lower := strings.ToLower(answer)
	for _, kw := range symptomKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (f *Flow) lockUser(userID string) func() {
	f.mu.Lock()
	lock, ok := f.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		f.locks[userID] = lock
	}
	f.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}
