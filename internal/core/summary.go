package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"medintake/internal/llm"
	"medintake/internal/store"
)

// Summarizer builds the physician-facing case summary from the stored
// fields plus every structured extraction found in the turn log. It reads
// only; nothing about the user record changes.
type Summarizer struct {
	store  store.Store
	oracle llm.Client
	log    *logrus.Logger
}

func NewSummarizer(st store.Store, oracle llm.Client, log *logrus.Logger) *Summarizer {
	return &Summarizer{store: st, oracle: oracle, log: log}
}

// Summarize returns a markdown case summary for the user. Without recorded
// symptoms there is nothing to summarize and the oracle is not consulted.
func (s *Summarizer) Summarize(ctx context.Context, userID string) (string, error) {
	rec, exists, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	if !exists || len(rec.Symptoms) == 0 {
		return InsufficientDataSummary, nil
	}

	urgency := "Routine follow-up recommended"
	if rec.Critical {
		urgency = "Urgent medical attention recommended"
	}

	prompt := SummaryPrompt(
		strings.Join(rec.Symptoms, ", "),
		rec.PreviousHistory,
		rec.MedicationHistory,
		rec.AdditionalSymptoms,
		rec.Diagnosis,
		urgency,
		collectExtractedDetails(rec.TurnLog),
	)
	summary, err := s.oracle.Invoke(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summary oracle call: %w", err)
	}
	return "## Medical Case Summary\n\n" + summary, nil
}

// collectExtractedDetails walks the turn log in order and keeps the latest
// extraction of each kind, rendered compactly for the prompt.
func collectExtractedDetails(log []store.TurnEntry) string {
	extracted := map[string]any{}
	for _, entry := range log {
		d := entry.Details
		if d == nil {
			continue
		}
		if len(d.ExtractedSymptoms) > 0 {
			extracted["symptoms"] = d.ExtractedSymptoms
		}
		if d.ExtractedDiagnosis != "" {
			extracted["diagnosis"] = d.ExtractedDiagnosis
		}
		if len(d.Medications) > 0 {
			extracted["medications"] = d.Medications
		}
		if len(d.SideEffects) > 0 {
			extracted["side_effects"] = d.SideEffects
		}
	}
	if len(extracted) == 0 {
		return "{}"
	}
	out, err := json.Marshal(extracted)
	if err != nil {
		return "{}"
	}
	return string(out)
}
