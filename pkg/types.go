package pkg

// ChatRequest carries one conversational turn from a patient.
type ChatRequest struct {
	UserID   string `json:"user_id"`
	Response string `json:"response"`
}

// ChatResponse returns the next question to ask and the step the
// conversation is now on.
type ChatResponse struct {
	NextQuestion string `json:"next_question"`
	CurrentStep  string `json:"current_step"`
}

// SummaryRequest asks for a physician-facing case summary.
type SummaryRequest struct {
	UserID string `json:"user_id"`
}

// SummaryResponse contains the generated case summary in markdown.
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// ErrorResponse is returned for transport-level failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
