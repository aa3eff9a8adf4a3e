package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"medintake/internal/core"
	"medintake/internal/store"
	"medintake/pkg"
)

// Server bundles the dependencies required by the HTTP handlers.
type Server struct {
	Flow       *core.Flow
	Summarizer *core.Summarizer
	Store      store.Store
	Log        *logrus.Logger
	// DebugEndpoints exposes /debug/users, which dumps every stored user
	// record. Keep it off anywhere untrusted clients can reach.
	DebugEndpoints bool
}

func NewServer(flow *core.Flow, summarizer *core.Summarizer, st store.Store, log *logrus.Logger, debugEndpoints bool) *Server {
	return &Server{
		Flow:           flow,
		Summarizer:     summarizer,
		Store:          st,
		Log:            log,
		DebugEndpoints: debugEndpoints,
	}
}

// Router builds the route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(s.Log))
	r.Use(CORSMiddleware)

	r.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/user/{user_id}", s.handleGetUser).Methods(http.MethodGet)
	r.HandleFunc("/generate_summary", s.handleGenerateSummary).Methods(http.MethodPost, http.MethodOptions)
	if s.DebugEndpoints {
		r.HandleFunc("/debug/users", s.handleDebugUsers).Methods(http.MethodGet)
	}
	r.HandleFunc("/healthCheck", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}).Methods(http.MethodGet)

	return r
}

// handleChat processes one conversational turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req pkg.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "user_id is required"})
		return
	}

	res, err := s.Flow.Advance(r.Context(), req.UserID, req.Response)
	if err != nil {
		s.Log.WithError(err).WithField("user_id", req.UserID).Error("chat turn failed")
		respondJSON(w, http.StatusInternalServerError, pkg.ErrorResponse{Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, pkg.ChatResponse{
		NextQuestion: res.NextQuestion,
		CurrentStep:  string(res.CurrentStep),
	})
}

// handleGetUser returns the stored record for inspection. A user we have
// never seen yields an empty record rather than a 404, mirroring how the
// flow treats first contact.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]
	rec, _, err := s.Store.Get(r.Context(), userID)
	if err != nil {
		s.Log.WithError(err).WithField("user_id", userID).Error("load user failed")
		respondJSON(w, http.StatusInternalServerError, pkg.ErrorResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// handleDebugUsers dumps the whole store.
func (s *Server) handleDebugUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.Store.All(r.Context())
	if err != nil {
		s.Log.WithError(err).Error("list users failed")
		respondJSON(w, http.StatusInternalServerError, pkg.ErrorResponse{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_count": len(users),
		"users":      users,
	})
}

// handleGenerateSummary produces the physician-facing case summary.
func (s *Server) handleGenerateSummary(w http.ResponseWriter, r *http.Request) {
	var req pkg.SummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "invalid request body"})
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		respondJSON(w, http.StatusBadRequest, pkg.ErrorResponse{Error: "user_id is required"})
		return
	}

	summary, err := s.Summarizer.Summarize(r.Context(), req.UserID)
	if err != nil {
		s.Log.WithError(err).WithField("user_id", req.UserID).Error("summary generation failed")
		respondJSON(w, http.StatusInternalServerError, pkg.ErrorResponse{Error: err.Error()})
		return
	}

	respondJSON(w, http.StatusOK, pkg.SummaryResponse{Summary: summary})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
