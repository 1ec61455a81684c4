package http

import (
	"encoding/json"
	"log"
	"net/http"

	"live-poll-service/internal/app"
	"live-poll-service/internal/domain"
)

// API serves read-only JSON views of the session.
type API struct {
	service *app.PollService
}

func NewAPI(service *app.PollService) *API {
	return &API{service: service}
}

// Register mounts the endpoints on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/results", a.results)
	mux.HandleFunc("GET /api/history", a.history)
	mux.HandleFunc("GET /api/participants", a.participants)
}

func (a *API) results(w http.ResponseWriter, r *http.Request) {
	snap, ok := a.service.Results(r.Context())
	if !ok {
		writeJSON(w, http.StatusNotFound, errorPayload{Kind: errorKind(domain.ErrNoActiveQuestion), Message: domain.ErrNoActiveQuestion.Error()})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (a *API) history(w http.ResponseWriter, r *http.Request) {
	entries := a.service.History(r.Context())
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, historyPayload{Entries: entries})
}

func (a *API) participants(w http.ResponseWriter, r *http.Request) {
	participants := a.service.Participants(r.Context())
	if participants == nil {
		participants = []domain.Participant{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": participants})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
