// Package server wires the HTTP surface: routes, request decoding, and
// the mapping from service errors to status codes.
package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/linkup-app/linkup/internal/auth"
	"github.com/linkup-app/linkup/internal/middleware"
	"github.com/linkup-app/linkup/internal/service"
	"github.com/linkup-app/linkup/internal/storage"
)

// Server exposes the matching service over HTTP.
type Server struct {
	store    storage.Store
	matcher  *service.MatchService
	verifier auth.TokenVerifier
}

// New creates a Server backed by the given store and token verifier.
func New(store storage.Store, verifier auth.TokenVerifier) *Server {
	return &Server{
		store:    store,
		matcher:  service.NewMatchService(store),
		verifier: verifier,
	}
}

// Handler returns the full middleware-wrapped handler for the server.
func (s *Server) Handler() http.Handler {
	requireAuth := middleware.RequireAuth(s.verifier)

	mux := http.NewServeMux()
	mux.Handle("POST /functions/search-and-join", requireAuth(http.HandlerFunc(s.handleJoin)))
	mux.Handle("GET /groups/{id}", requireAuth(http.HandlerFunc(s.handleGetGroup)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return middleware.Logging(middleware.Metrics(middleware.CORS(mux)))
}

// joinRequest is the wire format of the join endpoint.
type joinRequest struct {
	ActivityType string         `json:"activity_type"`
	Params       map[string]any `json:"params"`
	MaxSize      int            `json:"max_size"`
}

// handleJoin resolves the caller to a group for the requested activity
// and returns its ID.
func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	userID := middleware.GetUserID(r.Context())

	groupID, _, err := s.matcher.JoinOrCreate(r.Context(), userID, service.JoinRequest{
		ActivityType: req.ActivityType,
		Params:       req.Params,
		MaxSize:      req.MaxSize,
	})
	if err != nil {
		if errors.Is(err, service.ErrMissingActivityType) {
			writeError(w, http.StatusBadRequest, "Missing activity_type")
			return
		}
		slog.Error("Join failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"group_id": groupID})
}

// handleGetGroup returns a group with its members, backing the group
// screen of the web client.
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")

	group, err := s.store.GetGroup(r.Context(), groupID)
	if errors.Is(err, storage.ErrGroupNotFound) {
		writeError(w, http.StatusNotFound, "Group not found")
		return
	}
	if err != nil {
		slog.Error("GetGroup failed", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	members, err := s.store.ListMembers(r.Context(), groupID)
	if err != nil {
		slog.Error("ListMembers failed", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	memberIDs := make([]string, len(members))
	for i, m := range members {
		memberIDs[i] = m.UserID
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"group": map[string]any{
			"id":            group.ID,
			"name":          group.Name,
			"activity_type": group.ActivityType,
			"params":        group.Params,
			"created_by":    group.CreatedBy,
			"max_size":      group.MaxSize,
			"is_open":       group.IsOpen,
			"created_at":    group.CreatedAt,
		},
		"members": memberIDs,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
