package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/trackrank/internal/domain/types"
)

// registerRequest is the body of POST /mappack.
type registerRequest struct {
	ID           string   `json:"id"`
	MapUIDs      []string `json:"map_uids"`
	Permanent    bool     `json:"permanent"`
	Participants []string `json:"participants,omitempty"`
}

type updateResponse struct {
	ID      string `json:"id"`
	Updated bool   `json:"updated"`
}

// MappackHandler serves mappack snapshots and their recompute triggers.
type MappackHandler struct {
	deps Dependencies
}

// NewMappackHandler creates a new mappack handler.
func NewMappackHandler(deps Dependencies) *MappackHandler {
	return &MappackHandler{deps: deps}
}

func pathID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		return "", fmt.Errorf("%w: missing mappack id", ErrBadRequest)
	}
	return id, nil
}

// HandleGetMappack handles GET /mappack/{id} requests.
func (h *MappackHandler) HandleGetMappack(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_mappack"
	id, err := pathID(r)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	scores, err := h.deps.MappackSnapshot(r.Context(), id)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromMappackScores(scores))
}

// HandleUpdate handles POST /mappack/{id}/update. The recompute is queued
// unless sync=1 asks for it to run inline.
func (h *MappackHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_mappack"
	id, err := pathID(r)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}

	if r.URL.Query().Get("sync") == "1" {
		ok, err := h.deps.UpdateMappack(r.Context(), id)
		if err != nil {
			writeErr(w, fmt.Errorf("%s: %w", op, err))
			return
		}
		writeJSON(w, http.StatusOK, updateResponse{ID: id, Updated: ok})
		return
	}

	queued, err := h.deps.EnqueueMappack(r.Context(), id)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	if !queued {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}

// HandleRegister handles POST /mappack requests.
func (h *MappackHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_mappack"
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := h.deps.RegisterMappack(r.Context(), req.ID, req.MapUIDs, req.Permanent, req.Participants); err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusCreated, ackResponse{Status: "registered"})
}

// HandlePersist handles POST /mappack/{id}/persist requests.
func (h *MappackHandler) HandlePersist(w http.ResponseWriter, r *http.Request) {
	const op = "api.persist_mappack"
	id, err := pathID(r)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := h.deps.PersistMappack(r.Context(), id); err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Status: "persisted"})
}
