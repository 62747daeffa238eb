package api

import (
	"fmt"
	"net/http"
	"strings"

	service "github.com/okian/trackrank/internal/app"
	"github.com/okian/trackrank/internal/domain/types"
)

// finishedRequest is the body of POST /player/finished.
type finishedRequest struct {
	Login        string        `json:"login"`
	MapUID       string        `json:"map_uid"`
	Time         int32         `json:"time"`
	RespawnCount int32         `json:"respawn_count"`
	Flags        uint32        `json:"flags"`
	Cps          []int32       `json:"cps"`
	Event        *eventRequest `json:"event,omitempty"`
}

func (f finishedRequest) validate() error {
	switch {
	case strings.TrimSpace(f.Login) == "":
		return fmt.Errorf("%w: missing login", ErrBadRequest)
	case strings.TrimSpace(f.MapUID) == "":
		return fmt.Errorf("%w: missing map_uid", ErrBadRequest)
	}
	return nil
}

// FinishedHandler records finishes.
type FinishedHandler struct {
	deps Dependencies
}

// NewFinishedHandler creates a new finished handler.
func NewFinishedHandler(deps Dependencies) *FinishedHandler {
	return &FinishedHandler{deps: deps}
}

// HandlePostFinished handles POST /player/finished requests.
func (h *FinishedHandler) HandlePostFinished(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_finished"
	var req finishedRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	if err := req.validate(); err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	ev, err := req.Event.input()
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}

	res, err := h.deps.Finished(r.Context(), req.Login, service.FinishInput{
		MapUID:       req.MapUID,
		Time:         req.Time,
		RespawnCount: req.RespawnCount,
		Flags:        req.Flags,
		Cps:          req.Cps,
	}, ev)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromFinishResult(res))
}
