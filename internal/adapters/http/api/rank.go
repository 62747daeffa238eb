package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/trackrank/internal/domain/types"
)

// RankHandler serves rank and overview reads.
type RankHandler struct {
	deps Dependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps Dependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /rank?map_uid=&time=[&event=&edition=].
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	mapUID := strings.TrimSpace(r.URL.Query().Get("map_uid"))
	if mapUID == "" {
		writeErr(w, fmt.Errorf("%s: %w: missing map_uid", op, ErrBadRequest))
		return
	}
	t, err := strconv.ParseInt(r.URL.Query().Get("time"), 10, 32)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w: time must be an integer", op, ErrBadRequest))
		return
	}
	ev, err := eventFromQuery(r)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}

	rank, err := h.deps.ResolveRank(r.Context(), mapUID, int32(t), ev)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.RankResponse{MapUID: mapUID, Time: int32(t), Rank: rank})
}

// HandleGetOverview handles GET /overview?map_uid=&login=[&event=&edition=].
func (h *RankHandler) HandleGetOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_overview"
	q := r.URL.Query()
	mapUID, login := strings.TrimSpace(q.Get("map_uid")), strings.TrimSpace(q.Get("login"))
	if mapUID == "" || login == "" {
		writeErr(w, fmt.Errorf("%s: %w: map_uid and login are required", op, ErrBadRequest))
		return
	}
	ev, err := eventFromQuery(r)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}

	rows, err := h.deps.Overview(r.Context(), mapUID, login, ev)
	if err != nil {
		writeErr(w, fmt.Errorf("%s: %w", op, err))
		return
	}
	writeJSON(w, http.StatusOK, types.FromRankedRecords(rows))
}
