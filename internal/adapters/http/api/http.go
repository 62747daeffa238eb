// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/trackrank/internal/app"
	"github.com/okian/trackrank/internal/domain/model"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	ResolveRank(ctx context.Context, mapUID string, t int32, ev *service.EventInput) (int, error)
	Overview(ctx context.Context, mapUID, login string, ev *service.EventInput) ([]model.RankedRecord, error)
	Finished(ctx context.Context, login string, in service.FinishInput, ev *service.EventInput) (model.FinishResult, error)

	UpdateMappack(ctx context.Context, id string) (bool, error)
	EnqueueMappack(ctx context.Context, id string) (bool, error)
	MappackSnapshot(ctx context.Context, id string) (model.MappackScores, error)
	RegisterMappack(ctx context.Context, id string, uids []string, permanent bool, participants []string) error
	PersistMappack(ctx context.Context, id string) error

	Health(ctx context.Context) error
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	rankHandler     *RankHandler
	finishedHandler *FinishedHandler
	mappackHandler  *MappackHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(deps),
		statsHandler:    NewStatsHandler(statsProvider),
		rankHandler:     NewRankHandler(deps),
		finishedHandler: NewFinishedHandler(deps),
		mappackHandler:  NewMappackHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /healthz/metrics", s.healthHandler.HandleMetrics)
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("GET /rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("GET /overview", MetricsMiddleware(s.rankHandler.HandleGetOverview, "overview"))
	mux.HandleFunc("POST /player/finished", MetricsMiddleware(s.finishedHandler.HandlePostFinished, "finished"))

	mux.HandleFunc("POST /mappack", MetricsMiddleware(s.mappackHandler.HandleRegister, "mappack_register"))
	mux.HandleFunc("GET /mappack/{id}", MetricsMiddleware(s.mappackHandler.HandleGetMappack, "mappack"))
	mux.HandleFunc("POST /mappack/{id}/update", MetricsMiddleware(s.mappackHandler.HandleUpdate, "mappack_update"))
	mux.HandleFunc("POST /mappack/{id}/persist", MetricsMiddleware(s.mappackHandler.HandlePersist, "mappack_persist"))
}

// eventRequest names an event edition in a request body.
type eventRequest struct {
	Handle  string `json:"handle"`
	Edition int64  `json:"edition"`
}

func (e *eventRequest) input() (*service.EventInput, error) {
	if e == nil {
		return nil, nil
	}
	if strings.TrimSpace(e.Handle) == "" || e.Edition <= 0 {
		return nil, fmt.Errorf("%w: event needs a handle and a positive edition", ErrBadRequest)
	}
	return &service.EventInput{Handle: e.Handle, EditionID: e.Edition}, nil
}

// eventFromQuery reads the optional event and edition parameters. They come
// as a pair or not at all.
func eventFromQuery(r *http.Request) (*service.EventInput, error) {
	q := r.URL.Query()
	handle, edition := q.Get("event"), q.Get("edition")
	if handle == "" && edition == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(edition, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid edition %q", ErrBadRequest, edition)
	}
	return (&eventRequest{Handle: handle, Edition: id}).input()
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
