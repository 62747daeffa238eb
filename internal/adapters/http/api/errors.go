package api

import (
	"errors"
	"net/http"

	"github.com/okian/trackrank/internal/adapters/mq/queue"
	"github.com/okian/trackrank/internal/adapters/records"
	service "github.com/okian/trackrank/internal/app"
	"github.com/okian/trackrank/internal/domain/finish"
	"github.com/okian/trackrank/internal/domain/leaderboard"
	"github.com/okian/trackrank/internal/domain/mappack"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// errorKind maps an upstream error to a status code and a response code.
func errorKind(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, finish.ErrInvalidFinish):
		return http.StatusBadRequest, "invalid_finish"
	case errors.Is(err, mappack.ErrInvalidMappack):
		return http.StatusBadRequest, "invalid_mappack"
	case errors.Is(err, records.ErrNotFound), errors.Is(err, mappack.ErrUnknownMappack):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, queue.ErrQueueFull):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrMappacksDisabled):
		return http.StatusNotImplemented, "mappacks_disabled"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, queue.ErrQueueClosed):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, leaderboard.ErrInvariantViolation):
		return http.StatusInternalServerError, "invariant_violation"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeErr writes err with the status its kind maps to.
func writeErr(w http.ResponseWriter, err error) {
	status, code := errorKind(err)
	resp := errorResponse{Code: code, Message: err.Error()}
	if status == http.StatusInternalServerError {
		resp.Message = http.StatusText(status)
	}
	var verr *finish.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}
