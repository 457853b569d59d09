package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/calendar-bridge/internal/application"
	"github.com/example/calendar-bridge/internal/calendar"
	"github.com/example/calendar-bridge/internal/directory"
	"github.com/example/calendar-bridge/internal/remote"
)

var (
	errMissingCredentials = errors.New("administrative credentials are required")
	errMissingUsername    = errors.New("a username query parameter is required")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

// handleServiceError maps the service fault taxonomy onto HTTP statuses:
// node/session trouble is a gateway problem (502/503), request faults are
// the caller's (404/409/422), unknown nodes are a deployment defect.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	r.loggerFor(ctx).ErrorContext(ctx, "calendar operation failed", "error", err)

	var malformed *calendar.MalformedDocumentError
	switch {
	case errors.Is(err, remote.ErrUnavailable):
		r.writeJSON(ctx, w, http.StatusServiceUnavailable, errorResponse{
			ErrorCode: "NODE_UNAVAILABLE",
			Message:   "the calendar node is unavailable; try again later",
		})
	case application.IsSessionFault(err):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "SESSION_FAULT",
			Message:   "the calendar session faulted and was discarded; try again",
		})
	case errors.As(err, &malformed):
		r.writeJSON(ctx, w, http.StatusBadGateway, errorResponse{
			ErrorCode: "MALFORMED_RESPONSE",
			Message:   "the calendar node returned an unrepairable response",
		})
	case errors.Is(err, application.ErrUnknownNode):
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{
			ErrorCode: "UNKNOWN_NODE",
			Message:   "the account's node is not in the registry; check the deployment",
		})
	case errors.Is(err, application.ErrAppointmentNotFound), errors.Is(err, directory.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrConflictExists):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "CONFLICT_EXISTS",
			Message:   "a conflicting event already occupies the requested window",
		})
	case errors.Is(err, application.ErrVisitorLimit),
		errors.Is(err, application.ErrNotJoined),
		errors.Is(err, application.ErrAttendeeUnbookable):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Message: err.Error()})
	default:
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string `json:"error_code,omitempty"`
	Message   string `json:"message"`
}
