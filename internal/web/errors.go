package web

// errors.go turns service errors into JSON responses.
//
// Every error is:
//   - logged server-side with the technical detail and request id
//   - mapped through core.MapError to a user message, action and code
//   - sent with a status derived from its sentinel

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/compatdb/internal/catalog"
	"github.com/JonMunkholm/compatdb/internal/core"
	"github.com/JonMunkholm/compatdb/internal/logging"
)

// errNoFile is returned when an import request carries no file.
var errNoFile = errors.New("no file provided")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// importCounts is attached to failed imports so clients can see how far
// parsing got.
type importCounts struct {
	TotalProcessed    int `json:"totalProcessed"`
	Rejected          int `json:"rejected"`
	DuplicatesSkipped int `json:"duplicatesSkipped"`
}

// respondError logs err and writes a user-facing JSON error.
// A statusCode of 0 derives the status from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= 500 {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}

	var ierr *core.IngestionError
	if errors.As(err, &ierr) {
		resp.Details = importCounts{
			TotalProcessed:    ierr.TotalProcessed,
			Rejected:          ierr.Rejected,
			DuplicatesSkipped: ierr.DuplicatesSkipped,
		}
	}

	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, statusCode, resp)
}

// statusFor maps error sentinels to HTTP status codes.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile), errors.Is(err, core.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, catalog.ErrNoValidRecords), errors.Is(err, catalog.ErrRead):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client went away; nginx convention.
		return 499
	case errors.Is(err, core.ErrIngestionFailed):
		// The replace transaction rolled back and the old catalog is live.
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
