package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode), or statusFor(err) to pick the code
//  3. Error is mapped via core.MapError to get a user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered as an HTML fragment for the upload page or as JSON

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/JonMunkholm/icumatch/internal/core"
	"github.com/JonMunkholm/icumatch/internal/logging"
	"github.com/JonMunkholm/icumatch/internal/sheet"
	"github.com/JonMunkholm/icumatch/internal/store"
	"github.com/JonMunkholm/icumatch/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errInvalidRequest wraps request decoding and validation failures.
var errInvalidRequest = errors.New("invalid request")

// statusFor picks the HTTP status for an error returned by a run.
func statusFor(err error) int {
	var colErr *core.ColumnError
	switch {
	case errors.Is(err, sheet.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &colErr),
		errors.Is(err, core.ErrMissingTable),
		errors.Is(err, core.ErrEmptyTable),
		errors.Is(err, core.ErrNoCensusDates),
		errors.Is(err, sheet.ErrUnsupported),
		errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest
	}
	if core.IsUserFacing(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondError logs the technical error with the request id and returns a
// user-friendly message, as an HTML fragment for the upload page or as JSON.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(statusCode)
		templates.ErrorAlert(userMsg.Message, userMsg.Action, userMsg.Code).Render(r.Context(), w)
		return
	}

	render.Status(r, statusCode)
	render.JSON(w, r, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// isHTMX checks if the request comes from the upload page script, which
// speaks the HTMX request header.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
