package web

// errors.go turns service errors into HTTP responses.
//
// Every error is mapped through core.MapError to a user message with a
// support code. Client errors carry their details (field problems, row
// problems); server errors are logged in full and reach the client only
// as the generic message. HTMX requests get an HTML alert fragment,
// everything else gets JSON.

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/leadbook/internal/core"
	"github.com/JonMunkholm/leadbook/internal/logging"
	"github.com/JonMunkholm/leadbook/internal/metrics"
	"github.com/JonMunkholm/leadbook/internal/web/templates"
)

// errNoFile is returned when an import request carries no CSV.
var errNoFile = errors.New("no file provided")

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Action  string                 `json:"action,omitempty"`
	Code    string                 `json:"code"`
	Fields  []core.ValidationError `json:"fields,omitempty"`
	Errors  []core.RowError        `json:"errors,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		maxBytes *http.MaxBytesError
		parseErr *csv.ParseError
	)
	switch {
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrImportRejected),
		errors.Is(err, core.ErrCapacity),
		errors.Is(err, errNoFile),
		errors.As(err, &parseErr):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.Is(err, core.ErrArchiveDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// buildErrorResponse fills the body for err. Details are only attached for
// client errors.
func buildErrorResponse(err error, status int) ErrorResponse {
	msg := core.MapError(err)
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if status >= 500 {
		return resp
	}

	var (
		ve core.ValidationErrors
		ie *core.ImportError
		ce *core.CapacityError
	)
	switch {
	case errors.As(err, &ve):
		resp.Error = strings.Join(ve.Messages(), ", ")
		resp.Fields = ve
	case errors.As(err, &ie):
		resp.Error = "Import rejected: " + strconv.Itoa(len(ie.Rows)) + " invalid rows"
		resp.Errors = ie.Rows
	case errors.As(err, &ce):
		resp.Error = ce.Error()
	}
	return resp
}

// respondError logs err and writes the matching error response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := buildErrorResponse(err, status)
	metrics.ErrorsTotal.WithLabelValues(resp.Code).Inc()

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", resp.Code,
		"error", err.Error(),
	}
	if status >= 500 {
		logger.Error("request failed", args...)
	} else {
		logger.Debug("request rejected", args...)
	}

	if isHTMX(r) {
		renderErrorPartial(w, r, resp, status)
		return
	}
	writeJSONStatus(w, status, resp)
}

// renderErrorPartial writes an HTMX alert fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, resp ErrorResponse, status int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := templates.ErrorAlert(resp.Error, resp.Action, resp.Code).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Warn("render error alert", "error", err)
		return
	}

	rows := make([]templates.RowError, 0, len(resp.Errors))
	for _, re := range resp.Errors {
		rows = append(rows, templates.RowError{Row: strconv.Itoa(re.Row), Message: re.Message})
	}
	_ = templates.RowErrors(rows).Render(r.Context(), w)
}

// isHTMX reports whether the request came from HTMX.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// writeJSON writes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// the status line is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("json encode error", "error", err)
	}
}
