package httpapi

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	authorization "github.com/betandbeat/catalog-authorization"
)

// ProblemDetail is an RFC 7807 problem document.
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeProblem(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func decodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}

// statusFor translates an error from the authorization layer into an
// HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, authorization.ErrRouteForbidden),
		errors.Is(err, authorization.ErrSelfMismatch),
		errors.Is(err, authorization.ErrInvariantViolation):
		return http.StatusForbidden
	case errors.Is(err, authorization.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, authorization.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, authorization.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, authorization.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, authorization.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	p := ProblemDetail{Title: http.StatusText(status), Status: status}

	var de *authorization.DecisionError
	if errors.As(err, &de) {
		p.Reason = string(de.Decision.Reason)
		p.Detail = de.Decision.Message
		a.metrics.decisions.WithLabelValues("operation", p.Reason).Inc()
	} else if status < http.StatusInternalServerError {
		p.Detail = err.Error()
	}

	if status >= http.StatusInternalServerError {
		a.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}
	writeProblem(w, p)
}
