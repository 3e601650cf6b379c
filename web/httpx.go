// ABOUTME: JSON helpers, request ids, and the error envelope for the REST API
// ABOUTME: Classified errors map to 400/401/403/404; everything else is an opaque 500
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/harperreed/crmlite/policy"
	"github.com/oklog/ulid/v2"
)

const requestIDHeader = "X-Request-Id"

type requestIDKey struct{}

func newRequestID() string { return ulid.Make().String() }

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id assigned to the request by the server middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readJSON decodes the request body into dst. An empty body leaves dst untouched.
func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return policy.Invalid("Invalid JSON body")
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, policy.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, policy.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, policy.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, policy.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := RequestID(r.Context())
	status := statusFor(err)

	message := err.Error()
	if status == http.StatusInternalServerError || !policy.IsClassified(err) {
		s.logger.Error("request failed", "request_id", requestID, "method", r.Method, "path", r.URL.Path, "err", err)
		status = http.StatusInternalServerError
		message = "Internal server error"
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	writeJSON(w, status, errorBody{Error: message, RequestID: requestID})
}
