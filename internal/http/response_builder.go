// Package http serves the JSON API over the template and projection services.
//
// This file implements a small builder for JSON responses and the mapping
// from service errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	body       any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes headers only.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	if err := json.NewEncoder(w).Encode(b.body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse builds a {"error": msg} response.
func ErrorResponse(code int, msg string) *JSONResponseBuilder {
	return NewJSONResponse().Status(code).Body(errorBody{Error: msg})
}

// BadRequestError is for malformed requests.
func BadRequestError(msg string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, msg)
}

// NotFoundError is for unknown resources.
func NotFoundError(msg string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, msg)
}

// statusFor maps a service error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, core.ErrRecurringInstallment):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs server faults and hides their detail from clients.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed", "path", r.URL.Path, "error", err)
		msg = "internal error"
	}
	ErrorResponse(code, msg).Write(w)
}
