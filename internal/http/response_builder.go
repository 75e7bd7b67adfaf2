// Package http provides HTTP server and handler implementations.
//
// This file implements the builder used for every JSON response and the
// mapping from domain errors to status codes.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"spendsmart/internal/core"
	applog "spendsmart/internal/log"
	"spendsmart/internal/session"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	headers    map[string]string
	fields     map[string]any
	payload    any
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Field adds a key to the response object. It is ignored once Payload is set.
func (b *JSONResponseBuilder) Field(key string, value any) *JSONResponseBuilder {
	if b.fields == nil {
		b.fields = make(map[string]any)
	}
	b.fields[key] = value
	return b
}

func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Field("message", msg)
}

// Payload replaces the response object with v, which may be any JSON value.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

// Write sends the built response to the http.ResponseWriter. The body is
// encoded before the header goes out, so an unencodable payload becomes a 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body := b.payload
	if body == nil {
		body = b.fields
		if b.fields == nil {
			body = struct{}{}
		}
	}

	var buf bytes.Buffer
	status := b.statusCode
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		slog.Error("Failed to encode JSON response", "error", err, "status", status)
		buf.Reset()
		buf.WriteString(`{"error":"InternalError","message":"internal server error"}` + "\n")
		status = http.StatusInternalServerError
	} else {
		for name, value := range b.headers {
			w.Header().Set(name, value)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// StatusForError maps a domain error to its HTTP status code.
func StatusForError(err error) int {
	switch {
	case errors.Is(err, core.ErrInvalidInput),
		errors.Is(err, core.ErrInvalidPayload),
		errors.Is(err, core.ErrInvalidType),
		errors.Is(err, core.ErrDuplicateIdentity):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrInvalidCredentials),
		errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds {"error": kind, "message": text} for err. Internal
// errors get a generic message.
func ErrorResponse(err error) *JSONResponseBuilder {
	status := StatusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	return NewJSONResponse().
		Status(status).
		Field("error", core.ErrorKind(err)).
		Message(msg)
}

// writeError logs err and writes the matching JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, component, op string, err error) {
	ctx := r.Context()
	userID, _ := session.CurrentUser(ctx)
	fields := applog.NewFields().
		WithError(err, core.ErrorKind(err)).
		WithOperation(op).
		WithUser(userID)

	logger := applog.FromContext(ctx).WithComponent(component)
	if StatusForError(err) == http.StatusInternalServerError {
		logger.ErrorContext(ctx, "Request failed", fields.ToSlice()...)
	} else {
		logger.InfoContext(ctx, "Request rejected", fields.ToSlice()...)
	}

	ErrorResponse(err).Write(w)
}

// writeUnauthorized is the deny handler for endpoints behind session.RequireUser.
func writeUnauthorized(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(core.ErrUnauthorized).Write(w)
}

func writeRateLimited(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().
		Status(http.StatusTooManyRequests).
		Field("error", "RateLimited").
		Message("too many attempts, try again later").
		Write(w)
}
