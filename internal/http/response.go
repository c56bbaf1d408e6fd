// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the single
// place where domain and storage errors are mapped onto status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"smartexpense/internal/core"
	applog "smartexpense/internal/log"
	"smartexpense/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
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

// Body sets the value encoded as the response body. A nil body writes
// nothing.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

type detailBody struct {
	Detail string `json:"detail"`
}

// ErrorResponse creates a {"detail": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(detailBody{Detail: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// FieldErrors creates a 400 response with the per-field messages.
func FieldErrors(verr core.ValidationError) *JSONResponseBuilder {
	return NewJSONResponse().Status(http.StatusBadRequest).Body(verr)
}

// writeError maps err onto a response. Unclassified errors are logged and
// reported as 500 without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr core.ValidationError
	switch {
	case errors.As(err, &verr):
		FieldErrors(verr).Write(w)
	case errors.Is(err, storage.ErrCategoryInUse):
		ErrorResponse(http.StatusConflict, "Category is referenced by existing expenses.").Write(w)
	case errors.Is(err, storage.ErrNotFound):
		NotFoundError("Not found.").Write(w)
	case errors.Is(err, core.ErrInvalidMonth):
		BadRequestError("month must be 1-12.").Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Request timed out",
			applog.FieldPath, r.URL.Path, applog.FieldError, err.Error())
		ErrorResponse(http.StatusServiceUnavailable, "request timed out").Write(w)
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldError, err.Error())
		InternalServerError().Write(w)
	}
}
