// Package httpx provides the JSON response envelope and request helpers.
package httpx

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/accessdesk/accessdesk/internal/shared"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success   bool              `json:"success"`
	Message   string            `json:"message"`
	Data      any               `json:"data"`
	Timestamp time.Time         `json:"timestamp"`
	Code      string            `json:"code,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Responder writes envelopes. ExposeErrors adds internal error detail and
// must stay false in production.
type Responder struct {
	Logger       *slog.Logger
	ExposeErrors bool
	Now          func() time.Time
}

// NewResponder builds a Responder.
func NewResponder(logger *slog.Logger, exposeErrors bool) Responder {
	return Responder{Logger: logger, ExposeErrors: exposeErrors}
}

func (rs Responder) now() time.Time {
	if rs.Now != nil {
		return rs.Now().UTC()
	}
	return time.Now().UTC()
}

// Success writes a successful envelope.
func (rs Responder) Success(w http.ResponseWriter, status int, message string, data any) {
	rs.write(w, status, Envelope{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: rs.now(),
	})
}

// Failure writes an unsuccessful envelope that still carries data, for
// responses such as readiness reports.
func (rs Responder) Failure(w http.ResponseWriter, status int, message string, data any) {
	rs.write(w, status, Envelope{
		Success:   false,
		Message:   message,
		Data:      data,
		Timestamp: rs.now(),
	})
}

// OK writes a 200 envelope.
func (rs Responder) OK(w http.ResponseWriter, message string, data any) {
	rs.Success(w, http.StatusOK, message, data)
}

// Created writes a 201 envelope.
func (rs Responder) Created(w http.ResponseWriter, message string, data any) {
	rs.Success(w, http.StatusCreated, message, data)
}

func (rs Responder) write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil && rs.Logger != nil {
		rs.Logger.Warn("encode response", slog.Any("error", err))
	}
}

// DecodeJSON decodes JSON request body into the target struct, rejecting unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return shared.Validation("request body must be valid JSON", map[string]string{"body": err.Error()})
	}
	return nil
}

// PageQuery reads page, limit and search from the query string.
func PageQuery(r *http.Request) shared.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return shared.NewPageRequest(page, limit, q.Get("search"))
}

// IDParam parses a positive int64 identifier.
func IDParam(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation("invalid id", map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}
