package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/voicevision/voicevision/audio"
	"github.com/voicevision/voicevision/clients"
	"github.com/voicevision/voicevision/orchestrator"
	"github.com/voicevision/voicevision/progress"
	"github.com/voicevision/voicevision/session"
	"github.com/voicevision/voicevision/tutor"
)

var (
	errBadRequest = errors.New("bad request")
	// errNoState marks requests that need an earlier step first, such as
	// asking about a document before uploading one.
	errNoState = errors.New("nothing to work on yet")
)

type Envelope struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	RequestID string     `json:"request_id,omitempty"`
}

type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) ok(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: RequestIDFromContext(r.Context())})
}

// errorStatus maps domain errors onto HTTP statuses and stable codes.
func errorStatus(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, orchestrator.ErrUnsupportedMedia),
		errors.Is(err, audio.ErrNotWAV),
		errors.Is(err, audio.ErrNotMono16):
		return http.StatusUnsupportedMediaType, "unsupported_media"
	case errors.Is(err, orchestrator.ErrEmptyInput),
		errors.Is(err, orchestrator.ErrUnknownLanguage),
		errors.Is(err, orchestrator.ErrInvalidURL),
		errors.Is(err, tutor.ErrUnknownLanguage),
		errors.Is(err, tutor.ErrUnknownCategory),
		errors.Is(err, tutor.ErrUnknownExercise),
		errors.Is(err, tutor.ErrUnknownAction),
		errors.Is(err, tutor.ErrNoQuestion),
		errors.Is(err, tutor.ErrNoChoice),
		errors.Is(err, progress.ErrNoUser),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, session.ErrInvalidTransition),
		errors.Is(err, session.ErrNoRecording),
		errors.Is(err, tutor.ErrAlreadyAnswered),
		errors.Is(err, errNoState):
		return http.StatusConflict, "conflict"
	case errors.Is(err, orchestrator.ErrNotUnderstood):
		return http.StatusUnprocessableEntity, "not_understood"
	case errors.Is(err, clients.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, clients.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	entry := s.log.WithError(err).WithFields(logrus.Fields{
		"path":       r.URL.Path,
		"status":     status,
		"request_id": RequestIDFromContext(r.Context()),
	})
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Debug("request rejected")
	}
	writeJSON(w, status, Envelope{
		Error:     &ErrorInfo{Code: code, Message: err.Error()},
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// decode reads a JSON body into v. Bodies are capped at 1 MiB.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("empty body: %w", errBadRequest)
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("decode body: %v: %w", err, errBadRequest)
	}
	return nil
}

// formBool accepts the values HTML checkboxes and scripts send.
func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.FormValue(key))) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}

func attachment(w http.ResponseWriter, name, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
}
