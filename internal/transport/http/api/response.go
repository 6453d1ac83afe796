package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/juju/errors"

	"github.com/LouziusMedia/LoeschMich/internal/domain/erasure"
)

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FailError maps a workflow error onto the envelope. Unknown errors are
// logged and reported as 500 without their text.
func FailError(w http.ResponseWriter, err error, requestID string) {
	switch {
	case errors.Is(err, errors.NotFound):
		Fail(w, http.StatusNotFound, "not_found", err.Error(), requestID)
	case errors.Is(err, errors.NotValid):
		Fail(w, http.StatusBadRequest, "invalid", err.Error(), requestID)
	case errors.Is(err, errors.NotSupported):
		Fail(w, http.StatusUnprocessableEntity, "not_supported", err.Error(), requestID)
	case errors.Is(err, erasure.ErrAlreadySent):
		Fail(w, http.StatusConflict, "already_sent", err.Error(), requestID)
	case errors.Is(err, erasure.ErrInvalidTransition):
		Fail(w, http.StatusConflict, "invalid_transition", err.Error(), requestID)
	default:
		slog.Error("request failed", "err", err, "requestId", requestID)
		Fail(w, http.StatusInternalServerError, "internal", "internal error", requestID)
	}
}
