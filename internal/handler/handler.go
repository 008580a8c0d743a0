// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/expensetrack/expensetrack/internal/handler/dto"
	"github.com/expensetrack/expensetrack/internal/service"
)

// Handler serves the fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, dto.CodeNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a JSON body into dst and answers 400 or 413 itself when
// it cannot. Unknown fields are ignored.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
		return false
	}
	if errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, dto.CodeInvalidJSON, "Request body is required")
		return false
	}
	writeError(w, http.StatusBadRequest, dto.CodeInvalidJSON, "Invalid request body")
	return false
}

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, dto.CodeValidation, verr.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, dto.CodeInvalidCredentials, err.Error())
	case errors.Is(err, service.ErrInvalidRefreshToken):
		writeError(w, http.StatusUnauthorized, dto.CodeInvalidToken, err.Error())
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, dto.CodeUnauthorized, service.ErrUnauthenticated.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, dto.CodeForbidden, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, dto.CodeEmailTaken, err.Error())
	default:
		logger.Error("internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, dto.CodeInternal, "Internal server error")
	}
}
