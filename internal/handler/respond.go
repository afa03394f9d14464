package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/cleanup/dashboard/internal/cleanup"
	"github.com/cleanup/dashboard/internal/lifecycle"
	"github.com/cleanup/dashboard/internal/middleware"
	"github.com/cleanup/dashboard/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// writeServiceError maps service, lifecycle and backend errors to a response.
// op names the operation in the log line for unexpected failures.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var (
		fieldErr  *service.FieldError
		remoteErr *cleanup.RemoteError
		parseErr  *cleanup.ParseError
	)

	switch {
	case errors.As(err, &fieldErr):
		msg := fieldErr.Err.Error()
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Fields: map[string]string{fieldErr.Field: msg}})
	case isValidationError(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, lifecycle.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case isConflictError(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &remoteErr):
		writeJSON(w, remoteStatus(remoteErr.StatusCode), errorResponse{Error: remoteErr.Message, Fields: remoteErr.Fields})
	case errors.Is(err, cleanup.ErrUnreachable):
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: cleanup.ErrUnreachable.Error()})
	case errors.As(err, &parseErr):
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "unexpected response from server"})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func isValidationError(err error) bool {
	return errors.Is(err, lifecycle.ErrPaymentModeRequired) ||
		errors.Is(err, lifecycle.ErrInvalidPaymentMode) ||
		errors.Is(err, lifecycle.ErrRewashItems) ||
		errors.Is(err, lifecycle.ErrReturnChallanEntries) ||
		errors.Is(err, service.ErrNotStatusAction)
}

func isConflictError(err error) bool {
	return errors.Is(err, lifecycle.ErrInvalidTransition) ||
		errors.Is(err, lifecycle.ErrFrozen) ||
		errors.Is(err, lifecycle.ErrChallanLinked) ||
		errors.Is(err, lifecycle.ErrRewashRequested) ||
		errors.Is(err, lifecycle.ErrAlreadyOnReturnChallan) ||
		errors.Is(err, service.ErrInFlight) ||
		errors.Is(err, service.ErrSuperseded)
}

// remoteStatus passes backend client errors through and reports backend
// server errors as a bad gateway.
func remoteStatus(code int) int {
	if code >= 400 && code < 500 {
		return code
	}
	return http.StatusBadGateway
}

// actorFromRequest returns the authenticated user, writing a 401 if there is none.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "not authenticated"})
		return service.Actor{}, false
	}
	return service.Actor{UserID: claims.UserID, Role: lifecycle.Role(claims.Role)}, true
}
