package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmehra2102/notely/internal/app"
	"github.com/dmehra2102/notely/internal/domain"
	"github.com/dmehra2102/notely/pkg/auth"
	"go.uber.org/zap"
)

var errBadPayload = errors.New("invalid request payload")

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_, _ = w.Write(response)
	}
}

func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, messageBody{Message: message})
}

// respondError maps err onto an HTTP status and the error envelope. Internal
// errors are logged and hidden from the caller.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		message = "internal server error"
	}
	respondJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: message}})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadPayload):
		return http.StatusBadRequest, domain.KindValidation.String()
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrNoIdentity):
		return http.StatusUnauthorized, domain.KindUnauthenticated.String()
	case errors.Is(err, app.ErrStorageDisabled):
		return http.StatusServiceUnavailable, "UNAVAILABLE"
	}

	kind := domain.Kind(err)
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound, kind.String()
	case domain.KindForbidden:
		return http.StatusForbidden, kind.String()
	case domain.KindInvalidState, domain.KindValidation:
		return http.StatusBadRequest, kind.String()
	case domain.KindConflict:
		return http.StatusConflict, kind.String()
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized, kind.String()
	default:
		return http.StatusInternalServerError, kind.String()
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errBadPayload
	}
	return nil
}
