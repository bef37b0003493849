package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sbilibin2017/gw-item-tracker/internal/apperrors"
	"github.com/sbilibin2017/gw-item-tracker/internal/logger"
	"github.com/sbilibin2017/gw-item-tracker/internal/models"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromContext(r.Context()).Errorw("failed to encode response", "error", err)
	}
}

// writeServiceError maps a categorized error to its HTTP status.
// Uncategorized errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrAuthentication):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Errorw("internal server error", "error", err)
		writeJSON(w, r, status, models.ErrorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, r, status, models.ErrorResponse{Error: apperrors.Message(err, http.StatusText(status))})
}
