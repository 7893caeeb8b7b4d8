package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/zatekoja/storefront-catalog/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/storefront-catalog/pkg/errors"
)

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps the error taxonomy onto HTTP status codes.
// Unclassified errors are logged and reported as 500 without detail.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unhandled request error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		respondWithError(w, http.StatusNotFound, appErr.Message)
	case apperrors.ErrorTypeValidation, apperrors.ErrorTypeParse:
		respondWithError(w, http.StatusBadRequest, appErr.Message)
	case apperrors.ErrorTypeNetwork:
		respondWithError(w, http.StatusGatewayTimeout, appErr.Message)
	case apperrors.ErrorTypeServer, apperrors.ErrorTypeExternal:
		respondWithError(w, http.StatusBadGateway, appErr.Message)
	case apperrors.ErrorTypeUnavailable:
		w.Header().Set("Retry-After", "30")
		respondWithError(w, http.StatusServiceUnavailable, appErr.Message)
	default:
		observability.LoggerFromContext(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Internal error")
		respondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
