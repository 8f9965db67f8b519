package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"

	apperrors "github.com/jrsteele09/masapp-server/internal/errors"
	"github.com/jrsteele09/masapp-server/qrsession"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json"
	maxBodyBytes    = 1 << 20
)

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("failed to encode response")
	}
}

// writeJSONError writes an error response
func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}

// writeError turns an error from the core into a response. Authentication failures all look
// the same to the caller; anything unclassified is logged and reported as a bare 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *apperrors.ValidationError
		rateLimitErr  *apperrors.RateLimitError
		sessionErr    *qrsession.InvalidSessionError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "validation_failed",
			"error_description": "The request contains invalid fields",
			"fields":            validationErr.Fields,
		})
	case errors.As(err, &rateLimitErr):
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rateLimitErr.RetryAfter.Seconds()))))
		writeJSONError(w, "rate_limited", "Too many attempts, try again later", http.StatusTooManyRequests)
	case errors.As(err, &sessionErr):
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"error":             "invalid_qr_session",
			"error_description": "Scan the table QR code again",
			"reason":            string(sessionErr.Reason),
		})
	case errors.Is(err, apperrors.ErrUnauthenticated):
		writeJSONError(w, "unauthorized", "Authentication failed", http.StatusUnauthorized)
	case errors.Is(err, apperrors.ErrForbidden):
		writeJSONError(w, "forbidden", "You do not have permission to perform this action", http.StatusForbidden)
	case errors.Is(err, apperrors.ErrNotFound):
		writeJSONError(w, "not_found", "Resource not found", http.StatusNotFound)
	case errors.Is(err, apperrors.ErrConflict):
		writeJSONError(w, "conflict", err.Error(), http.StatusConflict)
	case errors.Is(err, apperrors.ErrValidation):
		writeJSONError(w, "validation_failed", err.Error(), http.StatusBadRequest)
	default:
		log.Err(err).Msg("unhandled error")
		writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
	}
}

// decodeJSON reads a JSON request body into v. A malformed body is a validation failure.
func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError().Add("body", "request body is required")
		}
		return apperrors.NewValidationError().Add("body", "malformed JSON: "+err.Error())
	}
	return nil
}
