package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/crowdpetition/crowdpetition/internal/api/middleware"
	"github.com/crowdpetition/crowdpetition/internal/api/response"
	"github.com/crowdpetition/crowdpetition/internal/api/validation"
	"github.com/crowdpetition/crowdpetition/internal/petition"
	"github.com/crowdpetition/crowdpetition/internal/search"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a JSON body into dst, answering 400 INVALID_JSON on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidJSON, "Request body must be valid JSON", middleware.GetRequestID(r.Context()))
		return false
	}
	return true
}

// rejectInvalid answers 400 VALIDATION_ERROR when errs is non-empty.
func rejectInvalid(w http.ResponseWriter, r *http.Request, errs []validation.FieldError) bool {
	if len(errs) == 0 {
		return false
	}
	response.ErrWithDetails(w, http.StatusBadRequest, response.CodeValidation, "Input validation failed", errs, middleware.GetRequestID(r.Context()))
	return true
}

// pathID parses a positive integer URL parameter, answering 400 INVALID_ID
// when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		response.Err(w, http.StatusBadRequest, response.CodeInvalidID, name+" must be a positive integer", middleware.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

// writePetitionError maps petition and search errors onto the envelope.
// Title collisions and lost races answer 403 with code CONFLICT.
func writePetitionError(w http.ResponseWriter, r *http.Request, err error, op string) {
	requestID := middleware.GetRequestID(r.Context())

	var criteriaErr *search.ValidationError
	switch {
	case errors.As(err, &criteriaErr):
		details := make([]validation.FieldError, 0, len(criteriaErr.Fields))
		for _, f := range criteriaErr.Fields {
			details = append(details, validation.FieldError{Field: f.Field, Message: f.Message})
		}
		response.ErrWithDetails(w, http.StatusBadRequest, response.CodeValidation, "Invalid search parameters", details, requestID)
	case errors.Is(err, petition.ErrValidation):
		response.Err(w, http.StatusBadRequest, response.CodeValidation, reason(err, petition.ErrValidation), requestID)
	case errors.Is(err, petition.ErrUnauthenticated):
		response.Err(w, http.StatusUnauthorized, response.CodeUnauthorized, "A valid X-Authorization session token is required", requestID)
	case errors.Is(err, petition.ErrForbidden):
		response.Err(w, http.StatusForbidden, response.CodeForbidden, reason(err, petition.ErrForbidden), requestID)
	case errors.Is(err, petition.ErrConflict):
		response.Err(w, http.StatusForbidden, response.CodeConflict, reason(err, petition.ErrConflict), requestID)
	case errors.Is(err, petition.ErrNotFound):
		response.Err(w, http.StatusNotFound, response.CodeNotFound, reason(err, petition.ErrNotFound), requestID)
	default:
		slog.Error("failed to "+op, "error", err, "requestId", requestID)
		response.Err(w, http.StatusInternalServerError, response.CodeInternal, "Failed to "+op, requestID)
	}
}

// reason strips the sentinel prefix from a wrapped domain error so clients
// see only the specific message.
func reason(err, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return trimmed
	}
	return msg
}
