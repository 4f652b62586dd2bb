package httpserver

import (
	"net/http"

	"github.com/hacksprint/hacksprint/pkg/apperr"
)

// statusForCode maps a domain error code to an HTTP status. This is the
// only place in the module where apperr.Code is translated to a
// transport-specific value.
func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeValidation, apperr.CodeInvalidPayload, apperr.CodeOTPInvalid:
		return http.StatusBadRequest
	case apperr.CodeEmailAlreadyRegistered:
		return http.StatusConflict
	case apperr.CodeRegistrationExpired, apperr.CodeOTPExpired:
		return http.StatusGone
	case apperr.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeAlreadyCheckedIn:
		return http.StatusBadRequest
	case apperr.CodeUnconfigured, apperr.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// RespondAppError writes the appropriate HTTP response for a domain
// *apperr.Error, including field errors, retry hints, and any attached
// response data (e.g. an AlreadyCheckedIn error's check_in_time).
func RespondAppError(w http.ResponseWriter, r *http.Request, err *apperr.Error) {
	status := statusForCode(err.Code)

	if err.RetryAfter > 0 {
		w.Header().Set("Retry-After", err.RetryAfter.String())
	}

	body := map[string]any{
		"error":   string(err.Code),
		"message": err.Message,
	}

	if len(err.Fields) > 0 {
		details := make([]ValidationError, 0, len(err.Fields))
		for _, f := range err.Fields {
			details = append(details, ValidationError{Field: f.Field, Message: f.Message})
		}
		body["details"] = details
	}

	for k, v := range err.Data {
		if k == "cause" {
			continue
		}
		body[k] = v
	}

	if status == http.StatusInternalServerError {
		correlationID := RequestIDFromContext(r.Context())
		body["correlation_id"] = correlationID
		body["message"] = "an internal error occurred"
	}

	Respond(w, status, body)
}
