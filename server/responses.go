package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/go-tenant-portal/internal/errors"
	"github.com/jrsteele09/go-tenant-portal/validation"
	"github.com/rs/zerolog/log"
)

const msgUnexpected = "Something went wrong. Please try again"

// APIResponse is the envelope of every JSON endpoint.
type APIResponse struct {
	Success bool                    `json:"success"`
	Data    any                     `json:"data,omitempty"`
	Error   string                  `json:"error,omitempty"`
	Fields  []validation.FieldError `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Err(err).Msg("Failed to encode JSON response")
	}
}

func writeAPISuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: data})
}

func writeAPIError(w http.ResponseWriter, err error) {
	status, message := describeError(err)
	resp := APIResponse{Error: message}
	var verr *validation.ValidationError
	if apperrors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	writeJSON(w, status, resp)
}

// describeError picks the status and user facing message for an error returned by a service.
func describeError(err error) (int, string) {
	var (
		verr      *validation.ValidationError
		authErr   *apperrors.AuthError
		assocErr  *apperrors.AssociationError
		transient *apperrors.TransientError
	)
	switch {
	case apperrors.As(err, &verr):
		return http.StatusUnprocessableEntity, "Please correct the highlighted fields"
	case apperrors.As(err, &assocErr):
		return http.StatusInternalServerError, assocErr.Message()
	case apperrors.As(err, &authErr):
		switch {
		case authErr.Kind == apperrors.AuthInvalidCredentials, authErr.Kind == apperrors.AuthEmailUnconfirmed,
			authErr.Kind == apperrors.AuthSessionExpired:
			return http.StatusUnauthorized, authErr.Message
		case apperrors.As(err, &transient):
			return http.StatusServiceUnavailable, authErr.Message
		}
		return http.StatusBadRequest, authErr.Message
	case apperrors.As(err, &transient):
		return http.StatusServiceUnavailable, transient.Message()
	case apperrors.Is(err, apperrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "Not authenticated"
	}
	log.Err(err).Msg("unexpected error reached a handler")
	return http.StatusInternalServerError, msgUnexpected
}

// applyFormError shows err on page and returns the status to render with.
func applyFormError(page *FormPage, err error) int {
	status, message := describeError(err)
	var verr *validation.ValidationError
	if apperrors.As(err, &verr) {
		for field, msg := range verr.Map() {
			page.Errors[field] = msg
		}
		return status
	}
	page.FormError = message
	return status
}
