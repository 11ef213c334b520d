package devices

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/devicetrust/pkg/device"
	"github.com/dmitrymomot/devicetrust/pkg/requestid"
	"github.com/dmitrymomot/devicetrust/pkg/session"
)

// jsonResponse is the module's response envelope.
type jsonResponse struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *errorDetail   `json:"error,omitempty"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, body jsonResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, status int, data any) {
	respond(w, status, jsonResponse{Data: data})
}

func respondList(w http.ResponseWriter, data any, meta map[string]any) {
	respond(w, http.StatusOK, jsonResponse{Data: data, Meta: meta})
}

func badRequest(w http.ResponseWriter, message string) {
	respond(w, http.StatusBadRequest, jsonResponse{
		Error: &errorDetail{Code: "invalid_request", Message: message},
	})
}

// respondError maps domain sentinels to HTTP statuses. Anything
// unmapped is a store failure: logged with context and surfaced as an
// opaque internal error.
func respondError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var status int
	var code string

	switch {
	case errors.Is(err, device.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrDeviceNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, device.ErrDeviceRevoked),
		errors.Is(err, session.ErrDeviceInactive):
		status, code = http.StatusForbidden, "device_revoked"
	case errors.Is(err, session.ErrOwnershipMismatch):
		status, code = http.StatusForbidden, "ownership_mismatch"
	case errors.Is(err, device.ErrAlreadyRegistered):
		status, code = http.StatusConflict, "already_registered"
	case errors.Is(err, device.ErrInvalidTrustLevel):
		status, code = http.StatusUnprocessableEntity, "invalid_trust_level"
	default:
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestid.FromContext(r.Context()),
			"error", err)
		respond(w, http.StatusInternalServerError, jsonResponse{
			Error: &errorDetail{Code: "internal_error", Message: "internal server error"},
		})
		return
	}

	respond(w, status, jsonResponse{
		Error: &errorDetail{Code: code, Message: err.Error()},
	})
}
