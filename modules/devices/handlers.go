package devices

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/devicetrust/pkg/clientip"
	"github.com/dmitrymomot/devicetrust/pkg/device"
	"github.com/dmitrymomot/devicetrust/pkg/session"
	"github.com/dmitrymomot/devicetrust/pkg/trust"
)

type handlers struct {
	devices  DeviceService
	sessions SessionService
	health   map[string]Healthcheck
	log      *slog.Logger
}

type registerDeviceRequest struct {
	UserID           string            `json:"user_id"`
	DeviceHash       string            `json:"device_hash"`
	Metadata         device.Metadata   `json:"metadata"`
	ScreenResolution string            `json:"screen_resolution,omitempty"`
	Timezone         string            `json:"timezone,omitempty"`
	Locale           string            `json:"locale,omitempty"`
	LocationData     map[string]string `json:"location_data,omitempty"`
	ExtraSignals     map[string]string `json:"extra_signals,omitempty"`
}

func (h *handlers) registerDevice(w http.ResponseWriter, r *http.Request) {
	var req registerDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(w, "user_id must be a valid UUID")
		return
	}
	if req.DeviceHash == "" {
		badRequest(w, "device_hash is required")
		return
	}

	d, err := h.devices.Register(r.Context(), device.RegisterInput{
		UserID:           userID,
		DeviceHash:       req.DeviceHash,
		Metadata:         req.Metadata,
		IPAddress:        clientip.GetIP(r),
		UserAgent:        r.UserAgent(),
		ScreenResolution: req.ScreenResolution,
		Timezone:         req.Timezone,
		Locale:           req.Locale,
		LocationData:     req.LocationData,
		ExtraSignals:     req.ExtraSignals,
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusCreated, d)
}

func (h *handlers) getDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := pathUUID(w, r, "deviceID")
	if !ok {
		return
	}

	d, err := h.devices.FindByID(r.Context(), deviceID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusOK, d)
}

func (h *handlers) listDevices(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	list, total, err := h.devices.ListByUserID(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondList(w, list, map[string]any{
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

type validateDeviceRequest struct {
	UserID string `json:"user_id"`
}

func (h *handlers) validateDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := pathUUID(w, r, "deviceID")
	if !ok {
		return
	}
	var req validateDeviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(w, "user_id must be a valid UUID")
		return
	}

	// A negative verdict is a 200 with is_valid=false; only store
	// failures surface as errors.
	verdict, err := h.devices.Validate(r.Context(), deviceID, userID, clientip.GetIP(r), r.UserAgent())
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusOK, verdict)
}

type updateTrustRequest struct {
	TrustScore int    `json:"trust_score"`
	TrustLevel string `json:"trust_level"`
	Reason     string `json:"reason,omitempty"`
}

func (h *handlers) updateTrust(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := pathUUID(w, r, "deviceID")
	if !ok {
		return
	}
	var req updateTrustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}

	err := h.devices.UpdateTrust(r.Context(), deviceID, req.TrustScore, trust.Level(req.TrustLevel), req.Reason)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}

	d, err := h.devices.FindByID(r.Context(), deviceID)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusOK, d)
}

type revokeRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *handlers) revokeDevice(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := pathUUID(w, r, "deviceID")
	if !ok {
		return
	}
	reason := decodeReason(r)

	if err := h.devices.Revoke(r.Context(), deviceID, reason); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{"revoked": true})
}

type createSessionRequest struct {
	UserID   string `json:"user_id"`
	DeviceID string `json:"device_id"`
}

func (h *handlers) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "malformed JSON body")
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		badRequest(w, "user_id must be a valid UUID")
		return
	}
	deviceID, err := uuid.Parse(req.DeviceID)
	if err != nil {
		badRequest(w, "device_id must be a valid UUID")
		return
	}

	sess, err := h.sessions.Create(r.Context(), session.CreateInput{
		UserID:    userID,
		DeviceID:  deviceID,
		IPAddress: clientip.GetIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusCreated, sess)
}

func (h *handlers) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathUUID(w, r, "userID")
	if !ok {
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"

	list, err := h.sessions.ListByUserID(r.Context(), userID, activeOnly)
	if err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondList(w, list, map[string]any{"total": len(list)})
}

func (h *handlers) revokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := pathUUID(w, r, "sessionID")
	if !ok {
		return
	}
	reason := decodeReason(r)

	if err := h.sessions.Revoke(r.Context(), sessionID, reason); err != nil {
		respondError(w, r, h.log, err)
		return
	}
	respondData(w, http.StatusOK, map[string]any{"revoked": true})
}

func (h *handlers) healthcheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	overall := "healthy"
	checks := make(map[string]string, len(h.health))
	for name, probe := range h.health {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			overall = "degraded"
			continue
		}
		checks[name] = "ok"
	}

	respond(w, status, jsonResponse{Data: map[string]any{
		"status": overall,
		"checks": checks,
	}})
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		badRequest(w, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// decodeReason reads an optional reason from the request body,
// tolerating an empty body on DELETE.
func decodeReason(r *http.Request) string {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return ""
	}
	return req.Reason
}
