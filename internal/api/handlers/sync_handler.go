package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	apiContext "hirelink/internal/api/context"
	"hirelink/internal/engine/routes"
	"hirelink/internal/pkg/errors"
	"hirelink/internal/platform/models"
)

// SyncHandler exposes the route coordinator to the CRUD backend. The
// endpoints accept the work and return 202 immediately; the sync itself
// runs in the background and its failures are logged, never surfaced.
// Callers are expected to invoke these redundantly and the underlying
// operations are idempotent.
type SyncHandler struct {
	coordinator *routes.Coordinator
}

func NewSyncHandler(coordinator *routes.Coordinator) *SyncHandler {
	return &SyncHandler{coordinator: coordinator}
}

// SyncRoute handles POST /api/v1/sync/routes/:route_id. The optional JSON
// body carries the route's previous shape when the caller knows it (e.g. a
// host/path rename).
func (h *SyncHandler) SyncRoute(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	routeID := params.ByName("route_id")
	if routeID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
			"Route id is required", nil)
		return
	}

	var prev *models.RouteShape
	body, err := io.ReadAll(r.Body)
	if err == nil && len(body) > 0 {
		var shape models.RouteShape
		if err := json.Unmarshal(body, &shape); err != nil {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
				"Invalid JSON body", nil)
			return
		}
		prev = &shape
	}

	go h.run(func() error { return h.coordinator.SyncRoute(routeID, prev) })
	accepted(w)
}

// SyncHire handles POST /api/v1/sync/hires/:hire_id, re-syncing every route
// of a hire after an event that could affect all of them (base FQDN change).
func (h *SyncHandler) SyncHire(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	hireID := params.ByName("hire_id")
	if hireID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
			"Hire id is required", nil)
		return
	}

	go h.run(func() error { return h.coordinator.SyncAllRoutes(hireID) })
	accepted(w)
}

type invalidateRequest struct {
	Host    string `json:"host"`
	Path    string `json:"path"`
	HireID  string `json:"hireId"`
	RouteID string `json:"routeId,omitempty"`
}

// Invalidate handles POST /api/v1/invalidate, called after a route delete.
func (h *SyncHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
			"Invalid JSON body", nil)
		return
	}
	if req.Host == "" || req.HireID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
			"host and hireId are required", nil)
		return
	}

	go h.run(func() error {
		return h.coordinator.InvalidateRoute(req.Host, req.Path, req.HireID, req.RouteID)
	})
	accepted(w)
}

func (h *SyncHandler) run(fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic in background sync")
		}
	}()
	// Errors are already logged with context by the coordinator.
	_ = fn()
}

func accepted(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}
