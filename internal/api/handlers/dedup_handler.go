package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apiContext "hirelink/internal/api/context"
	"hirelink/internal/engine/dedup"
	"hirelink/internal/pkg/errors"
)

type DedupHandler struct {
	store *dedup.Store
}

func NewDedupHandler(store *dedup.Store) *DedupHandler {
	return &DedupHandler{store: store}
}

type dedupCheckRequest struct {
	IP        string `json:"ip"`
	UserAgent string `json:"userAgent"`
}

type dedupCheckResponse struct {
	Duplicate bool `json:"duplicate"`
}

// Check handles POST /api/v1/dedup/:route_id/check. Input problems surface
// synchronously as 400s; only a store failure is a 500.
func (h *DedupHandler) Check(w http.ResponseWriter, r *http.Request) {
	params := r.Context().Value(apiContext.Params).(httprouter.Params)
	routeID := params.ByName("route_id")
	if routeID == "" {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
			"Route id is required", nil)
		return
	}

	var req dedupCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
			"Invalid JSON body", nil)
		return
	}

	duplicate, err := h.store.Check(routeID, req.IP, req.UserAgent)
	if err != nil {
		if err == dedup.ErrInvalidInput {
			errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput,
				"ip and userAgent are required", nil)
			return
		}
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal,
			"Dedup check failed", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dedupCheckResponse{Duplicate: duplicate})
}
