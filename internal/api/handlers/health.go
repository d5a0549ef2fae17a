package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"
)

type HealthHandler struct {
	relationalDB *sql.DB
	edgeDB       *sql.DB
}

func NewHealthHandler(relationalDB, edgeDB *sql.DB) *HealthHandler {
	return &HealthHandler{relationalDB: relationalDB, edgeDB: edgeDB}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)

	if err := h.relationalDB.Ping(); err != nil {
		checks["relational_db"] = "unhealthy: " + err.Error()
	} else {
		checks["relational_db"] = "healthy"
	}

	if err := h.edgeDB.Ping(); err != nil {
		checks["edge_db"] = "unhealthy: " + err.Error()
	} else {
		checks["edge_db"] = "healthy"
	}

	status := "healthy"
	for _, check := range checks {
		if strings.HasPrefix(check, "unhealthy") {
			status = "degraded"
			break
		}
	}

	response := struct {
		Status    string            `json:"status"`
		Timestamp int64             `json:"timestamp"`
		Checks    map[string]string `json:"checks"`
	}{
		Status:    status,
		Timestamp: time.Now().Unix(),
		Checks:    checks,
	}

	statusCode := http.StatusOK
	if status == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
