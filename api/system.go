package api

import (
	"net/http"
	"time"

	"github.com/shiftlog/shiftlog/internal/db"
)

type SystemHandler struct {
	db *db.DB
}

func NewSystemHandler(d *db.DB) *SystemHandler {
	return &SystemHandler{db: d}
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		if err := h.db.GetConn().PingContext(r.Context()); err != nil {
			writeError(w, http.StatusInternalServerError, "DB_UNAVAILABLE", "No se pudo conectar a la base de datos.")
			return
		}
	}

	writeData(w, http.StatusOK, map[string]any{"status": "ok", "now": time.Now().UTC().Format(time.RFC3339)})
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, http.StatusOK, map[string]string{"version": version, "buildTime": buildTime})
	}
}
