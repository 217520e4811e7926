package rest

import (
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/maritimalarm/maritime-alarm/internal/domain/alarm"
	"github.com/maritimalarm/maritime-alarm/internal/logger"
	"github.com/maritimalarm/maritime-alarm/internal/version"
)

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type trackedResponse struct {
	Tracked int `json:"tracked"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version.Short()})
}

// recentAlarms serves the last n alarms, oldest first.
func (h *handler) recentAlarms(w http.ResponseWriter, r *http.Request) {
	n := DefaultRecentAlarms

	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeText(w, http.StatusBadRequest, "Invalid n.")

			return
		}

		n = parsed
	}

	recent, err := h.deps.Alarms.Recent(r.Context(), n)
	if err != nil {
		logger.ErrorKV(r.Context(), "Failed to read recent alarms", "error", err)
		writeText(w, http.StatusInternalServerError, "Unable to read data.")

		return
	}

	if recent == nil {
		recent = []alarm.Alarm{}
	}

	writeJSON(w, http.StatusOK, recent)
}

func (h *handler) trackedVessels(w http.ResponseWriter, _ *http.Request) {
	tracked := 0
	if h.deps.Tracked != nil {
		tracked = h.deps.Tracked()
	}

	writeJSON(w, http.StatusOK, trackedResponse{Tracked: tracked})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeText(w, http.StatusInternalServerError, "Unable to encode response.")

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
