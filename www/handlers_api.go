package www

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fleetconsole/telemetry"
	"fleetconsole/wire"
)

func (h *Handlers) apiState(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.BootstrapState())
}

func (h *Handlers) apiRobots(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.Overview())
}

func (h *Handlers) apiTelemetry(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	snap := h.engine.Cache().Snapshot()
	robot, ok := snap[robotID]
	if !ok {
		h.jsonError(w, "unknown robot", http.StatusNotFound)
		return
	}
	h.jsonOK(w, robot)
}

func (h *Handlers) apiTelemetryChannel(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	channel := chi.URLParam(r, "channel")
	entry, ok := h.engine.Cache().Get(robotID, channel)
	if !ok {
		h.jsonError(w, "no data on channel", http.StatusNotFound)
		return
	}
	h.jsonOK(w, map[string]any{
		"robot_id":   robotID,
		"channel":    channel,
		"payload":    entry.Payload,
		"arrived_at": entry.ArrivedAt,
	})
}

// apiPath returns the robot's latest planned route, normalized to
// lat/lon pairs. An empty list means no route is known.
func (h *Handlers) apiPath(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	points := []telemetry.GeoPoint{}
	if entry, ok := h.engine.Cache().Get(robotID, wire.ChannelPathGPS); ok {
		normalized, err := telemetry.NormalizePath(entry.Payload)
		if err != nil {
			h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		points = normalized
	}
	h.jsonOK(w, map[string]any{"robot_id": robotID, "points": points})
}

func (h *Handlers) apiMission(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, h.engine.MissionSnapshot(chi.URLParam(r, "robot")))
}

func (h *Handlers) apiMissionHistory(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	limit := queryLimit(r, 50)
	records, err := h.engine.DB().ListMissions(robotID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, records)
}

func (h *Handlers) apiCommandLog(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	limit := queryLimit(r, 50)
	records, err := h.engine.DB().ListCommands(robotID, limit)
	if err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, records)
}

func (h *Handlers) apiHealth(w http.ResponseWriter, r *http.Request) {
	h.jsonOK(w, map[string]any{
		"status":      "ok",
		"broker":      h.engine.BrokerConnected(),
		"sse_clients": h.eventHub.ClientCount(),
	})
}

func queryLimit(r *http.Request, fallback int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			return n
		}
	}
	return fallback
}
