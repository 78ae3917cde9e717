package www

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"fleetconsole/mission"
	"fleetconsole/telemetry"
)

type pointRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (p pointRequest) geoPoint() telemetry.GeoPoint {
	return telemetry.GeoPoint{Latitude: p.Latitude, Longitude: p.Longitude}
}

// missionError maps sequencer rejections to HTTP codes. The operator
// UI shows the message verbatim.
func (h *Handlers) missionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, mission.ErrNoWaypoints),
		errors.Is(err, mission.ErrNoCustomer),
		errors.Is(err, mission.ErrBadIndex):
		h.jsonError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, mission.ErrRobotOffline):
		h.jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, mission.ErrMissionActive):
		h.jsonError(w, err.Error(), http.StatusConflict)
	default:
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handlers) apiAddWaypoint(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !req.geoPoint().Valid() {
		h.jsonError(w, "coordinates out of range", http.StatusUnprocessableEntity)
		return
	}
	if err := h.engine.AddWaypoint(robotID, req.geoPoint()); err != nil {
		h.missionError(w, err)
		return
	}
	h.jsonOK(w, h.engine.MissionSnapshot(robotID))
}

func (h *Handlers) apiDeleteWaypoint(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.jsonError(w, "invalid index", http.StatusBadRequest)
		return
	}
	if err := h.engine.DeleteWaypoint(robotID, index); err != nil {
		h.missionError(w, err)
		return
	}
	h.jsonOK(w, h.engine.MissionSnapshot(robotID))
}

func (h *Handlers) apiSetCustomer(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !req.geoPoint().Valid() {
		h.jsonError(w, "coordinates out of range", http.StatusUnprocessableEntity)
		return
	}
	h.engine.SetCustomer(robotID, req.geoPoint())
	h.jsonOK(w, h.engine.MissionSnapshot(robotID))
}

func (h *Handlers) apiStartMission(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	if err := h.engine.StartMission(robotID); err != nil {
		h.missionError(w, err)
		return
	}
	h.jsonOK(w, h.engine.MissionSnapshot(robotID))
}

func (h *Handlers) apiStopMission(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	h.engine.StopMission(robotID)
	h.jsonOK(w, h.engine.MissionSnapshot(robotID))
}

func (h *Handlers) apiClearMission(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	if err := h.engine.ClearMission(robotID); err != nil {
		h.missionError(w, err)
		return
	}
	h.jsonOK(w, h.engine.MissionSnapshot(robotID))
}

func (h *Handlers) apiQuickNav(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	var req pointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if !req.geoPoint().Valid() {
		h.jsonError(w, "coordinates out of range", http.StatusUnprocessableEntity)
		return
	}
	if err := h.engine.QuickNav(robotID, req.geoPoint()); err != nil {
		h.missionError(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "sent"})
}

func (h *Handlers) apiEmergencyStop(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	if err := h.engine.EmergencyStop(robotID); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "stopped"})
}

func (h *Handlers) apiCancelTask(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	if err := h.engine.CancelRobotTask(robotID); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "cancelled"})
}

func (h *Handlers) apiSetLid(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	var req struct {
		Open bool `json:"open"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.SetLid(robotID, req.Open); err != nil {
		h.missionError(w, err)
		return
	}
	h.jsonOK(w, map[string]string{"status": "sent"})
}

func (h *Handlers) apiSetEnabled(w http.ResponseWriter, r *http.Request) {
	robotID := chi.URLParam(r, "robot")
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.jsonError(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := h.engine.DB().SetRobotEnabled(robotID, req.Enabled); err != nil {
		h.jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.jsonOK(w, map[string]string{"status": "ok"})
}
