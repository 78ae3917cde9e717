package www

import (
	"net/http"

	"fleetconsole/liveness"
)

// handleConsole renders the live operator console. The page gets the
// fleet overview server-side; everything after first paint arrives
// over the SSE stream.
func (h *Handlers) handleConsole(w http.ResponseWriter, r *http.Request) {
	overview := h.engine.Overview()
	online := 0
	for _, o := range overview {
		if o.Status == liveness.StatusOnline {
			online++
		}
	}
	data := map[string]any{
		"Page":          "console",
		"Robots":        overview,
		"OnlineCount":   online,
		"TotalRobots":   len(overview),
		"BrokerOK":      h.engine.BrokerConnected(),
		"Authenticated": h.isAuthenticated(r),
	}
	h.render(w, "console.html", data)
}

func (h *Handlers) handleRobots(w http.ResponseWriter, r *http.Request) {
	registered, err := h.engine.DB().ListRobots()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	statuses := make(map[string]liveness.Status, len(registered))
	for _, robot := range registered {
		statuses[robot.RobotID] = h.engine.Status(robot.RobotID)
	}
	data := map[string]any{
		"Page":          "robots",
		"Robots":        registered,
		"Statuses":      statuses,
		"Authenticated": h.isAuthenticated(r),
	}
	h.render(w, "robots.html", data)
}

func (h *Handlers) handleMissions(w http.ResponseWriter, r *http.Request) {
	robotID := r.URL.Query().Get("robot")
	data := map[string]any{
		"Page":          "missions",
		"RobotID":       robotID,
		"Robots":        h.engine.Overview(),
		"Authenticated": h.isAuthenticated(r),
	}
	if robotID != "" {
		records, err := h.engine.DB().ListMissions(robotID, 100)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data["Records"] = records
		data["Current"] = h.engine.MissionSnapshot(robotID)
	}
	h.render(w, "missions.html", data)
}

func (h *Handlers) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	data := map[string]any{
		"Page":          "diagnostics",
		"BrokerOK":      h.engine.BrokerConnected(),
		"Backend":       cfg.Messaging.Backend,
		"SSEClients":    h.eventHub.ClientCount(),
		"Robots":        h.engine.Overview(),
		"Channels":      cfg.Fleet.ExpectedChannels,
		"Authenticated": h.isAuthenticated(r),
	}
	h.render(w, "diagnostics.html", data)
}
