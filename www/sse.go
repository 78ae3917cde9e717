package www

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"fleetconsole/engine"
	"fleetconsole/wire"
)

type SSEEvent struct {
	Event string
	Data  string
}

// EventHub fans engine events out to every connected browser. Slow
// clients are dropped rather than allowed to stall the broadcast.
type EventHub struct {
	mu        sync.RWMutex
	clients   map[chan SSEEvent]struct{}
	broadcast chan SSEEvent
	stopChan  chan struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:   make(map[chan SSEEvent]struct{}),
		broadcast: make(chan SSEEvent, 256),
		stopChan:  make(chan struct{}),
	}
}

func (h *EventHub) Start() {
	go h.run()
}

func (h *EventHub) Stop() {
	select {
	case h.stopChan <- struct{}{}:
	default:
	}
}

func (h *EventHub) run() {
	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case <-h.stopChan:
			return
		case evt := <-h.broadcast:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- evt:
				default:
					// drop if full
				}
			}
			h.mu.RUnlock()
		case <-keepalive.C:
			h.mu.RLock()
			for ch := range h.clients {
				select {
				case ch <- SSEEvent{Event: "keepalive", Data: "ping"}:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *EventHub) Broadcast(event, data string) {
	select {
	case h.broadcast <- SSEEvent{Event: event, Data: data}:
	default:
	}
}

// BroadcastJSON marshals v and broadcasts it under the given event name.
func (h *EventHub) BroadcastJSON(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("sse: marshal %s: %v", event, err)
		return
	}
	h.Broadcast(event, string(data))
}

func (h *EventHub) AddClient() chan SSEEvent {
	ch := make(chan SSEEvent, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *EventHub) RemoveClient(ch chan SSEEvent) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

func (h *EventHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetupEngineListeners wires engine events to SSE broadcasts.
func (h *EventHub) SetupEngineListeners(eng *engine.Engine) {
	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.TelemetryUpdatedEvent)
		msg := map[string]any{
			"robot_id":  ev.RobotID,
			"channel":   ev.Channel,
			"last_seen": ev.LastSeen,
		}
		// Camera and map frames are large base64 blobs; browsers poll
		// those on demand instead of taking them over the stream.
		if ev.Channel != wire.ChannelCamera && ev.Channel != wire.ChannelRoutedMap {
			msg["payload"] = ev.Entry.Payload
		}
		h.BroadcastJSON("telemetry-update", msg)
	}, engine.EventTelemetryUpdated)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.StatusChangedEvent)
		h.BroadcastJSON("status-change", map[string]any{
			"robot_id": ev.RobotID,
			"from":     ev.From,
			"to":       ev.To,
		})
	}, engine.EventStatusChanged)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.PathUpdatedEvent)
		h.BroadcastJSON("path-update", map[string]any{
			"robot_id": ev.RobotID,
			"points":   ev.Points,
		})
	}, engine.EventPathUpdated)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		// Started, advanced and ended all refresh the same mission
		// panel; push the snapshot carried on the event.
		switch ev := evt.Payload.(type) {
		case engine.MissionStartedEvent:
			h.BroadcastJSON("mission-update", ev.Snapshot)
		case engine.MissionAdvancedEvent:
			h.BroadcastJSON("mission-update", ev.Snapshot)
		case engine.MissionEndedEvent:
			h.BroadcastJSON("mission-update", ev.Snapshot)
		}
	}, engine.EventMissionStarted, engine.EventMissionAdvanced, engine.EventMissionEnded)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		ev := evt.Payload.(engine.CommandSentEvent)
		h.BroadcastJSON("command-sent", map[string]any{
			"robot_id": ev.RobotID,
			"kind":     ev.Kind,
			"source":   ev.Source,
		})
	}, engine.EventCommandSent)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"broker":"connected"}`)
	}, engine.EventChannelUp)

	eng.Events.SubscribeTypes(func(evt engine.Event) {
		h.Broadcast("system-status", `{"broker":"disconnected"}`)
	}, engine.EventChannelDown)
}

// handleSSE serves the console push stream. Every new client first
// receives the full bootstrap snapshot, then live updates.
func (h *Handlers) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	state, err := json.Marshal(h.engine.BootstrapState())
	if err != nil {
		http.Error(w, "state marshal error", http.StatusInternalServerError)
		return
	}
	if _, err := fmt.Fprintf(w, "event: initial-state\ndata: %s\n\n", state); err != nil {
		return
	}
	flusher.Flush()

	ch := h.eventHub.AddClient()
	defer h.eventHub.RemoveClient(ch)

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-ch:
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Event, evt.Data); err != nil {
				log.Printf("sse: write error: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}
