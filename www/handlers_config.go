package www

import (
	"log"
	"net/http"
	"strconv"
	"time"
)

func (h *Handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.AppConfig()
	data := map[string]any{
		"Page":          "config",
		"Authenticated": h.isAuthenticated(r),
		"Config":        cfg,
		"Saved":         r.URL.Query().Get("saved"),
	}
	h.render(w, "config.html", data)
}

// handleConfigSave persists one section of the config file. Messaging
// and fleet changes take effect on restart; there is no hot reload of
// the broker connection.
func (h *Handlers) handleConfigSave(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	section := r.FormValue("section")
	cfg := h.engine.AppConfig()

	switch section {
	case "messaging":
		cfg.Messaging.Backend = r.FormValue("msg_backend")
		cfg.Messaging.MQTT.BrokerURL = r.FormValue("mqtt_broker_url")
		cfg.Messaging.MQTT.ClientID = r.FormValue("mqtt_client_id")
		cfg.Messaging.MQTT.Username = r.FormValue("mqtt_username")
		cfg.Messaging.MQTT.Password = r.FormValue("mqtt_password")
		if brokers := r.FormValue("kafka_brokers"); brokers != "" {
			cfg.Messaging.Kafka.Brokers = splitTrim(brokers, ",")
		} else {
			cfg.Messaging.Kafka.Brokers = []string{}
		}
		cfg.Messaging.Kafka.GroupID = r.FormValue("kafka_group_id")
		cfg.Messaging.Kafka.Topic = r.FormValue("kafka_topic")
	case "redis":
		cfg.Redis.Enabled = r.FormValue("redis_enabled") == "on"
		cfg.Redis.Address = r.FormValue("redis_address")
		cfg.Redis.Password = r.FormValue("redis_password")
		if d, err := strconv.Atoi(r.FormValue("redis_db")); err == nil {
			cfg.Redis.DB = d
		}
	case "fleet":
		if robots := r.FormValue("robots"); robots != "" {
			cfg.Fleet.Robots = splitTrim(robots, ",")
		}
		if d, err := time.ParseDuration(r.FormValue("offline_threshold")); err == nil && d > 0 {
			cfg.Fleet.OfflineThreshold = d
		}
		if d, err := time.ParseDuration(r.FormValue("status_tick")); err == nil && d > 0 {
			cfg.Fleet.StatusTick = d
		}
	default:
		http.Error(w, "unknown section", http.StatusBadRequest)
		return
	}

	if err := cfg.Save(h.engine.ConfigPath()); err != nil {
		log.Printf("config: save error: %v", err)
		http.Error(w, "Failed to save: "+err.Error(), http.StatusInternalServerError)
		return
	}

	log.Printf("config: %s section saved by %s", section, h.getUsername(r))
	http.Redirect(w, r, "/config?saved="+section, http.StatusSeeOther)
}
