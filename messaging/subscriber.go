package messaging

import (
	"log"
	"time"

	"fleetconsole/wire"
)

// Subscriber routes inbound r2s traffic to a TelemetryHandler. One
// subscription covers every robot and channel; topics that do not
// parse as telemetry are dropped.
type Subscriber struct {
	client  *Client
	handler TelemetryHandler
	now     func() time.Time
}

func NewSubscriber(client *Client, handler TelemetryHandler) *Subscriber {
	return &Subscriber{
		client:  client,
		handler: handler,
		now:     time.Now,
	}
}

// Start wires connection lifecycle callbacks, connects and subscribes.
func (s *Subscriber) Start() error {
	s.client.SetConnectionHandlers(
		func() { s.handler.HandleConnectionUp() },
		func(err error) { s.handler.HandleConnectionDown(err) },
	)
	if err := s.client.Connect(); err != nil {
		return err
	}
	return s.client.Subscribe(wire.TelemetryFilter(), s.handleMessage)
}

func (s *Subscriber) handleMessage(topic string, body []byte) {
	robotID, channel, ok := wire.ParseTelemetryTopic(topic)
	if !ok {
		log.Printf("messaging: dropping message on non-telemetry topic %q", topic)
		return
	}
	payload, err := wire.DecodePayload(channel, body)
	if err != nil {
		log.Printf("messaging: %s/%s: %v", robotID, channel, err)
		return
	}
	s.handler.HandleTelemetry(robotID, channel, payload, s.now())
}
