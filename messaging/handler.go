package messaging

import "time"

// TelemetryHandler receives decoded inbound traffic and connection
// lifecycle signals. The engine implements it.
type TelemetryHandler interface {
	HandleTelemetry(robotID, channel string, payload any, arrivedAt time.Time)
	HandleConnectionUp()
	HandleConnectionDown(err error)
}

// NoOpHandler ignores everything. Embed it to implement only the
// methods you care about.
type NoOpHandler struct{}

func (NoOpHandler) HandleTelemetry(string, string, any, time.Time) {}
func (NoOpHandler) HandleConnectionUp()                            {}
func (NoOpHandler) HandleConnectionDown(error)                     {}

var _ TelemetryHandler = NoOpHandler{}
