package messaging

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"

	"fleetconsole/store"
	"fleetconsole/wire"
)

// Commander publishes outbound robot commands and records every one in
// the audit log. Publish failures fall back to the store outbox so a
// broker blip does not eat an operator action; the drainer retries
// them.
type Commander struct {
	client *Client
	db     *store.DB
}

func NewCommander(client *Client, db *store.DB) *Commander {
	return &Commander{client: client, db: db}
}

// Send publishes one command. Source is audit metadata: mission-driven
// or direct operator action.
func (c *Commander) Send(cmd wire.Command, source string) error {
	commandID := uuid.NewString()
	if audit, err := json.Marshal(cmd.Payload); err == nil {
		if err := c.db.RecordCommand(commandID, cmd.RobotID, cmd.Kind, source, string(audit)); err != nil {
			log.Printf("messaging: record command %s: %v", commandID, err)
		}
	}

	data, err := cmd.Encode()
	if err != nil {
		return err
	}
	if err := c.client.Publish(cmd.Topic(), data); err != nil {
		log.Printf("messaging: publish %s to %s failed, queueing: %v", cmd.Kind, cmd.Topic(), err)
		return c.db.EnqueueOutbox(cmd.Topic(), data, cmd.Kind, cmd.RobotID)
	}
	return nil
}
