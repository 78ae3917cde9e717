package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fleetconsole/wire"
)

// Mirror write-throughs the latest telemetry into Redis for consumers
// outside this process (dashboards, alerting). The in-memory Cache
// stays authoritative; mirror failures are the caller's to log, never
// to act on.
type Mirror struct {
	client *redis.Client
}

func NewMirror(client *redis.Client) *Mirror {
	return &Mirror{client: client}
}

func channelKey(robotID, channel string) string {
	return fmt.Sprintf("fleetconsole:robot:%s:channel:%s", robotID, channel)
}

func metaKey(robotID string) string {
	return fmt.Sprintf("fleetconsole:robot:%s:meta", robotID)
}

const allRobotsKey = "fleetconsole:robots"

type mirrorMeta struct {
	Status   string    `json:"status"`
	LastSeen time.Time `json:"last_seen"`
}

// SetEntry mirrors one telemetry entry. Image frames are skipped; they
// are large and external consumers read them nowhere.
func (m *Mirror) SetEntry(ctx context.Context, robotID, channel string, e Entry) error {
	if wire.IsImageChannel(channel) {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	pipe := m.client.Pipeline()
	pipe.Set(ctx, channelKey(robotID, channel), data, 0)
	pipe.SAdd(ctx, allRobotsKey, robotID)
	_, err = pipe.Exec(ctx)
	return err
}

// SetStatus mirrors a robot's liveness status and heartbeat time.
func (m *Mirror) SetStatus(ctx context.Context, robotID, status string, lastSeen time.Time) error {
	data, err := json.Marshal(mirrorMeta{Status: status, LastSeen: lastSeen})
	if err != nil {
		return err
	}
	pipe := m.client.Pipeline()
	pipe.Set(ctx, metaKey(robotID), data, 0)
	pipe.SAdd(ctx, allRobotsKey, robotID)
	_, err = pipe.Exec(ctx)
	return err
}

// GetEntry reads a mirrored entry back; redis.Nil maps to absent.
func (m *Mirror) GetEntry(ctx context.Context, robotID, channel string) (Entry, bool, error) {
	data, err := m.client.Get(ctx, channelKey(robotID, channel)).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var e Entry
	return e, true, json.Unmarshal(data, &e)
}

// RemoveRobot drops every mirrored key for one robot.
func (m *Mirror) RemoveRobot(ctx context.Context, robotID string, channels []string) error {
	pipe := m.client.Pipeline()
	for _, ch := range channels {
		pipe.Del(ctx, channelKey(robotID, ch))
	}
	pipe.Del(ctx, metaKey(robotID))
	pipe.SRem(ctx, allRobotsKey, robotID)
	_, err := pipe.Exec(ctx)
	return err
}
