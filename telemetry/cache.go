package telemetry

import (
	"sort"
	"sync"
	"time"
)

// Entry is the latest payload seen on one (robot, channel) key.
type Entry struct {
	Payload   any       `json:"payload"`
	ArrivedAt time.Time `json:"arrived_at"`
}

// RobotSnapshot is one robot's full cached state, for bootstrap pushes.
type RobotSnapshot struct {
	LastSeen time.Time        `json:"last_seen"`
	Channels map[string]Entry `json:"channels"`
}

type robotState struct {
	lastSeen time.Time
	channels map[string]Entry
}

// Cache holds the most recent telemetry payload per robot and channel.
// Last write wins per key; arrival order is whatever the broker
// delivered, and the cache deliberately does not reconcile out-of-order
// delivery by timestamp. Every Put refreshes the robot's last-seen
// time from the message's carried heartbeat.
type Cache struct {
	mu       sync.RWMutex
	expected []string
	robots   map[string]*robotState
}

// NewCache seeds the cache with the configured robots (so they show as
// known-but-never-seen) and the expected channel set.
func NewCache(robots, expectedChannels []string) *Cache {
	c := &Cache{
		expected: append([]string(nil), expectedChannels...),
		robots:   make(map[string]*robotState),
	}
	for _, id := range robots {
		c.robots[id] = &robotState{channels: make(map[string]Entry)}
	}
	return c
}

func (c *Cache) robot(id string) *robotState {
	r, ok := c.robots[id]
	if !ok {
		r = &robotState{channels: make(map[string]Entry)}
		c.robots[id] = r
	}
	return r
}

// Put records the latest payload for (robotID, channel) and updates the
// robot's last-seen time to the carried heartbeat, which may differ
// from the local arrival time.
func (c *Cache) Put(robotID, channel string, payload any, arrivedAt, heartbeat time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.robot(robotID)
	r.channels[channel] = Entry{Payload: payload, ArrivedAt: arrivedAt}
	r.lastSeen = heartbeat
}

// Get returns the cached entry for one key.
func (c *Cache) Get(robotID, channel string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.robots[robotID]
	if !ok {
		return Entry{}, false
	}
	e, ok := r.channels[channel]
	return e, ok
}

// LastSeen returns the robot's heartbeat time; zero means never seen.
func (c *Cache) LastSeen(robotID string) time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if r, ok := c.robots[robotID]; ok {
		return r.lastSeen
	}
	return time.Time{}
}

// Robots returns every known robot id, sorted.
func (c *Cache) Robots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.robots))
	for id := range c.robots {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// KnownChannels returns the union of channels received from the robot
// and the statically expected set, sorted.
func (c *Cache) KnownChannels(robotID string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := make(map[string]bool, len(c.expected))
	for _, ch := range c.expected {
		seen[ch] = true
	}
	if r, ok := c.robots[robotID]; ok {
		for ch := range r.channels {
			seen[ch] = true
		}
	}
	channels := make([]string, 0, len(seen))
	for ch := range seen {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	return channels
}

// Snapshot copies the whole cache for an initial-state push.
func (c *Cache) Snapshot() map[string]RobotSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]RobotSnapshot, len(c.robots))
	for id, r := range c.robots {
		channels := make(map[string]Entry, len(r.channels))
		for ch, e := range r.channels {
			channels[ch] = e
		}
		out[id] = RobotSnapshot{LastSeen: r.lastSeen, Channels: channels}
	}
	return out
}
