// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
)

// Topic is the MQTT topic for knob events.
const Topic = "energy/knob/sensor/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "energy/knob/sensor/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a knob event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event knob.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string         // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string         // e.g., "SIGTERM", "SIGINT" (shutdown only)
	Config     *SystemConfig  // startup only
	Heartbeat  *HeartbeatInfo // heartbeat only
	RawPayload []byte         // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool           // Whether the message should be retained by the broker
}

// SystemConfig is the daemon configuration announced at startup.
type SystemConfig struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	Stage       string `json:"stage"`
	Levels      int    `json:"levels,omitempty"`
}

// HeartbeatInfo is the periodic liveness summary.
type HeartbeatInfo struct {
	UptimeSeconds int64            `json:"uptime_seconds"`
	Counts        CountsJSON       `json:"event_counts"`
	ReadErrors    uint64           `json:"read_errors"`
	Knob          knob.ReadingJSON `json:"knob"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Initial int `json:"initial"`
	Changed int `json:"changed"`
	Reset   int `json:"reset"`
}

// NewCountsJSON converts event counts for encoding.
func NewCountsJSON(c knob.EventCounts) CountsJSON {
	return CountsJSON{Initial: c.Initial, Changed: c.Changed, Reset: c.Reset}
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Knob KnobPayload `json:"knob"`
}

// KnobPayload contains the knob event details.
type KnobPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	knob.ReadingJSON
}

// FormatPayload creates the JSON payload for a knob event.
func FormatPayload(event knob.Event) ([]byte, error) {
	payload := Payload{
		Knob: KnobPayload{
			Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
			Event:       string(event.Type),
			ReadingJSON: event.Reading.JSON(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string         `json:"timestamp"`
	Event     string         `json:"event"`
	Reason    string         `json:"reason,omitempty"`
	Config    *SystemConfig  `json:"config,omitempty"`
	Heartbeat *HeartbeatInfo `json:"heartbeat,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Config:    event.Config,
			Heartbeat: event.Heartbeat,
		},
	}
	return json.Marshal(payload)
}

// willPayload is the retained last-will message the broker publishes when the
// daemon disappears without a clean shutdown.
func willPayload(now time.Time) []byte {
	data, _ := FormatSystemPayload(SystemEvent{
		Timestamp: now,
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	})
	return data
}
