package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string           `json:"event,omitempty"`
	Reason        string           `json:"reason,omitempty"`
	Knob          knob.ReadingJSON `json:"knob"`
	Ready         bool             `json:"ready"`
	UptimeSeconds int64            `json:"uptime_seconds"`
	StartTime     string           `json:"start_time"`
	Timestamp     string           `json:"timestamp"`
	MQTT          MQTTStatus       `json:"mqtt"`
	Counts        CountsJSON       `json:"event_counts"`
	ReadErrors    uint64           `json:"read_errors"`
	Host          *HostJSON        `json:"host,omitempty"`
	Config        ConfigJSON       `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Initial int `json:"initial"`
	Changed int `json:"changed"`
	Reset   int `json:"reset"`
}

// HostJSON is the JSON representation of host info.
type HostJSON struct {
	Hostname          string  `json:"hostname"`
	Platform          string  `json:"platform"`
	KernelVersion     string  `json:"kernel_version"`
	HostUptimeSeconds int64   `json:"host_uptime_seconds"`
	CPUPercent        float64 `json:"cpu_percent"`
	RSSBytes          uint64  `json:"rss_bytes"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs       int64  `json:"poll_ms"`
	HeartbeatMs  int64  `json:"heartbeat_ms"`
	Broker       string `json:"broker"`
	HTTPPort     string `json:"http_port"`
	WSBroker     string `json:"ws_broker,omitempty"`
	Stage        string `json:"stage"`
	Channel      uint8  `json:"channel"`
	CycleMillis  uint8  `json:"cycle_ms"`
	WeightPrev   uint8  `json:"weight_prev"`
	ExtraSamples uint8  `json:"extra_samples"`
	Levels       int    `json:"levels,omitempty"`
	Stretch      uint8  `json:"stretch"`
	MaxRawValue  int    `json:"max_raw_value"`
	CenterLow    int    `json:"center_low,omitempty"`
	CenterHigh   int    `json:"center_high,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	c := snap.Config
	return StatusInner{
		Knob:          snap.Reading.JSON(),
		Ready:         snap.Ready,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: c.Broker},
		Counts: CountsJSON{
			Initial: snap.Counts.Initial,
			Changed: snap.Counts.Changed,
			Reset:   snap.Counts.Reset,
		},
		ReadErrors: snap.ReadErrors,
		Config: ConfigJSON{
			PollMs:       c.PollMs,
			HeartbeatMs:  c.HeartbeatMs,
			Broker:       c.Broker,
			HTTPPort:     c.HTTPPort,
			WSBroker:     c.WSBroker,
			Stage:        c.Stage,
			Channel:      c.Channel,
			CycleMillis:  c.CycleMillis,
			WeightPrev:   c.WeightPrev,
			ExtraSamples: c.ExtraSamples,
			Levels:       c.Levels,
			Stretch:      c.Stretch,
			MaxRawValue:  c.MaxRawValue,
			CenterLow:    c.CenterLow,
			CenterHigh:   c.CenterHigh,
		},
	}
}

func buildHost(snap Snapshot, inner *StatusInner) {
	if snap.Host != nil {
		inner.Host = &HostJSON{
			Hostname:          snap.Host.Hostname,
			Platform:          snap.Host.Platform,
			KernelVersion:     snap.Host.KernelVersion,
			HostUptimeSeconds: int64(snap.Host.HostUptime.Seconds()),
			CPUPercent:        snap.Host.CPUPercent,
			RSSBytes:          snap.Host.RSSBytes,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildHost(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildHost(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
