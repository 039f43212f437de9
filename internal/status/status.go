// Package status provides a thread-safe status tracker for the knob-sensor daemon.
// It is designed to be read by HTTP handlers and the websocket feed.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
)

// HostInfo describes the machine and the daemon process.
type HostInfo struct {
	Hostname      string
	Platform      string
	KernelVersion string
	HostUptime    time.Duration
	CPUPercent    float64
	RSSBytes      uint64
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPPort    string
	WSBroker    string // Websocket broker URL for browser MQTT (empty = disabled)

	Stage        string // sampler, stabilizer, mapper or centered
	Channel      uint8
	CycleMillis  uint8
	WeightPrev   uint8
	ExtraSamples uint8
	Levels       int
	Stretch      uint8
	MaxRawValue  int
	CenterLow    int
	CenterHigh   int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
type Snapshot struct {
	Reading       knob.Reading
	Ready         bool
	Counts        knob.EventCounts
	ReadErrors    uint64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Host          *HostInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Reading:   knob.UndefinedReading(),
		},
	}
}

// Update sets the knob reading, readiness, event counts and read errors.
// Called from runLoop on every tick.
func (t *Tracker) Update(reading knob.Reading, ready bool, counts knob.EventCounts, readErrors uint64) {
	t.mu.Lock()
	t.snap.Reading = reading
	t.snap.Ready = ready
	t.snap.Counts = counts
	t.snap.ReadErrors = readErrors
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetHost sets the host info.
func (t *Tracker) SetHost(info *HostInfo) {
	t.mu.Lock()
	t.snap.Host = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
