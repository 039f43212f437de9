package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/knob-sensor/internal/knob"
	"github.com/sweeney/knob-sensor/internal/poti"
)

func mappedReading(value, level int) knob.Reading {
	r := knob.UndefinedReading()
	r.Value = value
	r.Levels = 4
	r.Level = level
	return r
}

func TestNewTracker(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := Config{PollMs: 10, Broker: "tcp://localhost:1883", HTTPPort: ":80", Stage: "mapper", Levels: 4}
	tr := NewTracker(start, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(start) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, start)
	}
	if snap.Config.PollMs != 10 {
		t.Errorf("Config.PollMs: got %d, want 10", snap.Config.PollMs)
	}
	if snap.Config.HTTPPort != ":80" {
		t.Errorf("Config.HTTPPort: got %q, want %q", snap.Config.HTTPPort, ":80")
	}
	if snap.Ready {
		t.Error("expected Ready=false initially")
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
	if snap.Reading.Value != poti.ValueUndefined {
		t.Errorf("expected undefined value initially, got %d", snap.Reading.Value)
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.Update(mappedReading(600, 2), true, knob.EventCounts{Initial: 1, Changed: 3}, 4)

	snap := tr.Snapshot()
	if snap.Reading.Value != 600 || snap.Reading.Level != 2 {
		t.Errorf("Reading: got %+v", snap.Reading)
	}
	if !snap.Ready {
		t.Error("expected Ready=true")
	}
	if snap.Counts.Changed != 3 {
		t.Errorf("Counts.Changed: got %d, want 3", snap.Counts.Changed)
	}
	if snap.ReadErrors != 4 {
		t.Errorf("ReadErrors: got %d, want 4", snap.ReadErrors)
	}
}

func TestSetMQTTConnected(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	tr.SetMQTTConnected(true)
	if !tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}
}

func TestSetHost(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})

	if tr.Snapshot().Host != nil {
		t.Error("expected nil Host initially")
	}

	tr.SetHost(&HostInfo{Hostname: "knobpi", Platform: "raspbian"})

	snap := tr.Snapshot()
	if snap.Host == nil {
		t.Fatal("expected non-nil Host")
	}
	if snap.Host.Hostname != "knobpi" {
		t.Errorf("Host.Hostname: got %q, want %q", snap.Host.Hostname, "knobpi")
	}
}

func TestSnapshotUptime(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		StartTime: start,
		Now:       start.Add(15 * time.Minute),
	}

	if snap.Uptime() != 15*time.Minute {
		t.Errorf("Uptime: got %v, want 15m", snap.Uptime())
	}
}

func TestSnapshotNowIsSet(t *testing.T) {
	tr := NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Config{})

	before := time.Now()
	snap := tr.Snapshot()
	after := time.Now()

	if snap.Now.Before(before) || snap.Now.After(after) {
		t.Errorf("Now (%v) not between %v and %v", snap.Now, before, after)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	tr.Update(mappedReading(100, 0), true, knob.EventCounts{Initial: 1}, 0)

	snap1 := tr.Snapshot()

	tr.Update(mappedReading(900, 3), true, knob.EventCounts{Initial: 1, Changed: 1}, 0)

	if snap1.Reading.Value != 100 {
		t.Error("snapshot should be a copy; reading was modified")
	}
	if snap1.Counts.Changed != 0 {
		t.Error("snapshot should be a copy; counts were modified")
	}
}

func TestFormatJSON(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	snap := Snapshot{
		Reading:       mappedReading(600, 2),
		Ready:         true,
		Counts:        knob.EventCounts{Initial: 1, Changed: 5, Reset: 2},
		ReadErrors:    7,
		StartTime:     start,
		Now:           start.Add(15 * time.Minute),
		MQTTConnected: true,
		Config: Config{
			PollMs: 10, HeartbeatMs: 900000, Broker: "tcp://localhost:1883", HTTPPort: ":80",
			Stage: "mapper", Levels: 4, MaxRawValue: 1023,
		},
	}

	data := FormatJSON(snap)

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	s := parsed.Status
	if s.Event != "" || s.Reason != "" {
		t.Error("web JSON should not carry event or reason")
	}
	if s.Knob.Value == nil || *s.Knob.Value != 600 {
		t.Errorf("knob.value: got %v", s.Knob.Value)
	}
	if s.Knob.Mapping == nil || *s.Knob.Mapping.Level != 2 {
		t.Errorf("knob.mapping: got %+v", s.Knob.Mapping)
	}
	if !s.Ready {
		t.Error("expected ready=true")
	}
	if s.UptimeSeconds != 900 {
		t.Errorf("uptime_seconds: got %d, want 900", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" {
		t.Errorf("start_time: got %q", s.StartTime)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://localhost:1883" {
		t.Errorf("mqtt: got %+v", s.MQTT)
	}
	if s.Counts.Changed != 5 || s.Counts.Reset != 2 {
		t.Errorf("event_counts: got %+v", s.Counts)
	}
	if s.ReadErrors != 7 {
		t.Errorf("read_errors: got %d", s.ReadErrors)
	}
	if s.Config.Stage != "mapper" || s.Config.Levels != 4 {
		t.Errorf("config: got %+v", s.Config)
	}
	if s.Host != nil {
		t.Error("host should be omitted when unknown")
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("web JSON should be indented")
	}
}

func TestFormatJSONUndefinedReading(t *testing.T) {
	snap := Snapshot{Reading: knob.UndefinedReading()}
	data := FormatJSON(snap)

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	k := parsed["status"]["knob"].(map[string]interface{})
	if v, ok := k["value"]; !ok || v != nil {
		t.Errorf("expected null value, got %v", v)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	snap := Snapshot{
		Reading:   mappedReading(300, 1),
		Ready:     true,
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC),
	}

	data := FormatStatusEvent(snap, "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("event JSON should be compact")
	}

	var parsed StatusJSON
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Status.Event != "SHUTDOWN" || parsed.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", parsed.Status.Event, parsed.Status.Reason)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	data := FormatStatusEvent(Snapshot{Reading: knob.UndefinedReading()}, "STARTUP", "")
	if strings.Contains(string(data), `"reason"`) {
		t.Errorf("reason should be omitted: %s", data)
	}
}

func TestFormatJSONWithHost(t *testing.T) {
	snap := Snapshot{
		Reading:   knob.UndefinedReading(),
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC),
		Host: &HostInfo{
			Hostname:   "knobpi",
			Platform:   "raspbian",
			HostUptime: 2 * time.Hour,
			CPUPercent: 1.5,
			RSSBytes:   8 << 20,
		},
	}

	var parsed StatusJSON
	if err := json.Unmarshal(FormatJSON(snap), &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	h := parsed.Status.Host
	if h == nil {
		t.Fatal("expected host in JSON")
	}
	if h.Hostname != "knobpi" || h.HostUptimeSeconds != 7200 || h.RSSBytes != 8<<20 {
		t.Errorf("host: got %+v", h)
	}
}

func TestHostProbeCollect(t *testing.T) {
	probe, err := NewHostProbe()
	if err != nil {
		t.Skipf("process info unavailable: %v", err)
	}
	info, err := probe.Collect()
	if err != nil {
		t.Skipf("host info unavailable: %v", err)
	}
	if info == nil {
		t.Fatal("expected host info")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(time.Now(), Config{})
	var wg sync.WaitGroup

	// Writer
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			tr.Update(mappedReading(i, i%4), true, knob.EventCounts{Changed: i}, 0)
			tr.SetMQTTConnected(i%2 == 0)
			tr.SetHost(&HostInfo{Hostname: "knobpi"})
		}
	}()

	// Reader
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			snap := tr.Snapshot()
			_ = FormatJSON(snap)
		}
	}()

	wg.Wait()
}
