// Package knob turns pipeline changes into publishable knob events.
// This package has NO hardware dependencies (no ADC, GPIO, MQTT or OS).
// Time is always injectable via time.Time parameters.
package knob

import (
	"time"

	"github.com/sweeney/knob-sensor/internal/poti"
)

// EventType represents a knob event.
type EventType string

const (
	// EventInitial is the first change after startup or reset.
	EventInitial EventType = "KNOB_INITIAL"
	// EventChanged is any later change.
	EventChanged EventType = "KNOB_CHANGED"
	// EventReset is emitted when the pipeline was reset (switch press).
	EventReset EventType = "KNOB_RESET"
)

// Reading is a snapshot of the pipeline's accessors. Fields the pipeline
// does not provide stay at their undefined sentinel.
type Reading struct {
	Value     int
	PrevValue int

	// Levels is 0 when the pipeline does not map into levels.
	Levels    int
	Level     int
	PrevLevel int

	Centered          bool
	CenteredValue     int
	CenteredPrevValue int
	CenteredLevel     int
	CenteredPrevLevel int
}

// Event represents a knob change to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Reading   Reading
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Initial int
	Changed int
	Reset   int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
	Reading   Reading
}

// UndefinedReading is the reading of a pipeline that has not changed yet.
func UndefinedReading() Reading {
	return Reading{
		Value:             poti.ValueUndefined,
		PrevValue:         poti.ValueUndefined,
		Level:             poti.LevelUndefined,
		PrevLevel:         poti.LevelUndefined,
		CenteredValue:     poti.ValueUndefined,
		CenteredPrevValue: poti.ValueUndefined,
		CenteredLevel:     poti.LevelUndefined,
		CenteredPrevLevel: poti.LevelUndefined,
	}
}

// ValueDefined reports whether v is a real value and not poti.ValueUndefined.
func ValueDefined(v int) bool {
	return v != poti.ValueUndefined
}

// LevelDefined reports whether l is a real level and not poti.LevelUndefined.
func LevelDefined(l int) bool {
	return l != poti.LevelUndefined
}
