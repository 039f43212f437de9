// Package poti turns noisy analog potentiometer readings into stable values.
// This package has NO hardware dependencies: samples come from an injected
// Source and time from an injected Clock. Every poll is O(1), never blocks
// and never allocates, so it can be called on each iteration of a control loop.
//
// The pipeline is built from four stages, each holding the previous one:
// Sampler (rate-limited reads), Stabilizer (averaging and weighting),
// Mapper (bucketing into levels) and CenteredMapper (signed values around a
// dead zone). Instances are owned by a single goroutine.
package poti

import "time"

const (
	// ValueUndefined is returned for values before the first detected change.
	// It lies outside every valid raw range.
	ValueUndefined = 0x7FFF

	// LevelUndefined is returned for levels before the first detected change.
	LevelUndefined = 0xFF

	// DefaultMaxRawValue is the highest sample of a 10-bit converter.
	DefaultMaxRawValue = 1023
)

// Clamp ranges for configuration values.
const (
	MaxWeightPrev     = 12
	MaxExtraSamples   = 7
	MinLevels         = 2
	MaxLevels         = 100
	MinCenteredLevels = 3
	MaxCenteredLevels = 101
	MaxStretch        = 20
	MinCenterTol      = 10

	// newSampleWeight is the fixed weight of a new sample when it is blended
	// with the previous smoothed value.
	newSampleWeight = 4
)

// Source delivers one raw sample for a channel, in [0, max].
// Returning ValueUndefined reports a failed read.
type Source interface {
	Sample(channel uint8) int
}

// SourceFunc adapts a plain function to Source.
type SourceFunc func(channel uint8) int

// Sample calls f(channel).
func (f SourceFunc) Sample(channel uint8) int {
	return f(channel)
}

// Clock returns monotonic milliseconds since an arbitrary epoch. Elapsed
// times are computed with unsigned subtraction, so wraparound is harmless.
type Clock func() uint32

// SystemClock returns a Clock backed by the monotonic wall clock.
func SystemClock() Clock {
	start := time.Now()
	return func() uint32 {
		return uint32(time.Since(start).Milliseconds())
	}
}

// Config holds construction parameters. Each stage reads the fields it needs
// and clamps them to their valid range; nothing is ever rejected.
type Config struct {
	// Channel is passed unchanged to the Source.
	Channel uint8
	// CycleMillis is the minimum time between two reads. 0 reads on every poll.
	CycleMillis uint8
	// WeightPrev is the weight (0-12) of the previous smoothed value against
	// a fixed weight of 4 for the new sample. 0 disables weighting.
	WeightPrev uint8
	// ExtraSamples is the number (0-7) of additional 1ms-spaced reads that are
	// averaged with the first one.
	ExtraSamples uint8
	// Levels is the number of mapping levels: 2-100, or odd 3-101 for a
	// CenteredMapper.
	Levels uint8
	// Stretch (0-20) moves mapping resolution towards the middle of the travel.
	Stretch uint8
	// MaxRawValue is the highest sample the source delivers. 0 means 1023.
	// Even values are decremented to keep both mapping halves symmetric.
	MaxRawValue int
	// CenterTolerance is the half width of the dead zone (minimum 10).
	CenterTolerance uint8
	// CenterValue is the raw value at the physical center. 0 means MaxRawValue/2.
	CenterValue int
}
