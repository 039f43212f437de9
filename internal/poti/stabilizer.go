package poti

import "github.com/sweeney/knob-sensor/internal/mathx"

// Stabilizer reduces jitter before a value counts as changed. It averages
// ExtraSamples+1 reads taken at least 1ms apart and blends the result with the
// previous smoothed value.
type Stabilizer struct {
	sampler *Sampler

	weightPrev   uint8
	extraSamples uint8

	// pending counts the reads still missing from a running average.
	pending uint8
	sum     int
	seeded  bool
	// smoothed is the last computed value. It feeds the next weighting step
	// and may differ from the visible value.
	smoothed int
}

// NewStabilizer creates a Stabilizer on top of a new Sampler.
func NewStabilizer(source Source, clock Clock, cfg Config) *Stabilizer {
	st := &Stabilizer{
		sampler:      NewSampler(source, clock, cfg),
		weightPrev:   mathx.Clamp(cfg.WeightPrev, 0, MaxWeightPrev),
		extraSamples: mathx.Clamp(cfg.ExtraSamples, 0, MaxExtraSamples),
	}
	st.resetStabilization()
	return st
}

// Changed computes a stabilized sample and reports whether it differs from
// the current value. Polls that are gated out or that only advance a running
// average return false.
func (st *Stabilizer) Changed() bool {
	v := st.stabilized()
	if v == ValueUndefined {
		return false
	}
	return st.sampler.accept(v)
}

// Value returns the current stabilized value or ValueUndefined.
func (st *Stabilizer) Value() int {
	return st.sampler.Value()
}

// PrevValue returns the previous stabilized value or ValueUndefined.
func (st *Stabilizer) PrevValue() int {
	return st.sampler.PrevValue()
}

// Channel returns the channel passed to the Source.
func (st *Stabilizer) Channel() uint8 {
	return st.sampler.Channel()
}

// CycleMillis returns the minimum time between two regular reads.
func (st *Stabilizer) CycleMillis() uint8 {
	return st.sampler.CycleMillis()
}

// SetCycleMillis changes the minimum time between two regular reads.
func (st *Stabilizer) SetCycleMillis(ms uint8) {
	st.sampler.SetCycleMillis(ms)
}

// WeightPrev returns the weight of the previous smoothed value.
func (st *Stabilizer) WeightPrev() uint8 {
	return st.weightPrev
}

// SetWeightPrev sets the weight of the previous smoothed value, clamped to 0-12.
func (st *Stabilizer) SetWeightPrev(w uint8) {
	st.weightPrev = mathx.Clamp(w, 0, MaxWeightPrev)
}

// ExtraSamples returns the number of additional reads per average.
func (st *Stabilizer) ExtraSamples() uint8 {
	return st.extraSamples
}

// SetExtraSamples sets the number of additional reads per average, clamped to 0-7.
func (st *Stabilizer) SetExtraSamples(n uint8) {
	st.extraSamples = mathx.Clamp(n, 0, MaxExtraSamples)
}

// Reset restores the state directly after construction. Configuration is kept.
func (st *Stabilizer) Reset() {
	st.sampler.Reset()
	st.resetStabilization()
}

func (st *Stabilizer) resetStabilization() {
	st.pending = 0
	st.sum = 0
	st.seeded = false
	st.smoothed = ValueUndefined
}

// stabilized reads, averages and weights one sample. It returns
// ValueUndefined while gated, after a failed read and while an average is
// still collecting reads.
func (st *Stabilizer) stabilized() int {
	s := st.sampler
	now := s.clock()

	// Reads of a running average take priority over the cycle gate.
	if st.pending == 0 {
		if !s.due(now) {
			return ValueUndefined
		}
	} else if !s.dueFine(now) {
		return ValueUndefined
	}

	raw, ok := s.read(now)
	if !ok {
		return ValueUndefined
	}

	if st.extraSamples > 0 {
		switch {
		case !st.seeded:
			// The very first read is used directly so the knob reports at once.
			st.seeded = true
			st.sum = raw
		case st.pending == 0:
			st.pending = st.extraSamples
			st.sum = raw
			return ValueUndefined
		default:
			st.sum += raw
			st.pending--
			if st.pending > 0 {
				return ValueUndefined
			}
			n := int(st.extraSamples) + 1
			raw = mathx.RoundDiv(st.sum*2, n*2)
		}
	}

	if st.weightPrev > 0 && st.smoothed != ValueUndefined {
		w := int(st.weightPrev)
		raw = mathx.RoundDiv(raw*newSampleWeight+st.smoothed*w, w+newSampleWeight)
	}

	st.smoothed = raw
	return raw
}
