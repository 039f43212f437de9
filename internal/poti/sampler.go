package poti

// Sampler reads raw samples at most once per cycle and tracks the current and
// previous value. It is the first stage of the pipeline and the only one that
// talks to the Source.
type Sampler struct {
	source      Source
	clock       Clock
	channel     uint8
	cycleMillis uint8

	// lastRead is the clock reading of the last read; 0 means never read.
	lastRead  uint32
	value     int
	prevValue int
}

// NewSampler creates a Sampler for cfg.Channel gated by cfg.CycleMillis.
func NewSampler(source Source, clock Clock, cfg Config) *Sampler {
	s := &Sampler{
		source:      source,
		clock:       clock,
		channel:     cfg.Channel,
		cycleMillis: cfg.CycleMillis,
	}
	s.Reset()
	return s
}

// Changed reads a new sample if the cycle gate allows it and reports whether
// it differs from the current value. A gated poll returns false and changes
// nothing. The first call after construction or Reset always reads.
func (s *Sampler) Changed() bool {
	now := s.clock()
	if !s.due(now) {
		return false
	}
	raw, ok := s.read(now)
	if !ok {
		return false
	}
	return s.accept(raw)
}

// Value returns the value set by the last call of Changed that returned true,
// or ValueUndefined.
func (s *Sampler) Value() int {
	return s.value
}

// PrevValue returns the value that was current before the last accepted
// change, or ValueUndefined.
func (s *Sampler) PrevValue() int {
	return s.prevValue
}

// Channel returns the channel passed to the Source.
func (s *Sampler) Channel() uint8 {
	return s.channel
}

// CycleMillis returns the minimum time between two reads.
func (s *Sampler) CycleMillis() uint8 {
	return s.cycleMillis
}

// SetCycleMillis changes the minimum time between two reads.
func (s *Sampler) SetCycleMillis(ms uint8) {
	s.cycleMillis = ms
}

// Reset restores the state directly after construction. Configuration is kept.
func (s *Sampler) Reset() {
	s.value = ValueUndefined
	s.prevValue = ValueUndefined
	s.lastRead = 0
}

// due reports whether the normal cycle gate lets a read through at now.
func (s *Sampler) due(now uint32) bool {
	if s.cycleMillis == 0 || s.lastRead == 0 {
		return true
	}
	return now-s.lastRead >= uint32(s.cycleMillis)
}

// dueFine is the 1ms gate used between the reads of a running average.
func (s *Sampler) dueFine(now uint32) bool {
	return now-s.lastRead >= 1
}

// read stamps the read time and acquires one sample. A failed read still
// counts as a read for the gates.
func (s *Sampler) read(now uint32) (int, bool) {
	s.lastRead = now
	raw := s.source.Sample(s.channel)
	return raw, raw != ValueUndefined
}

// accept stores v as the current value if it differs from it.
func (s *Sampler) accept(v int) bool {
	if v == s.value {
		return false
	}
	s.prevValue = s.value
	s.value = v
	return true
}
