package poti

import "github.com/sweeney/knob-sensor/internal/mathx"

// Mapper buckets stabilized values into a small number of levels. Changed
// only reports level changes; the raw value pair is updated together with the
// level pair, so Value may lag behind the latest stabilized sample until the
// next level boundary is crossed.
//
// With an odd number of levels the middle level gets a fixed band around the
// middle of the travel. Stretch concentrates resolution near the middle and
// widens the levels near both ends, compensating for pots whose readings move
// slowly at the ends of their travel.
type Mapper struct {
	st *Stabilizer

	levels  int
	stretch uint8
	maxRaw  int

	// odd keeps the level count odd while a CenteredMapper owns the Mapper.
	odd bool

	level     int
	prevLevel int
}

// NewMapper creates a Mapper on top of a new Stabilizer.
func NewMapper(source Source, clock Clock, cfg Config) *Mapper {
	m := &Mapper{
		st:      NewStabilizer(source, clock, cfg),
		levels:  int(mathx.Clamp(cfg.Levels, MinLevels, MaxLevels)),
		stretch: mathx.Clamp(cfg.Stretch, 0, MaxStretch),
		maxRaw:  DefaultMaxRawValue,
	}
	if cfg.MaxRawValue > 0 {
		m.SetMaxRawValue(cfg.MaxRawValue)
	}
	m.resetLevels()
	return m
}

// Changed computes a stabilized sample and reports whether its level differs
// from the current level.
func (m *Mapper) Changed() bool {
	last := m.st.smoothed
	raw := m.st.stabilized()
	if raw == ValueUndefined || raw == last {
		return false
	}
	return m.commit(raw, m.mapLevel(raw, 0, 0))
}

// commit stores raw and level as the current pair if the level moved.
func (m *Mapper) commit(raw, level int) bool {
	if level == m.level {
		return false
	}
	s := m.st.sampler
	s.prevValue = s.value
	s.value = raw
	m.prevLevel = m.level
	m.level = level
	return true
}

// Value returns the stabilized value that caused the current level, or
// ValueUndefined.
func (m *Mapper) Value() int {
	return m.st.Value()
}

// PrevValue returns the stabilized value that caused the previous level, or
// ValueUndefined.
func (m *Mapper) PrevValue() int {
	return m.st.PrevValue()
}

// Level returns the current level in [0, Levels()-1] or LevelUndefined.
func (m *Mapper) Level() int {
	return m.level
}

// PrevLevel returns the level before the last change or LevelUndefined.
func (m *Mapper) PrevLevel() int {
	return m.prevLevel
}

// Levels returns the number of levels after clamping.
func (m *Mapper) Levels() int {
	return m.levels
}

// SetLevels sets the number of levels, clamped to 2-100. Below a
// CenteredMapper the count is clamped to 3-101 and even counts are
// incremented.
func (m *Mapper) SetLevels(n uint8) {
	if !m.odd {
		m.levels = int(mathx.Clamp(n, MinLevels, MaxLevels))
		return
	}
	n = mathx.Clamp(n, MinCenteredLevels, MaxCenteredLevels)
	if n&1 == 0 {
		n++
	}
	m.levels = int(n)
}

// Stretch returns the stretch factor.
func (m *Mapper) Stretch() uint8 {
	return m.stretch
}

// SetStretch sets the stretch factor, clamped to 0-20.
func (m *Mapper) SetStretch(s uint8) {
	m.stretch = mathx.Clamp(s, 0, MaxStretch)
}

// MaxRawValue returns the highest raw value used for mapping. It is always odd.
func (m *Mapper) MaxRawValue() int {
	return m.maxRaw
}

// SetMaxRawValue sets the highest raw value used for mapping and returns the
// stored value. Even values are decremented by one.
func (m *Mapper) SetMaxRawValue(v int) int {
	if v&1 == 0 {
		v--
	}
	m.maxRaw = v
	return m.maxRaw
}

// Stabilizer returns the stage below for tuning its parameters.
func (m *Mapper) Stabilizer() *Stabilizer {
	return m.st
}

// Reset restores the state directly after construction. Configuration is kept.
func (m *Mapper) Reset() {
	m.st.Reset()
	m.resetLevels()
}

func (m *Mapper) resetLevels() {
	m.level = LevelUndefined
	m.prevLevel = LevelUndefined
}

// mapLevel returns the level of raw. A centerLow above 0 selects an explicit
// center band [centerLow, centerHigh]; otherwise an odd level count gets an
// implicit band around maxRaw/2.
//
// Each side is mapped separately with
//
//	level = trunc(d / (stdDiv/scale * ((scale - 1/scale)*d/valTot + 1/scale)))
//
// where d is the distance from the side's outer end, stdDiv the linear width
// of one level and scale = 1 + stretch/10. The arithmetic is single precision
// and truncating so bucket boundaries match the reference firmware exactly.
func (m *Mapper) mapLevel(raw, centerLow, centerHigh int) int {
	levels := m.levels
	centered := centerLow > 0
	if !centered && levels&1 == 1 {
		centered = true
		half := ((m.maxRaw + 1) / levels) >> 1
		centerLow = (m.maxRaw >> 1) - half
		centerHigh = (m.maxRaw >> 1) + half
	}
	if centered && raw >= centerLow && raw <= centerHigh {
		return levels >> 1
	}

	var left bool
	var valTot, perSide int
	if centered {
		left = raw < centerLow
		perSide = (levels - 1) >> 1
		if left {
			valTot = centerLow
		} else {
			valTot = m.maxRaw - centerHigh
		}
	} else {
		left = raw < (m.maxRaw+1)>>1
		perSide = levels >> 1
		valTot = (m.maxRaw + 1) >> 1
	}
	if valTot <= 0 || perSide <= 0 {
		if left {
			return 0
		}
		return levels - 1
	}

	d := raw
	if !left {
		d = m.maxRaw - raw
	}
	steps := stretchedSteps(d, valTot, perSide, m.stretch)

	level := steps
	if !left {
		level = (levels - 1) - steps
	}
	switch {
	case level == levels:
		level = levels - 1
	case level > levels || level < 0:
		level = 0
	}
	return level
}

// stretchedSteps returns how many whole levels fit into distance d on a side
// of valTot raw values split into perSide levels.
func stretchedSteps(d, valTot, perSide int, stretch uint8) int {
	total := float32(valTot)
	stdDiv := total / float32(perSide)
	scale := float32(1) + float32(stretch)/10
	inv := float32(1) / scale
	fd := float32(d)

	// Explicit conversions round every product so no fused multiply-add can
	// move a boundary by one raw unit.
	slope := float32((scale - inv) * fd)
	divisor := float32(stdDiv/scale) * (slope/total + inv)
	return int(fd / divisor)
}
