package poti

// CenteredMapper maps a knob with a physical center position, such as a
// balance or tone control, to signed levels -x..0..+x with x = (Levels()-1)/2.
// The center band [CenterLow(), CenterHigh()] always maps to level 0 and
// centered value 0.
type CenteredMapper struct {
	m *Mapper

	centerLow  int
	centerHigh int
}

// NewCenteredMapper creates a CenteredMapper on top of a new Mapper. The
// center band is derived from the configured MaxRawValue once, at
// construction.
func NewCenteredMapper(source Source, clock Clock, cfg Config) *CenteredMapper {
	c := &CenteredMapper{m: NewMapper(source, clock, cfg)}
	c.m.odd = true
	c.SetLevels(cfg.Levels)

	tol := int(cfg.CenterTolerance)
	if tol < MinCenterTol {
		tol = MinCenterTol
	}
	center := cfg.CenterValue
	if center == 0 {
		center = c.m.maxRaw >> 1
	}
	c.centerLow = center - tol
	c.centerHigh = center + tol
	return c
}

// Changed computes a stabilized sample and reports whether its level differs
// from the current level.
func (c *CenteredMapper) Changed() bool {
	st := c.m.st
	last := st.smoothed
	raw := st.stabilized()
	if raw == ValueUndefined || raw == last {
		return false
	}
	return c.m.commit(raw, c.m.mapLevel(raw, c.centerLow, c.centerHigh))
}

// CenteredValue returns the distance of Value() from the center band: negative
// below it, positive above it and 0 inside it. ValueUndefined passes through.
func (c *CenteredMapper) CenteredValue() int {
	return c.centered(c.m.Value())
}

// CenteredPrevValue is CenteredValue for PrevValue().
func (c *CenteredMapper) CenteredPrevValue() int {
	return c.centered(c.m.PrevValue())
}

// CenteredLevel returns Level() shifted so the center level is 0.
// LevelUndefined passes through.
func (c *CenteredMapper) CenteredLevel() int {
	return c.centeredLevel(c.m.Level())
}

// CenteredPrevLevel is CenteredLevel for PrevLevel().
func (c *CenteredMapper) CenteredPrevLevel() int {
	return c.centeredLevel(c.m.PrevLevel())
}

func (c *CenteredMapper) centered(v int) int {
	switch {
	case v == ValueUndefined:
		return ValueUndefined
	case v < c.centerLow:
		return v - c.centerLow
	case v > c.centerHigh:
		return v - c.centerHigh
	}
	return 0
}

func (c *CenteredMapper) centeredLevel(l int) int {
	if l == LevelUndefined {
		return LevelUndefined
	}
	return l - c.m.levels>>1
}

// Value returns the stabilized value that caused the current level.
func (c *CenteredMapper) Value() int { return c.m.Value() }

// PrevValue returns the stabilized value that caused the previous level.
func (c *CenteredMapper) PrevValue() int { return c.m.PrevValue() }

// Level returns the uncentered level in [0, Levels()-1] or LevelUndefined.
func (c *CenteredMapper) Level() int { return c.m.Level() }

// PrevLevel returns the uncentered previous level or LevelUndefined.
func (c *CenteredMapper) PrevLevel() int { return c.m.PrevLevel() }

// Levels returns the number of levels. It is always odd.
func (c *CenteredMapper) Levels() int { return c.m.Levels() }

// SetLevels sets the number of levels, clamped to 3-101. Even counts are
// incremented.
func (c *CenteredMapper) SetLevels(n uint8) {
	c.m.SetLevels(n)
}

// CenterLow returns the lowest raw value of the center band.
func (c *CenteredMapper) CenterLow() int { return c.centerLow }

// CenterHigh returns the highest raw value of the center band.
func (c *CenteredMapper) CenterHigh() int { return c.centerHigh }

// SetCenterLow moves the lower edge of the center band and returns it.
// The value is not validated.
func (c *CenteredMapper) SetCenterLow(v int) int {
	c.centerLow = v
	return c.centerLow
}

// SetCenterHigh moves the upper edge of the center band and returns it.
// The value is not validated.
func (c *CenteredMapper) SetCenterHigh(v int) int {
	c.centerHigh = v
	return c.centerHigh
}

// Mapper returns the stage below for tuning stretch and the raw range. Its
// SetLevels keeps the count odd.
func (c *CenteredMapper) Mapper() *Mapper { return c.m }

// Stabilizer returns the smoothing stage for tuning its parameters.
func (c *CenteredMapper) Stabilizer() *Stabilizer { return c.m.st }

// Reset restores the state directly after construction. Configuration,
// including the center band, is kept.
func (c *CenteredMapper) Reset() { c.m.Reset() }
