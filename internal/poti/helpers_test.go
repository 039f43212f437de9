package poti

// fakeSource returns a settable raw value and counts reads.
type fakeSource struct {
	raw   int
	reads int
}

func (f *fakeSource) Sample(channel uint8) int {
	f.reads++
	return f.raw
}

// fakeClock starts at a nonzero time; a lastRead of 0 means "never read".
type fakeClock struct {
	now uint32
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: 1000}
}

func (c *fakeClock) Now() uint32 {
	return c.now
}

func (c *fakeClock) Advance(ms uint32) {
	c.now += ms
}

// levelStage is the part of Mapper and CenteredMapper the sweeps need.
type levelStage interface {
	Changed() bool
	Value() int
	Level() int
	PrevLevel() int
}

// sweepUp feeds from..to in ascending order and returns the raw values at
// which a level change was reported. It fails if the level does not grow by
// exactly one per change.
func sweepUp(p levelStage, src *fakeSource, from, to int) (starts []int, ok bool) {
	ok = true
	for raw := from; raw <= to; raw++ {
		src.raw = raw
		if !p.Changed() {
			continue
		}
		if p.Level() != len(starts) || p.Value() != raw {
			ok = false
		}
		starts = append(starts, raw)
	}
	return starts, ok
}
