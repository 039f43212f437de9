package poti

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCenteredMapper_Construction(t *testing.T) {
	tests := []struct {
		name              string
		cfg               Config
		wantLevels        int
		wantLow, wantHigh int
		wantMaxRaw        int
	}{
		{"explicit center", Config{Levels: 25, CenterTolerance: 81, CenterValue: 512}, 25, 431, 593, 1023},
		{"derived center", Config{Levels: 5, CenterTolerance: 20}, 5, 491, 531, 1023},
		{"minimum tolerance", Config{Levels: 3, CenterTolerance: 2, CenterValue: 600}, 3, 590, 610, 1023},
		{"even levels", Config{Levels: 4, CenterTolerance: 10}, 5, 501, 521, 1023},
		{"too few levels", Config{Levels: 0, CenterTolerance: 10}, 3, 501, 521, 1023},
		{"12 bit", Config{Levels: 101, CenterTolerance: 50, MaxRawValue: 4096}, 101, 1997, 2097, 4095},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCenteredMapper(&fakeSource{}, newFakeClock().Now, tt.cfg)
			require.Equal(t, tt.wantLevels, c.Levels())
			require.Equal(t, tt.wantLow, c.CenterLow())
			require.Equal(t, tt.wantHigh, c.CenterHigh())
			require.Equal(t, tt.wantMaxRaw, c.Mapper().MaxRawValue())
		})
	}
}

func TestCenteredMapper_SetLevels(t *testing.T) {
	c := NewCenteredMapper(&fakeSource{}, newFakeClock().Now, Config{Levels: 25})
	tests := []struct {
		in   uint8
		want int
	}{
		{20, 21},
		{1, 3},
		{102, 101},
		{100, 101},
		{255, 101},
		{25, 25},
	}
	for _, tt := range tests {
		c.SetLevels(tt.in)
		require.Equal(t, tt.want, c.Levels(), "SetLevels(%d)", tt.in)
	}
}

func TestCenteredMapper_CenteredValues(t *testing.T) {
	src := &fakeSource{}
	c := NewCenteredMapper(src, newFakeClock().Now, Config{Levels: 25, CenterTolerance: 81, CenterValue: 512})

	require.Equal(t, ValueUndefined, c.Value())
	require.Equal(t, ValueUndefined, c.CenteredValue())
	require.Equal(t, ValueUndefined, c.PrevValue())
	require.Equal(t, ValueUndefined, c.CenteredPrevValue())

	src.raw = 10
	require.Equal(t, ValueUndefined, c.Value(), "nothing moves before a poll")
	require.True(t, c.Changed())
	require.Equal(t, 10, c.Value())
	require.Equal(t, -421, c.CenteredValue())
	require.Equal(t, ValueUndefined, c.PrevValue())
	require.Equal(t, ValueUndefined, c.CenteredPrevValue())
	require.False(t, c.Changed())

	src.raw = 1023
	require.True(t, c.Changed())
	require.Equal(t, 1023, c.Value())
	require.Equal(t, 430, c.CenteredValue())
	require.Equal(t, 10, c.PrevValue())
	require.Equal(t, -421, c.CenteredPrevValue())
	require.False(t, c.Changed())

	c.Reset()
	require.Equal(t, ValueUndefined, c.CenteredValue())
	require.Equal(t, ValueUndefined, c.CenteredPrevValue())
	require.Equal(t, 431, c.CenterLow(), "center band survives reset")

	src.raw = 100
	require.True(t, c.Changed())
	require.Equal(t, 100, c.Value())
	require.Equal(t, -331, c.CenteredValue())
	require.Equal(t, ValueUndefined, c.CenteredPrevValue())
}

func TestCenteredMapper_CenteredLevels(t *testing.T) {
	src := &fakeSource{}
	c := NewCenteredMapper(src, newFakeClock().Now, Config{Levels: 25, CenterTolerance: 81, CenterValue: 512})

	require.Equal(t, LevelUndefined, c.Level())
	require.Equal(t, LevelUndefined, c.CenteredLevel())
	require.Equal(t, LevelUndefined, c.PrevLevel())
	require.Equal(t, LevelUndefined, c.CenteredPrevLevel())

	steps := []struct {
		raw                 int
		level, centered     int
		prevLevel, prevCent int
	}{
		{0, 0, -12, LevelUndefined, LevelUndefined},
		{1023, 24, 12, 0, -12},
		{511, 12, 0, 24, 12},
	}
	for _, s := range steps {
		src.raw = s.raw
		require.True(t, c.Changed(), "raw %d", s.raw)
		require.Equal(t, s.level, c.Level(), "raw %d", s.raw)
		require.Equal(t, s.centered, c.CenteredLevel(), "raw %d", s.raw)
		require.Equal(t, s.prevLevel, c.PrevLevel(), "raw %d", s.raw)
		require.Equal(t, s.prevCent, c.CenteredPrevLevel(), "raw %d", s.raw)
	}
}

func TestCenteredMapper_FiveLevels(t *testing.T) {
	src := &fakeSource{}
	c := NewCenteredMapper(src, newFakeClock().Now, Config{Levels: 5, CenterTolerance: 102, CenterValue: 512})
	require.Equal(t, 410, c.CenterLow())
	require.Equal(t, 614, c.CenterHigh())

	steps := []struct {
		raw                int
		changed            bool
		value, level       int
		centVal, centLevel int
	}{
		{0, true, 0, 0, -410, -2},
		{204, false, 0, 0, -410, -2},
		{205, true, 205, 1, -205, -1},
		{409, false, 205, 1, -205, -1},
		{410, true, 410, 2, 0, 0},
		{614, false, 410, 2, 0, 0},
		{615, true, 615, 3, 1, 1},
		{818, false, 615, 3, 1, 1},
		{819, true, 819, 4, 205, 2},
		{1023, false, 819, 4, 205, 2},
	}
	for _, s := range steps {
		src.raw = s.raw
		require.Equal(t, s.changed, c.Changed(), "raw %d", s.raw)
		require.Equal(t, s.value, c.Value(), "raw %d", s.raw)
		require.Equal(t, s.level, c.Level(), "raw %d", s.raw)
		require.Equal(t, s.centVal, c.CenteredValue(), "raw %d", s.raw)
		require.Equal(t, s.centLevel, c.CenteredLevel(), "raw %d", s.raw)
	}
}

func TestCenteredMapper_LevelStarts(t *testing.T) {
	tests := []struct {
		name      string
		levels    uint8
		stretch   uint8
		maxRaw    int
		low, high int
		want      []int
	}{
		{"5 levels", 5, 0, 1023, 410, 614, []int{0, 205, 410, 615, 819}},
		{"25 levels", 25, 0, 1023, 492, 532, []int{
			0, 41, 82, 123, 164, 205, 246, 287, 328, 369, 410, 451,
			492,
			533, 573, 614, 655, 696, 737, 778, 819, 860, 901, 942, 983,
		}},
		{"25 levels 12 bit", 25, 0, 4095, 1966, 2129, []int{
			0, 164, 328, 492, 656, 820, 983, 1147, 1311, 1475, 1639, 1803,
			1966,
			2130, 2293, 2457, 2621, 2785, 2949, 3113, 3276, 3440, 3604, 3768, 3932,
		}},
		{"15 levels stretch 10", 15, 10, 1023, 444, 580, []int{
			0, 18, 41, 71, 111, 171, 267,
			444,
			581, 758, 853, 913, 954, 983, 1006,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeSource{}
			c := NewCenteredMapper(src, newFakeClock().Now, Config{
				Levels:      tt.levels,
				Stretch:     tt.stretch,
				MaxRawValue: tt.maxRaw,
			})
			require.Equal(t, tt.low, c.SetCenterLow(tt.low))
			require.Equal(t, tt.high, c.SetCenterHigh(tt.high))

			starts, ok := sweepUp(c, src, 0, tt.maxRaw)
			require.True(t, ok, "levels must rise one at a time")
			require.Equal(t, tt.want, starts)

			last := tt.want[len(tt.want)-1]
			require.Equal(t, last-tt.high, c.CenteredValue())
			require.Equal(t, int(tt.levels)/2, c.CenteredLevel())
		})
	}
}

func TestCenteredMapper_CenterBandIsLevelZero(t *testing.T) {
	src := &fakeSource{}
	c := NewCenteredMapper(src, newFakeClock().Now, Config{Levels: 11, CenterTolerance: 30, CenterValue: 500})

	for _, raw := range []int{470, 485, 500, 515, 530} {
		c.Reset()
		src.raw = raw
		require.True(t, c.Changed())
		require.Equal(t, 0, c.CenteredLevel(), "raw %d", raw)
		require.Equal(t, 0, c.CenteredValue(), "raw %d", raw)
	}

	c.Reset()
	src.raw = 469
	require.True(t, c.Changed())
	require.Equal(t, -1, c.CenteredLevel())
	require.Equal(t, -1, c.CenteredValue())

	c.Reset()
	src.raw = 531
	require.True(t, c.Changed())
	require.Equal(t, 1, c.CenteredLevel())
	require.Equal(t, 1, c.CenteredValue())
}

func TestCenteredMapper_Access(t *testing.T) {
	c := NewCenteredMapper(&fakeSource{}, newFakeClock().Now, Config{Levels: 7, Stretch: 4, WeightPrev: 6})
	require.Equal(t, uint8(4), c.Mapper().Stretch())
	require.Equal(t, uint8(6), c.Stabilizer().WeightPrev())
}

func TestCenteredMapper_LevelsStayOdd(t *testing.T) {
	c := NewCenteredMapper(&fakeSource{}, newFakeClock().Now, Config{Levels: 5})
	setters := map[string]func(uint8){
		"CenteredMapper": c.SetLevels,
		"Mapper":         c.Mapper().SetLevels,
	}
	for name, set := range setters {
		for _, n := range []uint8{0, 1, 2, 4, 10, 99, 100, 200, 255} {
			set(n)
			require.Equal(t, 1, c.Levels()%2, "%s.SetLevels(%d) gave %d", name, n, c.Levels())
			require.Equal(t, c.Levels(), c.Mapper().Levels())
		}
	}

	c.Mapper().SetLevels(4)
	require.Equal(t, 5, c.Levels())
}

func TestCenteredMapper_EvenRequestThroughMapper(t *testing.T) {
	src := &fakeSource{}
	c := NewCenteredMapper(src, newFakeClock().Now, Config{Levels: 5, CenterTolerance: 102, CenterValue: 512})
	c.Mapper().SetLevels(4)

	// Same boundaries as a CenteredMapper built with 5 levels.
	starts, ok := sweepUp(c, src, 0, 1023)
	require.True(t, ok)
	require.Equal(t, []int{0, 205, 410, 615, 819}, starts)
	require.Equal(t, 2, c.CenteredLevel())
}

func TestMapper_PlainMapperKeepsEvenLevels(t *testing.T) {
	m := NewMapper(&fakeSource{}, newFakeClock().Now, Config{Levels: 5})
	m.SetLevels(4)
	require.Equal(t, 4, m.Levels())
}
