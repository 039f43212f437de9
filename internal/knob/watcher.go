package knob

import "time"

// Pipeline is the part of every poti stage the Watcher needs.
type Pipeline interface {
	Changed() bool
	Value() int
	PrevValue() int
	Reset()
}

// leveled is implemented by poti.Mapper and poti.CenteredMapper.
type leveled interface {
	Levels() int
	Level() int
	PrevLevel() int
}

// centered is implemented by poti.CenteredMapper.
type centered interface {
	CenteredValue() int
	CenteredPrevValue() int
	CenteredLevel() int
	CenteredPrevLevel() int
}

// Watcher polls a pipeline and emits events for its changes.
type Watcher struct {
	pipeline      Pipeline
	startTime     time.Time
	initialized   bool
	eventCounts   EventCounts
	lastHeartbeat time.Time
	reading       Reading
}

// NewWatcher creates a watcher for p.
// The startTime is used for calculating uptime in heartbeat events.
func NewWatcher(p Pipeline, startTime time.Time) *Watcher {
	return &Watcher{
		pipeline:      p,
		startTime:     startTime,
		lastHeartbeat: startTime,
		reading:       UndefinedReading(),
	}
}

// Poll runs one pipeline step. It returns an event when the pipeline reports
// a change and nil otherwise.
func (w *Watcher) Poll(now time.Time) *Event {
	if !w.pipeline.Changed() {
		return nil
	}

	w.reading = w.read()
	typ := EventChanged
	if !w.initialized {
		typ = EventInitial
		w.initialized = true
	}
	w.count(typ)

	return &Event{Timestamp: now, Type: typ, Reading: w.reading}
}

// Reset resets the pipeline and returns the matching event. The next change
// is reported as EventInitial again.
func (w *Watcher) Reset(now time.Time) Event {
	w.pipeline.Reset()
	w.initialized = false
	w.reading = w.read()
	w.count(EventReset)
	return Event{Timestamp: now, Type: EventReset, Reading: w.reading}
}

func (w *Watcher) count(t EventType) {
	switch t {
	case EventInitial:
		w.eventCounts.Initial++
	case EventChanged:
		w.eventCounts.Changed++
	case EventReset:
		w.eventCounts.Reset++
	}
}

// read collects every accessor the pipeline offers.
func (w *Watcher) read() Reading {
	r := UndefinedReading()
	r.Value = w.pipeline.Value()
	r.PrevValue = w.pipeline.PrevValue()

	if l, ok := w.pipeline.(leveled); ok {
		r.Levels = l.Levels()
		r.Level = l.Level()
		r.PrevLevel = l.PrevLevel()
	}
	if c, ok := w.pipeline.(centered); ok {
		r.Centered = true
		r.CenteredValue = c.CenteredValue()
		r.CenteredPrevValue = c.CenteredPrevValue()
		r.CenteredLevel = c.CenteredLevel()
		r.CenteredPrevLevel = c.CenteredPrevLevel()
	}
	return r
}

// IsInitialized returns whether a change has been seen since startup or the
// last reset.
func (w *Watcher) IsInitialized() bool {
	return w.initialized
}

// Reading returns the reading taken at the last event.
func (w *Watcher) Reading() Reading {
	return w.reading
}

// Counts returns the event counts since startup.
func (w *Watcher) Counts() EventCounts {
	return w.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if not yet initialized, if the
// interval has not elapsed, or if interval is <= 0 (disabled).
func (w *Watcher) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if !w.initialized {
		return nil
	}

	if now.Sub(w.lastHeartbeat) < interval {
		return nil
	}

	w.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(w.startTime),
		Counts:    w.eventCounts,
		Reading:   w.reading,
	}
}
