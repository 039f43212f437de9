package main

import (
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sweeney/knob-sensor/internal/gpio"
	"github.com/sweeney/knob-sensor/internal/knob"
	"github.com/sweeney/knob-sensor/internal/metrics"
	"github.com/sweeney/knob-sensor/internal/mqtt"
	"github.com/sweeney/knob-sensor/internal/status"
)

// errorCounter reports the running total of failed ADC reads.
type errorCounter interface {
	Errors() uint64
}

// broadcaster receives every knob payload for live clients.
type broadcaster interface {
	Broadcast(msg []byte)
}

// loop owns the pipeline. Everything except watcher and publisher is
// optional.
type loop struct {
	watcher     *knob.Watcher
	source      errorCounter
	button      gpio.Reader
	publisher   mqtt.Publisher
	mqttStatus  mqtt.ConnectionStatus
	tracker     *status.Tracker
	metrics     *metrics.Metrics
	live        broadcaster
	limiter     *rate.Limiter // nil publishes every change
	heartbeat   time.Duration
	refreshHost func()
	now         func() time.Time
	log         *zap.Logger

	edge        gpio.Edge
	buttonErr   bool
	pending     *knob.Event // newest change held back by the limiter
	readErrors  uint64
	lastErrSeen uint64
}

func (l *loop) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	if l.log == nil {
		l.log = zap.NewNop()
	}
	for {
		select {
		case s := <-sig:
			l.shutdown(s)
			return nil
		case <-tick:
			l.step(l.now())
		}
	}
}

func (l *loop) step(t time.Time) {
	if l.metrics != nil {
		l.metrics.Poll()
	}

	l.pollButton(t)

	if ev := l.watcher.Poll(t); ev != nil {
		l.emit(*ev, t)
	}
	l.flush(t, false)

	l.countReadErrors()

	if hb := l.watcher.CheckHeartbeat(t, l.heartbeat); hb != nil {
		l.publishHeartbeat(hb)
	}

	l.updateTracker()
}

// pollButton resets the pipeline on a press. Read errors are logged once per
// outage.
func (l *loop) pollButton(t time.Time) {
	if l.button == nil {
		return
	}
	pressed, err := l.button.Pressed()
	if err != nil {
		if !l.buttonErr {
			l.log.Warn("push switch read error", zap.Error(err))
			l.buttonErr = true
		}
		return
	}
	l.buttonErr = false
	if !l.edge.Rising(pressed) {
		return
	}
	l.log.Info("push switch pressed, resetting pipeline")
	l.emit(l.watcher.Reset(t), t)
}

// emit logs and counts ev, hands it to live clients and publishes it.
// Only KNOB_CHANGED is subject to the rate limit; the newest held-back change
// replaces any older one.
func (l *loop) emit(ev knob.Event, t time.Time) {
	r := ev.Reading
	l.log.Info("event",
		zap.String("type", string(ev.Type)),
		zap.Int("value", r.Value),
		zap.Int("prev_value", r.PrevValue),
		zap.Int("level", r.Level),
	)
	if l.metrics != nil {
		l.metrics.Event(ev)
	}
	if l.live != nil {
		if payload, err := mqtt.FormatPayload(ev); err == nil {
			l.live.Broadcast(payload)
		}
	}

	if ev.Type != knob.EventChanged {
		// Initial and reset supersede anything held back.
		l.dropPending()
		l.publish(ev)
		return
	}
	if l.limiter == nil || l.limiter.AllowN(t, 1) {
		l.dropPending()
		l.publish(ev)
		return
	}
	if l.pending != nil && l.metrics != nil {
		l.metrics.Throttled()
	}
	l.pending = &ev
}

// flush publishes a held-back change once the limiter allows it, or
// unconditionally when force is set.
func (l *loop) flush(t time.Time, force bool) {
	if l.pending == nil {
		return
	}
	if !force && !l.limiter.AllowN(t, 1) {
		return
	}
	ev := *l.pending
	l.pending = nil
	l.publish(ev)
}

func (l *loop) dropPending() {
	if l.pending != nil {
		if l.metrics != nil {
			l.metrics.Throttled()
		}
		l.pending = nil
	}
}

func (l *loop) publish(ev knob.Event) {
	if err := l.publisher.Publish(ev); err != nil {
		// Don't crash on publish failure
		l.log.Warn("publish error", zap.String("type", string(ev.Type)), zap.Error(err))
		if l.metrics != nil {
			l.metrics.PublishError()
		}
	}
}

func (l *loop) countReadErrors() {
	if l.source == nil {
		return
	}
	total := l.source.Errors()
	if total > l.lastErrSeen {
		if l.metrics != nil {
			l.metrics.ReadErrors(total - l.lastErrSeen)
		}
		l.lastErrSeen = total
	}
	l.readErrors = total
}

func (l *loop) publishHeartbeat(hb *knob.HeartbeatData) {
	l.log.Info("heartbeat",
		zap.Duration("uptime", hb.Uptime),
		zap.Int("initial", hb.Counts.Initial),
		zap.Int("changed", hb.Counts.Changed),
		zap.Int("reset", hb.Counts.Reset),
		zap.Uint64("read_errors", l.readErrors),
	)
	if l.refreshHost != nil {
		l.refreshHost()
	}
	event := mqtt.SystemEvent{
		Timestamp: hb.Timestamp,
		Event:     "HEARTBEAT",
		Heartbeat: &mqtt.HeartbeatInfo{
			UptimeSeconds: int64(hb.Uptime.Seconds()),
			Counts:        mqtt.NewCountsJSON(hb.Counts),
			ReadErrors:    l.readErrors,
			Knob:          hb.Reading.JSON(),
		},
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.Warn("heartbeat publish error", zap.Error(err))
		return
	}
	if l.metrics != nil {
		l.metrics.Heartbeat()
	}
}

func (l *loop) updateTracker() {
	connected := l.mqttStatus != nil && l.mqttStatus.IsConnected()
	if l.metrics != nil {
		l.metrics.SetMQTTConnected(connected)
	}
	if l.tracker == nil {
		return
	}
	l.tracker.Update(l.watcher.Reading(), l.watcher.IsInitialized(), l.watcher.Counts(), l.readErrors)
	if l.mqttStatus != nil {
		l.tracker.SetMQTTConnected(connected)
	}
}

func (l *loop) shutdown(s os.Signal) {
	l.log.Info("shutting down", zap.Stringer("signal", s))
	l.flush(l.now(), true)

	signalName := "UNKNOWN"
	if s == syscall.SIGINT {
		signalName = "SIGINT"
	} else if s == syscall.SIGTERM {
		signalName = "SIGTERM"
	}
	event := mqtt.SystemEvent{
		Timestamp: l.now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if l.tracker != nil {
		l.updateTracker()
		event.RawPayload = status.FormatStatusEvent(l.tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := l.publisher.PublishSystem(event); err != nil {
		l.log.Warn("failed to publish shutdown event", zap.Error(err))
	} else {
		l.log.Info("published shutdown event")
	}
}
