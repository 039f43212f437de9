// Package metrics exposes prometheus collectors for the knob-sensor daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/sweeney/knob-sensor/internal/knob"
)

const namespace = "knob"

// Metrics holds the daemon collectors. All methods are safe for concurrent
// use.
type Metrics struct {
	polls,
	initial,
	changes,
	resets,
	readErrors,
	publishErrors,
	throttled,
	heartbeats prometheus.Counter

	value,
	level,
	mqttConnected prometheus.Gauge
}

func newCounter(name, help string) prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	})
}

// New creates the collectors and registers them with registerer.
func New(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		polls:         newCounter("polls_total", "# of pipeline polls"),
		initial:       newCounter("initial_total", "# of KNOB_INITIAL events"),
		changes:       newCounter("changes_total", "# of KNOB_CHANGED events"),
		resets:        newCounter("resets_total", "# of KNOB_RESET events"),
		readErrors:    newCounter("read_errors_total", "# of failed ADC reads"),
		publishErrors: newCounter("publish_errors_total", "# of events that could not be handed to MQTT"),
		throttled:     newCounter("throttled_total", "# of events superseded while rate limited"),
		heartbeats:    newCounter("heartbeats_total", "# of heartbeats published"),
		value:         newGauge("value", "last reported raw value, -1 if undefined"),
		level:         newGauge("level", "last reported level, -1 if undefined or unmapped"),
		mqttConnected: newGauge("mqtt_connected", "1 if the MQTT client is connected"),
	}
	m.value.Set(-1)
	m.level.Set(-1)

	err := multierr.Combine(
		registerer.Register(m.polls),
		registerer.Register(m.initial),
		registerer.Register(m.changes),
		registerer.Register(m.resets),
		registerer.Register(m.readErrors),
		registerer.Register(m.publishErrors),
		registerer.Register(m.throttled),
		registerer.Register(m.heartbeats),
		registerer.Register(m.value),
		registerer.Register(m.level),
		registerer.Register(m.mqttConnected),
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Poll counts one pipeline poll.
func (m *Metrics) Poll() { m.polls.Inc() }

// Event counts e by type and updates the value and level gauges.
func (m *Metrics) Event(e knob.Event) {
	switch e.Type {
	case knob.EventInitial:
		m.initial.Inc()
	case knob.EventChanged:
		m.changes.Inc()
	case knob.EventReset:
		m.resets.Inc()
	}
	m.observe(e.Reading)
}

func (m *Metrics) observe(r knob.Reading) {
	if knob.ValueDefined(r.Value) {
		m.value.Set(float64(r.Value))
	} else {
		m.value.Set(-1)
	}
	if r.Levels > 0 && knob.LevelDefined(r.Level) {
		m.level.Set(float64(r.Level))
	} else {
		m.level.Set(-1)
	}
}

// ReadErrors adds n failed reads.
func (m *Metrics) ReadErrors(n uint64) { m.readErrors.Add(float64(n)) }

// PublishError counts an event that was dropped on the way to MQTT.
func (m *Metrics) PublishError() { m.publishErrors.Inc() }

// Throttled counts an event replaced by a newer one before it was published.
func (m *Metrics) Throttled() { m.throttled.Inc() }

// Heartbeat counts a published heartbeat.
func (m *Metrics) Heartbeat() { m.heartbeats.Inc() }

// SetMQTTConnected records the MQTT connection state.
func (m *Metrics) SetMQTTConnected(connected bool) {
	if connected {
		m.mqttConnected.Set(1)
		return
	}
	m.mqttConnected.Set(0)
}
