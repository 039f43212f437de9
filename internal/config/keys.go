package config

// Flag, config file and environment keys. The environment name is the key
// upper-cased with dashes replaced by underscores and a KNOB_ prefix, e.g.
// KNOB_POLL or KNOB_EXTRA_SAMPLES.
const (
	ConfigFileKey = "config"

	PollKey         = "poll"
	HeartbeatKey    = "heartbeat"
	BrokerKey       = "broker"
	ClientIDKey     = "client-id"
	BufferKey       = "mqtt-buffer"
	PublishRateKey  = "publish-rate"
	PublishBurstKey = "publish-burst"
	HTTPKey         = "http"
	WSBrokerKey     = "ws-broker"
	PrintStateKey   = "print-state"

	ADCDeviceKey = "adc-device"
	GPIOChipKey  = "gpio-chip"
	SwitchPinKey = "switch-pin"

	StageKey        = "stage"
	ChannelKey      = "channel"
	CycleKey        = "cycle"
	WeightKey       = "weight"
	ExtraSamplesKey = "extra-samples"
	LevelsKey       = "levels"
	StretchKey      = "stretch"
	MaxRawKey       = "max-raw"
	CenterTolKey    = "center-tol"
	CenterKey       = "center"

	LogLevelKey = "log-level"
	LogFileKey  = "log-file"
)
