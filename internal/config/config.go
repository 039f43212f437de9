// Package config loads daemon settings from flags, KNOB_* environment
// variables and an optional config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/knob-sensor/internal/adc"
	"github.com/sweeney/knob-sensor/internal/gpio"
	"github.com/sweeney/knob-sensor/internal/logging"
	"github.com/sweeney/knob-sensor/internal/poti"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "KNOB"

// Stage selects how far down the pipeline the daemon reads.
type Stage string

const (
	StageSampler    Stage = "sampler"
	StageStabilizer Stage = "stabilizer"
	StageMapper     Stage = "mapper"
	StageCentered   Stage = "centered"
)

// ErrUnknownStage is returned for a stage name that is not one of the four.
var ErrUnknownStage = errors.New("unknown stage")

// Config is the complete daemon configuration.
type Config struct {
	Poll      time.Duration
	Heartbeat time.Duration

	Broker       string
	ClientID     string
	MQTTBuffer   int
	PublishRate  float64 // events per second, 0 = unlimited
	PublishBurst int

	HTTPAddr   string
	WSBroker   string
	PrintState bool

	ADCDevice string
	GPIOChip  string
	SwitchPin int // negative disables the push switch

	Stage    Stage
	Pipeline poti.Config

	Log logging.Config
}

// BuildFlagSet returns the daemon's flags with their defaults.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("knob-sensor", pflag.ContinueOnError)

	fs.String(ConfigFileKey, "", "Path to a config file (yaml, json or toml)")

	fs.Duration(PollKey, 10*time.Millisecond, "Pipeline polling interval")
	fs.Duration(HeartbeatKey, 15*time.Minute, "Heartbeat interval (0 to disable)")
	fs.String(BrokerKey, "tcp://192.168.1.200:1883", "MQTT broker address")
	fs.String(ClientIDKey, "knob-sensor", "MQTT client ID")
	fs.Int(BufferKey, 256, "Messages kept while the broker is unreachable")
	fs.Float64(PublishRateKey, 20, "Maximum knob events per second (0 for no limit)")
	fs.Int(PublishBurstKey, 5, "Knob events allowed in a burst above the rate")
	fs.String(HTTPKey, ":80", "HTTP status address (empty to disable)")
	fs.String(WSBrokerKey, "=broker", `MQTT websocket URL for browsers ("=broker" derives from --broker, "off" disables)`)
	fs.Bool(PrintStateKey, false, "Print the current reading and exit")

	fs.String(ADCDeviceKey, adc.DefaultDevice, "IIO device directory of the ADC")
	fs.String(GPIOChipKey, gpio.DefaultChip, "GPIO chip of the push switch")
	fs.Int(SwitchPinKey, gpio.PinSwitch, "Line offset of the push switch (negative to disable)")

	fs.String(StageKey, string(StageMapper), "Pipeline stage: sampler, stabilizer, mapper or centered")
	fs.Uint8(ChannelKey, adc.DefaultChannel, "ADC channel")
	fs.Uint8(CycleKey, 0, "Minimum milliseconds between reads")
	fs.Uint8(WeightKey, 4, "Weight of the previous value (0-12, 0 disables)")
	fs.Uint8(ExtraSamplesKey, 0, "Extra samples averaged per reading (0-7)")
	fs.Uint8(LevelsKey, 10, "Mapping levels (2-100, odd 3-101 when centered)")
	fs.Uint8(StretchKey, 0, "Resolution stretch towards the middle (0-20)")
	fs.Int(MaxRawKey, poti.DefaultMaxRawValue, "Highest raw sample of the ADC")
	fs.Uint8(CenterTolKey, 10, "Half width of the center dead zone (centered stage)")
	fs.Int(CenterKey, 0, "Raw value at the physical center (0 for max-raw/2)")

	fs.String(LogLevelKey, "info", "Log level: debug, info, warn or error")
	fs.String(LogFileKey, "", "Also log JSON to this file, rotated by size")

	return fs
}

// Load parses args and resolves the configuration.
func Load(args []string) (Config, error) {
	fs := BuildFlagSet()
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	v, err := newViper(fs)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

func newViper(fs *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if path := v.GetString(ConfigFileKey); path != "" {
		v.SetConfigFile(os.ExpandEnv(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return v, nil
}

// FromViper builds a Config from a populated viper instance.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		Poll:         v.GetDuration(PollKey),
		Heartbeat:    v.GetDuration(HeartbeatKey),
		Broker:       v.GetString(BrokerKey),
		ClientID:     v.GetString(ClientIDKey),
		MQTTBuffer:   v.GetInt(BufferKey),
		PublishRate:  v.GetFloat64(PublishRateKey),
		PublishBurst: v.GetInt(PublishBurstKey),
		HTTPAddr:     v.GetString(HTTPKey),
		PrintState:   v.GetBool(PrintStateKey),
		ADCDevice:    v.GetString(ADCDeviceKey),
		GPIOChip:     v.GetString(GPIOChipKey),
		SwitchPin:    v.GetInt(SwitchPinKey),
		Stage:        Stage(strings.ToLower(v.GetString(StageKey))),
		Log: logging.Config{
			Level:      v.GetString(LogLevelKey),
			File:       v.GetString(LogFileKey),
			MaxSizeMB:  logging.DefaultConfig().MaxSizeMB,
			MaxBackups: logging.DefaultConfig().MaxBackups,
			MaxAgeDays: logging.DefaultConfig().MaxAgeDays,
		},
	}

	if c.Poll <= 0 {
		return Config{}, fmt.Errorf("%s must be positive, got %v", PollKey, c.Poll)
	}
	if c.Heartbeat < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %v", HeartbeatKey, c.Heartbeat)
	}
	if c.PublishRate < 0 {
		return Config{}, fmt.Errorf("%s must not be negative, got %v", PublishRateKey, c.PublishRate)
	}
	if c.PublishBurst < 1 {
		c.PublishBurst = 1
	}
	switch c.Stage {
	case StageSampler, StageStabilizer, StageMapper, StageCentered:
	default:
		return Config{}, fmt.Errorf("%w %q", ErrUnknownStage, c.Stage)
	}

	var err error
	p := &c.Pipeline
	if p.Channel, err = getUint8(v, ChannelKey); err != nil {
		return Config{}, err
	}
	if p.CycleMillis, err = getUint8(v, CycleKey); err != nil {
		return Config{}, err
	}
	if p.WeightPrev, err = getUint8(v, WeightKey); err != nil {
		return Config{}, err
	}
	if p.ExtraSamples, err = getUint8(v, ExtraSamplesKey); err != nil {
		return Config{}, err
	}
	if p.Levels, err = getUint8(v, LevelsKey); err != nil {
		return Config{}, err
	}
	if p.Stretch, err = getUint8(v, StretchKey); err != nil {
		return Config{}, err
	}
	if p.CenterTolerance, err = getUint8(v, CenterTolKey); err != nil {
		return Config{}, err
	}
	p.MaxRawValue = v.GetInt(MaxRawKey)
	p.CenterValue = v.GetInt(CenterKey)
	if p.MaxRawValue < 0 || p.CenterValue < 0 {
		return Config{}, fmt.Errorf("%s and %s must not be negative", MaxRawKey, CenterKey)
	}

	c.WSBroker, err = ResolveWSBroker(v.GetString(WSBrokerKey), c.Broker)
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

// getUint8 reads key as an integer and rejects values outside 0-255. Flags
// already enforce this; env and file values are strings until read here.
func getUint8(v *viper.Viper, key string) (uint8, error) {
	n := v.GetInt(key)
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("%s out of range 0-255: %d", key, n)
	}
	return uint8(n), nil
}

// ResolveWSBroker converts the ws-broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" and
// empty disable it.
func ResolveWSBroker(ws, broker string) (string, error) {
	if ws == "off" || ws == "" {
		return "", nil
	}
	if ws != "=broker" {
		return ws, nil
	}
	u, err := url.Parse(broker)
	if err != nil {
		return "", fmt.Errorf("ws-broker: cannot parse broker %q: %w", broker, err)
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String(), nil
}
