// Command knob-sensor smooths a potentiometer on an ADC channel and publishes
// its changes to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sweeney/knob-sensor/internal/adc"
	"github.com/sweeney/knob-sensor/internal/config"
	"github.com/sweeney/knob-sensor/internal/gpio"
	"github.com/sweeney/knob-sensor/internal/knob"
	"github.com/sweeney/knob-sensor/internal/logging"
	"github.com/sweeney/knob-sensor/internal/metrics"
	"github.com/sweeney/knob-sensor/internal/mqtt"
	"github.com/sweeney/knob-sensor/internal/poti"
	"github.com/sweeney/knob-sensor/internal/status"
	"github.com/sweeney/knob-sensor/internal/web"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	log, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		os.Exit(2)
	}
	defer closeLog()

	if err := run(cfg, log); err != nil {
		log.Error("fatal", zap.Error(err))
		closeLog()
		os.Exit(1)
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	adcReader, err := adc.NewIIOReader(cfg.ADCDevice)
	if err != nil {
		return fmt.Errorf("init adc: %w", err)
	}
	defer adcReader.Close()

	source := adc.NewSource(adcReader, log.Named("adc"))
	pipeline, err := buildPipeline(cfg.Stage, source, poti.SystemClock(), cfg.Pipeline)
	if err != nil {
		return err
	}

	if cfg.PrintState {
		return printState(os.Stdout, pipeline, time.Millisecond)
	}

	button := openButton(cfg, log)
	if button != nil {
		defer button.Close()
	}

	publisher, err := mqtt.NewRealPublisher(mqtt.Options{
		Broker:     cfg.Broker,
		ClientID:   cfg.ClientID,
		BufferSize: cfg.MQTTBuffer,
		Logger:     log.Named("mqtt"),
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := metrics.New(reg)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg, pipeline))
	refreshHost := hostRefresher(tracker, log)
	refreshHost()
	tracker.SetMQTTConnected(publisher.IsConnected())

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Warn("failed to publish startup event", zap.Error(err))
	} else {
		log.Info("published startup event")
	}

	var srv *web.Server
	if cfg.HTTPAddr != "" {
		srv = web.New(cfg.HTTPAddr, tracker, web.Options{Gatherer: reg, Logger: log.Named("web")})
	}

	var limiter *rate.Limiter
	if cfg.PublishRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.PublishRate), cfg.PublishBurst)
	}

	l := &loop{
		watcher:     knob.NewWatcher(pipeline, time.Now()),
		source:      source,
		button:      button,
		publisher:   publisher,
		mqttStatus:  publisher,
		tracker:     tracker,
		metrics:     m,
		limiter:     limiter,
		heartbeat:   cfg.Heartbeat,
		refreshHost: refreshHost,
		now:         time.Now,
		log:         log,
	}
	if srv != nil {
		l.live = srv.Hub()
	}

	log.Info("started",
		zap.Duration("poll", cfg.Poll),
		zap.String("stage", string(cfg.Stage)),
		zap.String("broker", cfg.Broker),
		zap.Duration("heartbeat", cfg.Heartbeat),
		zap.String("adc", cfg.ADCDevice),
		zap.Uint8("channel", cfg.Pipeline.Channel),
	)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var g errgroup.Group
	if srv != nil {
		g.Go(func() error {
			log.Info("http status server listening", zap.String("addr", cfg.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				// The knob keeps publishing without the status page.
				log.Error("http server error", zap.Error(err))
			}
			return nil
		})
	}
	g.Go(func() error {
		err := l.run(ticker.C, sigCh)
		if srv != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if serr := srv.Shutdown(ctx); serr != nil {
				log.Warn("http shutdown", zap.Error(serr))
			}
		}
		return err
	})
	return g.Wait()
}

// buildPipeline creates the stage the daemon reads from.
func buildPipeline(stage config.Stage, src poti.Source, clock poti.Clock, pc poti.Config) (knob.Pipeline, error) {
	switch stage {
	case config.StageSampler:
		return poti.NewSampler(src, clock, pc), nil
	case config.StageStabilizer:
		return poti.NewStabilizer(src, clock, pc), nil
	case config.StageMapper:
		return poti.NewMapper(src, clock, pc), nil
	case config.StageCentered:
		return poti.NewCenteredMapper(src, clock, pc), nil
	}
	return nil, fmt.Errorf("%w %q", config.ErrUnknownStage, stage)
}

// statusConfig reports the effective, clamped pipeline settings.
func statusConfig(cfg config.Config, p knob.Pipeline) status.Config {
	pc := cfg.Pipeline
	sc := status.Config{
		PollMs:       cfg.Poll.Milliseconds(),
		HeartbeatMs:  cfg.Heartbeat.Milliseconds(),
		Broker:       cfg.Broker,
		HTTPPort:     cfg.HTTPAddr,
		WSBroker:     cfg.WSBroker,
		Stage:        string(cfg.Stage),
		Channel:      pc.Channel,
		CycleMillis:  pc.CycleMillis,
		WeightPrev:   pc.WeightPrev,
		ExtraSamples: pc.ExtraSamples,
		MaxRawValue:  pc.MaxRawValue,
	}
	if sc.MaxRawValue == 0 {
		sc.MaxRawValue = poti.DefaultMaxRawValue
	}

	var st *poti.Stabilizer
	var mp *poti.Mapper
	switch s := p.(type) {
	case *poti.Stabilizer:
		st = s
	case *poti.Mapper:
		mp = s
		st = s.Stabilizer()
	case *poti.CenteredMapper:
		mp = s.Mapper()
		st = s.Stabilizer()
		sc.CenterLow = s.CenterLow()
		sc.CenterHigh = s.CenterHigh()
	}
	if st != nil {
		sc.WeightPrev = st.WeightPrev()
		sc.ExtraSamples = st.ExtraSamples()
	}
	if mp != nil {
		sc.Levels = mp.Levels()
		sc.Stretch = mp.Stretch()
		sc.MaxRawValue = mp.MaxRawValue()
	}
	return sc
}

// openButton opens the push switch. The daemon runs without it when it is
// disabled or unavailable.
func openButton(cfg config.Config, log *zap.Logger) gpio.Reader {
	if cfg.SwitchPin < 0 {
		return nil
	}
	r, err := gpio.NewRealReader(cfg.GPIOChip, cfg.SwitchPin)
	if err != nil {
		log.Warn("push switch unavailable, reset disabled",
			zap.String("chip", cfg.GPIOChip), zap.Int("pin", cfg.SwitchPin), zap.Error(err))
		return nil
	}
	return r
}

// hostRefresher returns a function that updates the tracker's host info.
func hostRefresher(tracker *status.Tracker, log *zap.Logger) func() {
	probe, err := status.NewHostProbe()
	if err != nil {
		log.Warn("host info unavailable", zap.Error(err))
		return func() {}
	}
	return func() {
		info, err := probe.Collect()
		if err != nil {
			log.Debug("collect host info", zap.Error(err))
			return
		}
		tracker.SetHost(info)
	}
}

// printState polls p until it reports a first reading and prints it.
func printState(w io.Writer, p knob.Pipeline, retry time.Duration) error {
	watcher := knob.NewWatcher(p, time.Now())
	for i := 0; i < 20; i++ {
		if ev := watcher.Poll(time.Now()); ev != nil {
			fmt.Fprintln(w, formatReading(ev.Reading))
			return nil
		}
		time.Sleep(retry)
	}
	return errors.New("read adc: no valid sample")
}

// formatReading renders r on one line, e.g. "value=512 level=5/10".
func formatReading(r knob.Reading) string {
	s := "value=" + valueString(r.Value)
	if r.Levels > 0 {
		s += fmt.Sprintf(" level=%s/%d", levelString(r.Level), r.Levels)
	}
	if r.Centered {
		s += " centered=" + valueString(r.CenteredValue) + " centered_level=" + levelString(r.CenteredLevel)
	}
	return s
}

func valueString(v int) string {
	if !knob.ValueDefined(v) {
		return "UNDEFINED"
	}
	return fmt.Sprint(v)
}

func levelString(l int) string {
	if !knob.LevelDefined(l) {
		return "UNDEFINED"
	}
	return fmt.Sprint(l)
}
