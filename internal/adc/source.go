package adc

import (
	"go.uber.org/zap"

	"github.com/sweeney/knob-sensor/internal/poti"
)

// Source adapts a Reader to poti.Source. Read errors become
// poti.ValueUndefined so the pipeline skips the sample.
type Source struct {
	reader Reader
	log    *zap.Logger

	// OnError, if set, is called for every failed read.
	OnError func(channel uint8, err error)

	errors  uint64
	lastErr error
	failing bool
}

// NewSource wraps reader. A nil logger disables logging.
func NewSource(reader Reader, log *zap.Logger) *Source {
	if log == nil {
		log = zap.NewNop()
	}
	return &Source{reader: reader, log: log}
}

// Sample implements poti.Source.
func (s *Source) Sample(channel uint8) int {
	v, err := s.reader.Read(channel)
	if err != nil {
		s.errors++
		s.lastErr = err
		if !s.failing {
			// Logged once per outage; the error counter keeps the rest.
			s.log.Warn("adc read failed", zap.Uint8("channel", channel), zap.Error(err))
			s.failing = true
		}
		if s.OnError != nil {
			s.OnError(channel, err)
		}
		return poti.ValueUndefined
	}
	if s.failing {
		s.log.Info("adc read recovered", zap.Uint8("channel", channel), zap.Uint64("errors", s.errors))
		s.failing = false
	}
	return v
}

// Errors returns the number of failed reads so far.
func (s *Source) Errors() uint64 {
	return s.errors
}

// LastError returns the most recent read error, or nil.
func (s *Source) LastError() error {
	return s.lastErr
}
