package adc

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"go.uber.org/multierr"
)

// IIOReader reads channels from a Linux industrial I/O device through sysfs
// (in_voltage<N>_raw). Attribute files are opened once and re-read from
// offset 0 on every Read, which triggers a new conversion.
type IIOReader struct {
	dir string

	mu    sync.Mutex
	files map[uint8]*os.File
	buf   [32]byte
}

// NewIIOReader creates a reader for the IIO device directory dir.
func NewIIOReader(dir string) (*IIOReader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open iio device: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open iio device: %s is not a directory", dir)
	}
	return &IIOReader{dir: dir, files: make(map[uint8]*os.File)}, nil
}

// Read returns one raw conversion of channel.
func (r *IIOReader) Read(channel uint8) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.file(channel)
	if err != nil {
		return 0, err
	}

	n, err := f.ReadAt(r.buf[:], 0)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("read channel %d: %w", channel, err)
	}

	v, err := strconv.Atoi(string(bytes.TrimSpace(r.buf[:n])))
	if err != nil {
		return 0, fmt.Errorf("parse channel %d: %w", channel, err)
	}
	if v < 0 {
		return 0, fmt.Errorf("channel %d: %d: %w", channel, v, ErrOutOfRange)
	}
	return v, nil
}

func (r *IIOReader) file(channel uint8) (*os.File, error) {
	if f, ok := r.files[channel]; ok {
		return f, nil
	}
	path := filepath.Join(r.dir, fmt.Sprintf("in_voltage%d_raw", channel))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open channel %d: %w", channel, err)
	}
	r.files[channel] = f
	return f, nil
}

// Close releases all open attribute files.
func (r *IIOReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	for ch, f := range r.files {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("close channel %d: %w", ch, cerr))
		}
		delete(r.files, ch)
	}
	return err
}
