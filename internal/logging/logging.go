// Package logging provides the shared diagnostic logger used across the
// tes packages.
//
// Every recoverable error kind described by the wire protocol (Truncated,
// CrcFailed, Malformed, UnknownRouting, ResourceExhausted, Io) is logged
// rather than returned all the way up to a caller that has no use for it;
// this package is where that happens.
package logging

import (
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func get() *logger {
	if singleton == nil {
		once.Do(func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "tes",
			})
			l.SetLevel(log.InfoLevel)
			singleton = &logger{l}
		})
	}
	return singleton
}

// Logger is the interface components depend on, so tests can substitute
// a capturing logger without importing charmbracelet/log directly.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Default returns the shared process-wide logger.
func Default() Logger { return get() }

// SetLevel adjusts the verbosity of the shared logger.
func SetLevel(level string) {
	l, err := log.ParseLevel(level)
	if err != nil {
		return
	}
	get().SetLevel(l)
}

// once-per-key warning support, used for the UnknownRouting diagnostic
// that spec.md §7 requires to fire only once per routing ID per session.
type onceWarner struct {
	mu   sync.Mutex
	seen map[uint16]struct{}
}

// NewOnceWarner creates a warner that forwards to lg at most once per key.
func NewOnceWarner(lg Logger) *OnceWarner {
	return &OnceWarner{lg: lg, w: onceWarner{seen: make(map[uint16]struct{})}}
}

// OnceWarner logs a warning for a given uint16 key at most once.
type OnceWarner struct {
	lg Logger
	w  onceWarner
}

// Warn logs format/args under key, unless that key has already fired.
func (o *OnceWarner) Warn(key uint16, format string, args ...any) {
	o.w.mu.Lock()
	_, fired := o.w.seen[key]
	if !fired {
		o.w.seen[key] = struct{}{}
	}
	o.w.mu.Unlock()
	if !fired {
		o.lg.Warnf(format, args...)
	}
}
