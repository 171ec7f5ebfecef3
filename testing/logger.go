// Copyright 2020 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package testing

import (
	"fmt"
	"strings"
	"sync"

	"github.com/juju/loggo/v2"
)

// NoopLogger is a logger that does nothing.
type NoopLogger struct{}

func (NoopLogger) Criticalf(string, ...any) {}
func (NoopLogger) Errorf(string, ...any)    {}
func (NoopLogger) Warningf(string, ...any)  {}
func (NoopLogger) Infof(string, ...any)     {}
func (NoopLogger) Debugf(string, ...any)    {}
func (NoopLogger) Tracef(string, ...any)    {}

// CheckLog is an interface that can be used to log messages to a
// *testing.T or *check.C.
type CheckLog interface {
	Logf(string, ...any)
}

// CheckLogger is a logger that logs to a *testing.T or *check.C.
type CheckLogger struct {
	Log CheckLog
}

// NewCheckLogger returns a CheckLogger that logs to the given CheckLog.
func NewCheckLogger(log CheckLog) CheckLogger {
	return CheckLogger{Log: log}
}

func (c CheckLogger) Criticalf(msg string, args ...any) {
	c.Log.Logf(fmt.Sprintf("CRITICAL: %s", msg), args...)
}
func (c CheckLogger) Errorf(msg string, args ...any) {
	c.Log.Logf(fmt.Sprintf("ERROR: %s", msg), args...)
}
func (c CheckLogger) Warningf(msg string, args ...any) {
	c.Log.Logf(fmt.Sprintf("WARNING: %s", msg), args...)
}
func (c CheckLogger) Infof(msg string, args ...any) {
	c.Log.Logf(fmt.Sprintf("INFO: %s", msg), args...)
}
func (c CheckLogger) Debugf(msg string, args ...any) {
	c.Log.Logf(fmt.Sprintf("DEBUG: %s", msg), args...)
}
func (c CheckLogger) Tracef(msg string, args ...any) {
	c.Log.Logf(fmt.Sprintf("TRACE: %s", msg), args...)
}

// RecordingLogger keeps every formatted message so tests can assert on
// what was, or was not, logged.
type RecordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (r *RecordingLogger) record(level loggo.Level, msg string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, fmt.Sprintf("%s %s", level, fmt.Sprintf(msg, args...)))
}

func (r *RecordingLogger) Criticalf(msg string, args ...any) { r.record(loggo.CRITICAL, msg, args...) }
func (r *RecordingLogger) Errorf(msg string, args ...any)    { r.record(loggo.ERROR, msg, args...) }
func (r *RecordingLogger) Warningf(msg string, args ...any)  { r.record(loggo.WARNING, msg, args...) }
func (r *RecordingLogger) Infof(msg string, args ...any)     { r.record(loggo.INFO, msg, args...) }
func (r *RecordingLogger) Debugf(msg string, args ...any)    { r.record(loggo.DEBUG, msg, args...) }
func (r *RecordingLogger) Tracef(msg string, args ...any)    { r.record(loggo.TRACE, msg, args...) }

// Messages returns the messages logged so far, each prefixed with its
// level.
func (r *RecordingLogger) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.messages...)
}

// Contains reports whether any logged message contains s.
func (r *RecordingLogger) Contains(s string) bool {
	for _, msg := range r.Messages() {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
