// Package dmxtest provides an in-memory dmx.Line for tests
package dmxtest

import (
	"errors"
	"sync"
	"time"

	"github.com/james-see/opendmx/pkg/dmx"
)

// ErrInjected is returned by a Line configured to fail
var ErrInjected = errors.New("injected write failure")

// Line records every write and break. The zero value is ready to use.
type Line struct {
	mu     sync.Mutex
	frames [][]byte
	breaks []time.Duration
	closed int
	failAt int // fail the Nth write (1-based), 0 disables
}

var _ dmx.Line = (*Line)(nil)

// NewLine creates a recording line
func NewLine() *Line {
	return &Line{}
}

// FailOnWrite makes the nth write (1-based) and every later one fail
func (l *Line) FailOnWrite(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failAt = n
}

// Break records the break duration
func (l *Line) Break(d time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed > 0 {
		return errors.New("line closed")
	}
	l.breaks = append(l.breaks, d)
	return nil
}

// Write records a copy of p
func (l *Line) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed > 0 {
		return 0, errors.New("line closed")
	}
	if l.failAt > 0 && len(l.frames)+1 >= l.failAt {
		return 0, ErrInjected
	}
	l.frames = append(l.frames, append([]byte(nil), p...))
	return len(p), nil
}

// Close counts close calls
func (l *Line) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed++
	return nil
}

// Frames returns copies of all frames written so far
func (l *Line) Frames() [][]byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([][]byte, len(l.frames))
	for i, f := range l.frames {
		out[i] = append([]byte(nil), f...)
	}
	return out
}

// Breaks returns the recorded break durations
func (l *Line) Breaks() []time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]time.Duration(nil), l.breaks...)
}

// Closed returns how many times Close was called
func (l *Line) Closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// WaitFrames blocks until at least n frames were written or timeout elapses
func (l *Line) WaitFrames(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		l.mu.Lock()
		got := len(l.frames)
		l.mu.Unlock()
		if got >= n {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// Opener returns a dmx.Opener handing out l
func (l *Line) Opener() dmx.Opener {
	return func() (dmx.Line, error) { return l, nil }
}

// FailingOpener returns a dmx.Opener that always fails with err
func FailingOpener(err error) dmx.Opener {
	return func() (dmx.Line, error) { return nil, err }
}
