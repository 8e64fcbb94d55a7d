package controller

import (
	"errors"
	"fmt"
	"sync"

	"github.com/james-see/opendmx/pkg/dmx"
	"github.com/james-see/opendmx/pkg/pattern"
)

// ErrStopped is returned for mutations after a stop was requested
var ErrStopped = errors.New("output is shutting down")

// Snapshot is a consistent copy of the shared state
type Snapshot struct {
	Universe dmx.Universe
	Mode     pattern.Mode
	Stopping bool
}

// State is the universe, mode and run flag shared between the generator
// and command sources. A single mutex guards all three.
type State struct {
	mu       sync.Mutex
	universe dmx.Universe
	mode     pattern.Mode
	stopping bool
	done     chan struct{}
}

// NewState creates a State with an all-zero universe in Static mode
func NewState() *State {
	return &State{
		mode: pattern.Static,
		done: make(chan struct{}),
	}
}

// Apply executes an operator intent
func (s *State) Apply(in Intent) error {
	switch in.Op {
	case OpSetMode:
		return s.SetMode(in.Mode)
	case OpSetAll:
		return s.SetAllChannels(in.Level)
	case OpBlackout:
		return s.Blackout()
	case OpStop:
		s.RequestStop()
		return nil
	default:
		return dmx.IntentError("apply", fmt.Errorf("unknown intent op %d", int(in.Op)))
	}
}

// SetMode selects the display mode. The universe is left as is; automatic
// modes overwrite it on the next tick.
func (s *State) SetMode(m pattern.Mode) error {
	if !m.Valid() {
		return dmx.IntentError("set mode", fmt.Errorf("unknown mode %s", m))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return ErrStopped
	}
	s.mode = m
	return nil
}

// SetAllChannels switches to Static and sets every channel to level
func (s *State) SetAllChannels(level uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return ErrStopped
	}
	s.mode = pattern.Static
	s.universe.Fill(level)
	return nil
}

// Blackout switches to Static with every channel at zero
func (s *State) Blackout() error {
	return s.SetAllChannels(0)
}

// RequestStop moves the run state to stop requested. It reports whether
// this call made the transition.
func (s *State) RequestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return false
	}
	s.stopping = true
	close(s.done)
	return true
}

// Stopping reports whether a stop was requested
func (s *State) Stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopping
}

// Done is closed once a stop is requested
func (s *State) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns a consistent copy of the state
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{Universe: s.universe, Mode: s.mode, Stopping: s.stopping}
}

// advance runs one pattern step against the shared universe under the lock
// and returns the resulting buffer. It does nothing once a stop was requested.
func (s *State) advance(step func(pattern.Mode, *dmx.Universe)) (dmx.Universe, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopping {
		return s.universe, false
	}
	step(s.mode, &s.universe)
	return s.universe, true
}
