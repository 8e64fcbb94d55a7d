// Package controller runs the DMX signal generator and the shared state
// that operator command sources act on
package controller

import (
	"fmt"

	"github.com/james-see/opendmx/pkg/pattern"
)

// Op identifies what an Intent does
type Op int

const (
	OpSetMode Op = iota + 1
	OpSetAll
	OpBlackout
	OpStop
)

// Intent is a single operator request. These are the only way to change
// the mode, the universe or the run state.
type Intent struct {
	Op    Op
	Mode  pattern.Mode
	Level uint8
}

// SetMode selects a display mode
func SetMode(m pattern.Mode) Intent {
	return Intent{Op: OpSetMode, Mode: m}
}

// SetAllChannels sets every channel to level and switches to Static
func SetAllChannels(level uint8) Intent {
	return Intent{Op: OpSetAll, Mode: pattern.Static, Level: level}
}

// Blackout sets every channel to zero and switches to Static
func Blackout() Intent {
	return Intent{Op: OpBlackout, Mode: pattern.Static}
}

// Stop requests a faded shutdown
func Stop() Intent {
	return Intent{Op: OpStop}
}

// String describes the intent for logs and prompts
func (i Intent) String() string {
	switch i.Op {
	case OpSetMode:
		return fmt.Sprintf("mode %s", i.Mode)
	case OpSetAll:
		return fmt.Sprintf("all channels %d", i.Level)
	case OpBlackout:
		return "blackout"
	case OpStop:
		return "stop"
	default:
		return fmt.Sprintf("op(%d)", int(i.Op))
	}
}
