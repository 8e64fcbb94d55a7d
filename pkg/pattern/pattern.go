// Package pattern computes channel levels for the automatic display modes
package pattern

import (
	"fmt"
	"math"
	"strings"

	"github.com/james-see/opendmx/pkg/dmx"
)

// Mode selects how the universe is refreshed on each tick
type Mode int

const (
	Static  Mode = iota // levels come from the operator
	Fade                // all channels pulse together
	Rainbow             // sine wave travelling across the universe
)

// Phase increments per tick
const (
	FadeStep    = 0.05
	RainbowStep = 0.1

	// RainbowSpread is the phase offset between adjacent channels
	RainbowSpread = 0.1
)

var modeNames = map[Mode]string{
	Static:  "static",
	Fade:    "fade",
	Rainbow: "rainbow",
}

// String returns the lowercase mode name
func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// Automatic reports whether the engine computes levels in this mode
func (m Mode) Automatic() bool {
	return m == Fade || m == Rainbow
}

// ParseMode converts a mode name to a Mode
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "static":
		return Static, nil
	case "fade", "pulse":
		return Fade, nil
	case "rainbow", "wave":
		return Rainbow, nil
	default:
		return Static, fmt.Errorf("unknown mode %q", s)
	}
}

// Modes lists all modes in display order
func Modes() []Mode {
	return []Mode{Static, Fade, Rainbow}
}

// Engine holds the phase accumulator. Only the generation loop touches it.
type Engine struct {
	phase float64
}

// NewEngine creates an Engine with phase zero
func NewEngine() *Engine {
	return &Engine{}
}

// Phase returns the current accumulator value
func (e *Engine) Phase() float64 {
	return e.phase
}

// Next refreshes u for mode and advances the phase.
// Static leaves u untouched.
func (e *Engine) Next(mode Mode, u *dmx.Universe) {
	switch mode {
	case Fade:
		u.Fill(Level(e.phase))
		e.phase += FadeStep
	case Rainbow:
		for i := range u {
			u[i] = Level(e.phase + float64(i)*RainbowSpread)
		}
		e.phase += RainbowStep
	}
}

// Level maps a sine argument onto [0, 255]
func Level(x float64) uint8 {
	return Clamp(math.Round((1 + math.Sin(x)) * 127.5))
}

// Clamp converts v to a channel level, saturating at the range bounds
func Clamp(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v)
	}
}
