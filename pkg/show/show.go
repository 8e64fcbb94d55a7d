// Package show records operator intents as Standard MIDI Files and plays
// them back on their original timing
package show

import (
	"time"

	"github.com/james-see/opendmx/pkg/controller"
)

// Cue is one intent at its offset from the start of the show
type Cue struct {
	At     time.Duration
	Intent controller.Intent
}

// Show is a timed list of cues
type Show struct {
	Name   string
	Cues   []Cue         // ordered by At
	Length time.Duration // total running time, at least the last cue
	Tempo  float64       // initial tempo in BPM of the source file
}
