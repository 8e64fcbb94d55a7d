package show

import (
	"slices"
	"sync"
	"time"

	"github.com/james-see/opendmx/pkg/controller"
)

// Recorder wraps an Applier and keeps every accepted intent as a cue
type Recorder struct {
	app controller.Applier
	now func() time.Time

	mu    sync.Mutex
	start time.Time
	cues  []Cue
}

// NewRecorder starts recording intents passed to app
func NewRecorder(app controller.Applier) *Recorder {
	return &Recorder{app: app, now: time.Now, start: time.Now()}
}

// Apply forwards in and records it when accepted. Stop is not recorded.
func (r *Recorder) Apply(in controller.Intent) error {
	if err := r.app.Apply(in); err != nil {
		return err
	}
	if in.Op == controller.OpStop {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cues = append(r.cues, Cue{At: r.now().Sub(r.start), Intent: in})
	return nil
}

// Show returns what was recorded so far, running until now
func (r *Recorder) Show(name string) *Show {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Show{
		Name:   name,
		Cues:   slices.Clone(r.cues),
		Length: r.now().Sub(r.start),
		Tempo:  defaultTempo,
	}
}
