package controller

import "log/slog"

// Applier accepts operator intents. *State implements it directly.
type Applier interface {
	Apply(in Intent) error
}

// IntentRecorder is notified about every intent a Dispatcher handles
type IntentRecorder interface {
	IntentApplied(source string, err error)
}

// Dispatcher applies intents from named command sources to a State,
// logging and recording each one.
type Dispatcher struct {
	state  *State
	logger *slog.Logger
	rec    IntentRecorder
}

// NewDispatcher creates a Dispatcher; logger and rec may be nil
func NewDispatcher(state *State, logger *slog.Logger, rec IntentRecorder) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{state: state, logger: logger, rec: rec}
}

// State returns the state intents are applied to
func (d *Dispatcher) State() *State {
	return d.state
}

// For returns an Applier tagging intents with source
func (d *Dispatcher) For(source string) Applier {
	return sourceApplier{d: d, source: source}
}

// Apply applies in on behalf of source
func (d *Dispatcher) Apply(source string, in Intent) error {
	err := d.state.Apply(in)
	if d.rec != nil {
		d.rec.IntentApplied(source, err)
	}
	if err != nil {
		d.logger.Warn("intent rejected", "source", source, "intent", in.String(), "error", err)
		return err
	}
	d.logger.Info("intent applied", "source", source, "intent", in.String())
	return nil
}

type sourceApplier struct {
	d      *Dispatcher
	source string
}

func (s sourceApplier) Apply(in Intent) error {
	return s.d.Apply(s.source, in)
}
