// Package midictl turns MIDI controller input into operator intents
package midictl

import (
	"fmt"
	"log/slog"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/pattern"
)

// Source is the name intents from this package are tagged with
const Source = "midi"

// DefaultCC is channel volume, the fader most controllers send
const DefaultCC = 7

// Mapping assigns MIDI messages to intents. Messages on any channel match.
type Mapping struct {
	// LevelCC sets all channels from its 0-127 value
	LevelCC uint8
	// Notes maps note-on keys to intents
	Notes map[uint8]controller.Intent
}

// DefaultMapping uses DefaultCC for the level and the four notes from
// middle C upwards for blackout, static, fade and rainbow
func DefaultMapping() Mapping {
	return Mapping{
		LevelCC: DefaultCC,
		Notes: map[uint8]controller.Intent{
			60: controller.Blackout(),
			61: controller.SetMode(pattern.Static),
			62: controller.SetMode(pattern.Fade),
			63: controller.SetMode(pattern.Rainbow),
		},
	}
}

// Translate maps msg to an intent, reporting false for messages the
// mapping ignores
func (m Mapping) Translate(msg midi.Message) (controller.Intent, bool) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetControlChange(&ch, &cc, &val):
		if cc != m.LevelCC {
			return controller.Intent{}, false
		}
		return controller.SetAllChannels(Scale(val)), true
	case msg.GetNoteStart(&ch, &key, &vel):
		in, ok := m.Notes[key]
		return in, ok
	}
	return controller.Intent{}, false
}

// Scale maps a 7-bit MIDI value onto a DMX level
func Scale(v uint8) uint8 {
	if v > 127 {
		v = 127
	}
	return uint8(uint16(v) * 255 / 127)
}

// Handler returns a listener callback applying translated messages to app
func Handler(app controller.Applier, m Mapping, logger *slog.Logger) func(msg midi.Message, timestampms int32) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(msg midi.Message, _ int32) {
		in, ok := m.Translate(msg)
		if !ok {
			logger.Debug("unhandled MIDI message", "msg", msg.String())
			return
		}
		// rejections are already logged by the dispatcher
		_ = app.Apply(in)
	}
}

// Ports lists the available MIDI input port names
func Ports() []string {
	ins := midi.GetInPorts()
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names
}

// Input is an opened MIDI input port that is not yet delivering messages
type Input struct {
	in     drivers.In
	logger *slog.Logger
}

// Open finds the named MIDI input and opens it
func Open(portName string, logger *slog.Logger) (*Input, error) {
	if logger == nil {
		logger = slog.Default()
	}
	in, err := midi.FindInPort(portName)
	if err != nil {
		return nil, fmt.Errorf("MIDI input %q not found: %w", portName, err)
	}
	if err := in.Open(); err != nil {
		return nil, fmt.Errorf("failed to open MIDI port %q: %w", in.String(), err)
	}
	return &Input{in: in, logger: logger}, nil
}

// Name returns the port name
func (i *Input) Name() string {
	return i.in.String()
}

// Listen applies messages to app until the returned stop function is
// called. Stopping also closes the port.
func (i *Input) Listen(app controller.Applier, m Mapping) (func(), error) {
	stop, err := midi.ListenTo(i.in, Handler(app, m, i.logger), midi.HandleError(func(listenErr error) {
		i.logger.Warn("MIDI listener error", "device", i.Name(), "error", listenErr)
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to start MIDI listener: %w", err)
	}
	i.logger.Info("MIDI input connected", "device", i.Name(), "cc", m.LevelCC)
	return func() {
		stop()
		_ = i.Close()
		i.logger.Info("MIDI input closed", "device", i.Name())
	}, nil
}

// Close releases the port
func (i *Input) Close() error {
	return i.in.Close()
}
