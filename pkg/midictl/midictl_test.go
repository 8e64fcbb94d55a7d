package midictl

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/pattern"
)

func TestScale(t *testing.T) {
	tests := []struct {
		in, want uint8
	}{
		{0, 0},
		{1, 2},
		{64, 128},
		{127, 255},
		{200, 255},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Scale(tt.in), "Scale(%d)", tt.in)
	}
}

func TestTranslate(t *testing.T) {
	m := DefaultMapping()
	tests := []struct {
		name string
		msg  midi.Message
		want controller.Intent
		ok   bool
	}{
		{"fader full", midi.ControlChange(0, DefaultCC, 127), controller.SetAllChannels(255), true},
		{"fader other channel", midi.ControlChange(9, DefaultCC, 0), controller.SetAllChannels(0), true},
		{"other cc", midi.ControlChange(0, 1, 64), controller.Intent{}, false},
		{"blackout key", midi.NoteOn(0, 60, 100), controller.Blackout(), true},
		{"static key", midi.NoteOn(0, 61, 100), controller.SetMode(pattern.Static), true},
		{"fade key", midi.NoteOn(0, 62, 100), controller.SetMode(pattern.Fade), true},
		{"rainbow key", midi.NoteOn(0, 63, 100), controller.SetMode(pattern.Rainbow), true},
		{"unmapped key", midi.NoteOn(0, 40, 100), controller.Intent{}, false},
		{"zero velocity is note off", midi.NoteOn(0, 60, 0), controller.Intent{}, false},
		{"note off", midi.NoteOff(0, 60), controller.Intent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := m.Translate(tt.msg)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomCC(t *testing.T) {
	m := DefaultMapping()
	m.LevelCC = 1
	in, ok := m.Translate(midi.ControlChange(0, 1, 64))
	assert.True(t, ok)
	assert.Equal(t, controller.SetAllChannels(128), in)

	_, ok = m.Translate(midi.ControlChange(0, DefaultCC, 64))
	assert.False(t, ok)
}

func TestHandlerAppliesIntents(t *testing.T) {
	state := controller.NewState()
	h := Handler(state, DefaultMapping(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	h(midi.NoteOn(0, 63, 90), 0)
	assert.Equal(t, pattern.Rainbow, state.Snapshot().Mode)

	h(midi.ControlChange(0, DefaultCC, 127), 10)
	snap := state.Snapshot()
	assert.Equal(t, pattern.Static, snap.Mode)
	assert.Equal(t, uint8(255), snap.Universe[100])

	h(midi.ProgramChange(0, 3), 20)
	assert.Equal(t, snap, state.Snapshot())

	state.RequestStop()
	h(midi.NoteOn(0, 60, 90), 30)
	assert.Equal(t, uint8(255), state.Snapshot().Universe[0], "intents after stop are rejected")
}
