package console

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/pattern"
)

func TestConsoleAppliesCommands(t *testing.T) {
	state := controller.NewState()
	var out bytes.Buffer
	in := strings.NewReader("val 200\nbogus\nrainbow\n\nhelp\nexit\nval 10\n")

	c := New(in, &out, state, state.Done())
	require.NoError(t, c.Run(context.Background()))

	snap := state.Snapshot()
	assert.True(t, snap.Stopping)
	assert.Equal(t, pattern.Rainbow, snap.Mode)
	assert.Equal(t, uint8(200), snap.Universe[0], "commands after exit must not run")

	text := out.String()
	assert.Contains(t, text, "All channels set to 200")
	assert.Contains(t, text, `[?] intent: parse: unknown command "bogus"`)
	assert.Contains(t, text, "Mode: rainbow wave")
	assert.Contains(t, text, "Fading out universe...")
	assert.NotContains(t, text, "All channels set to 10")
}

func TestConsoleEndOfInput(t *testing.T) {
	state := controller.NewState()
	c := New(strings.NewReader("fade\n"), io.Discard, state, state.Done())
	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, pattern.Fade, state.Snapshot().Mode)
	assert.False(t, state.Stopping(), "EOF leaves the stop decision to the caller")
}

func TestConsoleStopsWhenOutputFails(t *testing.T) {
	state := controller.NewState()
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer

	c := New(pr, &out, state, state.Done())
	errc := make(chan error, 1)
	go func() { errc <- c.Run(context.Background()) }()

	// simulates the generator failing and requesting stop
	state.RequestStop()

	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("console did not return after stop")
	}
}
