package tui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/dmx"
	"github.com/james-see/opendmx/pkg/pattern"
)

type fakeEngine struct {
	stage  controller.Stage
	frames uint64
	done   chan struct{}
	err    error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{stage: controller.StageRunning, frames: 7, done: make(chan struct{})}
}

func (f *fakeEngine) Stage() controller.Stage { return f.stage }
func (f *fakeEngine) Frames() uint64          { return f.frames }
func (f *fakeEngine) Done() <-chan struct{}   { return f.done }
func (f *fakeEngine) Err() error              { return f.err }

func newTestModel(t *testing.T) (Model, *controller.State) {
	t.Helper()
	state := controller.NewState()
	return New(state, state, newFakeEngine(), "/dev/ttyUSB0"), state
}

func send(t *testing.T, m Model, line string) Model {
	t.Helper()
	m.input.SetValue(line)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func TestEnterAppliesCommand(t *testing.T) {
	m, state := newTestModel(t)

	m = send(t, m, "val 10")
	assert.Equal(t, StatePrompt, m.state)
	assert.Equal(t, "All channels set to 10", m.status)
	assert.NoError(t, m.err)
	assert.Empty(t, m.input.Value())
	assert.Equal(t, uint8(10), state.Snapshot().Universe[dmx.Channels-1])

	m = send(t, m, "rainbow")
	assert.Equal(t, pattern.Rainbow, state.Snapshot().Mode)
	assert.Contains(t, m.View(), "rainbow")
}

func TestBadCommandShowsError(t *testing.T) {
	m, state := newTestModel(t)
	before := state.Snapshot()

	m = send(t, m, "strobe")
	require.Error(t, m.err)
	assert.True(t, errors.Is(m.err, dmx.ErrIntent))
	assert.Contains(t, m.View(), "unknown command")
	assert.Equal(t, before, state.Snapshot())

	// the next good command clears it
	m = send(t, m, "off")
	assert.NoError(t, m.err)
}

func TestHelpAndEmpty(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, "")
	assert.Empty(t, m.status)

	m = send(t, m, "help")
	assert.Contains(t, m.status, "val <0-255>")
}

func TestCtrlCRequestsStop(t *testing.T) {
	m, state := newTestModel(t)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	assert.True(t, state.Stopping())
	assert.Equal(t, StateFading, m.state)
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "Fading out universe...")

	// typing is ignored while fading
	m.input.SetValue("val 1")
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, StateFading, next.(Model).state)
	assert.Equal(t, uint8(0), state.Snapshot().Universe[0])
}

func TestExternalStopSwitchesToFading(t *testing.T) {
	m, state := newTestModel(t)
	state.RequestStop()

	next, _ := m.Update(refreshMsg{})
	assert.Equal(t, StateFading, next.(Model).state)
}

func TestEngineDoneQuits(t *testing.T) {
	m, _ := newTestModel(t)
	boom := dmx.TransmitError("write", errors.New("unplugged"))

	next, cmd := m.Update(engineDoneMsg{err: boom})
	m = next.(Model)
	assert.Equal(t, StateStopped, m.state)
	assert.ErrorIs(t, m.err, dmx.ErrTransmit)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Contains(t, m.View(), "Signal stopped")
}

func TestGiveUpQuitsWithoutWaitingAgain(t *testing.T) {
	m, _ := newTestModel(t)

	next, cmd := m.Update(giveUpMsg{})
	m = next.(Model)
	assert.Equal(t, StateStopped, m.state)
	assert.NoError(t, m.err)
	assert.Contains(t, m.View(), "did not stop in time")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestWaitForEngine(t *testing.T) {
	e := newFakeEngine()
	e.err = dmx.ErrTransmit
	close(e.done)

	msg := waitForEngine(e)()
	done, ok := msg.(engineDoneMsg)
	require.True(t, ok)
	assert.Equal(t, dmx.ErrTransmit, done.err)
}

func TestViewShowsStatus(t *testing.T) {
	m, _ := newTestModel(t)
	v := m.View()
	assert.Contains(t, v, "OPEN DMX")
	assert.Contains(t, v, "/dev/ttyUSB0")
	assert.Contains(t, v, "running")
	assert.Contains(t, v, "7")
}

func TestPreview(t *testing.T) {
	var u dmx.Universe
	assert.NotContains(t, preview(u), "█")
	u.Fill(255)
	assert.Contains(t, preview(u), "█")
}
