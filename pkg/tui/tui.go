// Package tui provides the interactive terminal prompt for opendmx
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/opendmx/pkg/command"
	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/dmx"
)

// Stage-lighting colour scheme
var (
	amber     = lipgloss.Color("#FFB000")
	warmWhite = lipgloss.Color("#FFF4E5")
	steel     = lipgloss.Color("#8A9BA8")
	darkGray  = lipgloss.Color("#222222")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(amber).
			Background(darkGray).
			Padding(0, 2).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(steel).
			Width(8)

	valueStyle = lipgloss.NewStyle().
			Foreground(warmWhite).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(amber).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF3B30")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(amber).
			Padding(1, 2)
)

// refreshInterval is how often the status panel redraws
const refreshInterval = 100 * time.Millisecond

// previewWidth is how many cells the universe preview uses
const previewWidth = 64

// State represents the current TUI state
type State int

const (
	StatePrompt State = iota
	StateFading
	StateStopped
)

// Engine is the view of the generator the TUI displays
type Engine interface {
	Stage() controller.Stage
	Frames() uint64
	Done() <-chan struct{}
	Err() error
}

// Model represents the TUI model
type Model struct {
	state   State
	input   textinput.Model
	spinner spinner.Model
	app     controller.Applier
	shared  *controller.State
	engine  Engine
	device  string
	status  string
	err     error
	width   int
}

type refreshMsg time.Time

// engineDoneMsg signals the generator reached Stopped
type engineDoneMsg struct{ err error }

// giveUpMsg fires when the fade-out outlived the join timeout. The caller
// owns the final wait and reports the timeout.
type giveUpMsg struct{}

// New creates a new TUI model
func New(app controller.Applier, shared *controller.State, engine Engine, device string) Model {
	ti := textinput.New()
	ti.Placeholder = "val 255 · fade · rainbow · off · exit"
	ti.Prompt = "DMX> "
	ti.CharLimit = 32
	ti.Width = 40
	ti.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(amber)

	return Model{
		state:   StatePrompt,
		input:   ti,
		spinner: s,
		app:     app,
		shared:  shared,
		engine:  engine,
		device:  device,
	}
}

// Init starts the cursor blink, the status refresh and the engine watch
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, refresh(), waitForEngine(m.engine))
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

func giveUpAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return giveUpMsg{} })
}

func waitForEngine(e Engine) tea.Cmd {
	return func() tea.Msg {
		<-e.Done()
		return engineDoneMsg{err: e.Err()}
	}
}

// Update handles TUI updates
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case refreshMsg:
		if m.state == StatePrompt && m.shared.Stopping() {
			m.state = StateFading
			m.input.Blur()
			return m, tea.Batch(refresh(), m.spinner.Tick, giveUpAfter(controller.DefaultJoinTimeout))
		}
		return m, refresh()

	case giveUpMsg:
		m.state = StateStopped
		m.status = "Output did not stop in time."
		return m, tea.Quit

	case engineDoneMsg:
		m.state = StateStopped
		m.err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state != StateFading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m.submit(controller.Stop())
	case tea.KeyEnter:
		if m.state != StatePrompt {
			return m, nil
		}
		line := m.input.Value()
		m.input.SetValue("")
		in, err := command.Parse(line)
		switch {
		case errors.Is(err, command.ErrEmpty):
			return m, nil
		case errors.Is(err, command.ErrHelp):
			m.status = strings.ReplaceAll(command.Help, "\n", " · ")
			m.err = nil
			return m, nil
		case err != nil:
			m.status = ""
			m.err = err
			return m, nil
		}
		return m.submit(in)
	}

	if m.state != StatePrompt {
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) submit(in controller.Intent) (tea.Model, tea.Cmd) {
	if err := m.app.Apply(in); err != nil {
		m.err = err
		return m, nil
	}
	m.err = nil
	m.status = command.Feedback(in)
	if in.Op == controller.OpStop && m.state == StatePrompt {
		m.state = StateFading
		m.input.Blur()
		return m, tea.Batch(m.spinner.Tick, giveUpAfter(controller.DefaultJoinTimeout))
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" OPEN DMX "))
	s.WriteString("\n")
	s.WriteString(boxStyle.Render(m.viewStatus()))
	s.WriteString("\n")

	switch m.state {
	case StatePrompt:
		s.WriteString(m.input.View())
	case StateFading:
		s.WriteString(fmt.Sprintf("%s Fading out universe...", m.spinner.View()))
	case StateStopped:
		s.WriteString(valueStyle.Render("Signal stopped. Port closed."))
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(fmt.Sprintf("✗ %v", m.err)))
	} else if m.status != "" {
		s.WriteString(statusStyle.Render(m.status))
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("enter: send • help: commands • esc/ctrl+c: fade out and quit"))
	return s.String()
}

func (m Model) viewStatus() string {
	snap := m.shared.Snapshot()
	rows := []string{
		row("Device", m.device),
		row("Mode", snap.Mode.String()),
		row("Stage", m.engine.Stage().String()),
		row("Frames", fmt.Sprintf("%d", m.engine.Frames())),
		row("Ch 1", fmt.Sprintf("%3d", snap.Universe[0])),
		preview(snap.Universe),
	}
	return strings.Join(rows, "\n")
}

func row(label, value string) string {
	return labelStyle.Render(label) + valueStyle.Render(value)
}

var shades = []rune(" ░▒▓█")

// preview renders the universe as a strip of shaded cells, each cell the
// mean of Channels/previewWidth adjacent channels
func preview(u dmx.Universe) string {
	per := dmx.Channels / previewWidth
	var b strings.Builder
	for c := 0; c < previewWidth; c++ {
		sum := 0
		for _, v := range u[c*per : (c+1)*per] {
			sum += int(v)
		}
		avg := sum / per
		b.WriteRune(shades[avg*(len(shades)-1)/255])
	}
	return lipgloss.NewStyle().Foreground(amber).Render(b.String())
}

// Run starts the TUI and blocks until the generator stops
func Run(app controller.Applier, shared *controller.State, engine Engine, device string) error {
	p := tea.NewProgram(New(app, shared, engine, device), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok && fm.err != nil && fm.state == StateStopped {
		return fm.err
	}
	return nil
}
