package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/james-see/opendmx/pkg/dmx"
	"github.com/james-see/opendmx/pkg/pattern"
)

// Timing defaults
const (
	DefaultTickPeriod  = 40 * time.Millisecond // ~25 Hz refresh
	DefaultFadeSteps   = 25                    // ~1s fade at the default tick
	DefaultJoinTimeout = 3 * time.Second
)

// ErrJoinTimeout is returned by Wait when the generator did not stop in time
var ErrJoinTimeout = errors.New("dmx output did not stop before timeout")

// Stage is the generator lifecycle position
type Stage int32

const (
	StageStarting Stage = iota
	StageRunning
	StageDraining
	StageStopped
)

// String returns the stage name
func (s Stage) String() string {
	switch s {
	case StageStarting:
		return "starting"
	case StageRunning:
		return "running"
	case StageDraining:
		return "draining"
	case StageStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Observer receives generator events. Implementations must not block.
type Observer interface {
	StageChanged(stage Stage)
	FrameSent(stage Stage, took time.Duration)
	TickOverrun(behind time.Duration)
	TransmitFailed(err error)
}

type nopObserver struct{}

func (nopObserver) StageChanged(Stage)             {}
func (nopObserver) FrameSent(Stage, time.Duration) {}
func (nopObserver) TickOverrun(time.Duration)      {}
func (nopObserver) TransmitFailed(error)           {}

// Option configures a Generator
type Option func(*Generator)

// WithTickPeriod sets the frame cadence. Lines implementing dmx.Paced raise
// it to their minimum frame period when it is shorter.
func WithTickPeriod(d time.Duration) Option {
	return func(g *Generator) {
		if d > 0 {
			g.period = d
		}
	}
}

// WithFadeSteps sets the number of shutdown fade frames
func WithFadeSteps(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.steps = n
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithObserver attaches an event observer such as a metrics collector
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		if o != nil {
			g.obs = o
		}
	}
}

// Generator owns the output line and keeps frames flowing until a stop is
// requested, then fades the universe out and closes the line.
type Generator struct {
	state  *State
	line   dmx.Line
	enc    *dmx.Encoder
	engine *pattern.Engine
	period time.Duration
	steps  int
	logger *slog.Logger
	obs    Observer

	stage  atomic.Int32
	frames atomic.Uint64
	done   chan struct{}
	err    error
}

// Start opens the line and launches the generation loop. An open failure
// is returned as a startup error and no loop is started.
func Start(ctx context.Context, state *State, open dmx.Opener, opts ...Option) (*Generator, error) {
	g := &Generator{
		state:  state,
		engine: pattern.NewEngine(),
		period: DefaultTickPeriod,
		steps:  DefaultFadeSteps,
		logger: slog.Default(),
		obs:    nopObserver{},
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "generator")
	g.setStage(StageStarting)

	line, err := open()
	if err != nil {
		g.setStage(StageStopped)
		if dmx.KindOf(err) == "" {
			err = dmx.StartupError("open line", err)
		}
		return nil, err
	}
	g.line = line
	g.enc = dmx.NewEncoder(line)
	if p, ok := line.(dmx.Paced); ok {
		if floor := p.MinFramePeriod(); g.period < floor {
			g.logger.Warn("tick period is shorter than a frame on the wire", "period", g.period, "using", floor)
			g.period = floor
		}
	}

	go g.run(ctx)
	return g, nil
}

// Stage returns the current lifecycle stage
func (g *Generator) Stage() Stage {
	return Stage(g.stage.Load())
}

// Frames returns how many frames were transmitted
func (g *Generator) Frames() uint64 {
	return g.frames.Load()
}

// Done is closed when the generator reaches Stopped
func (g *Generator) Done() <-chan struct{} {
	return g.done
}

// Err returns the fatal error, if any, once the generator has stopped
func (g *Generator) Err() error {
	select {
	case <-g.done:
		return g.err
	default:
		return nil
	}
}

// Wait blocks until the generator stops or timeout elapses
func (g *Generator) Wait(timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-g.done:
		return g.err
	case <-timer.C:
		return ErrJoinTimeout
	}
}

// Stop requests a stop and waits up to timeout for the fade-out to finish
func (g *Generator) Stop(timeout time.Duration) error {
	g.state.RequestStop()
	return g.Wait(timeout)
}

func (g *Generator) run(ctx context.Context) {
	defer close(g.done)
	defer g.closeLine()

	g.setStage(StageRunning)
	last, err := g.loop(ctx)
	if err == nil {
		g.setStage(StageDraining)
		err = g.drain(last)
	}
	if err != nil {
		g.err = err
		g.obs.TransmitFailed(err)
		g.logger.Error("dmx output failed", "stage", g.Stage(), "error", err)
		g.state.RequestStop()
	}
}

// loop transmits one frame per tick until a stop is observed. It returns
// the last universe that went out on the wire.
func (g *Generator) loop(ctx context.Context) (dmx.Universe, error) {
	var last dmx.Universe
	t := newTicker(g.period)
	for {
		if ctx.Err() != nil && g.state.RequestStop() {
			g.logger.Info("context cancelled, stopping output")
		}
		u, ok := g.state.advance(g.engine.Next)
		if !ok {
			return last, nil
		}
		if err := g.send(u); err != nil {
			return last, err
		}
		last = u
		g.checkTick(t.wait(ctx))
	}
}

// drain fades last to black at the normal cadence and finishes with an
// all-zero frame. It ignores cancellation so the fade always completes.
func (g *Generator) drain(last dmx.Universe) error {
	g.logger.Info("fading out universe", "steps", g.steps)
	t := newTicker(g.period)
	for _, u := range FadeOut(last, g.steps) {
		if err := g.send(u); err != nil {
			return err
		}
		g.checkTick(t.wait(context.Background()))
	}
	return g.send(dmx.Universe{})
}

func (g *Generator) checkTick(behind time.Duration) {
	if behind > 0 {
		g.obs.TickOverrun(behind)
		g.logger.Debug("tick overrun", "stage", g.Stage(), "behind", behind)
	}
}

func (g *Generator) send(u dmx.Universe) error {
	start := time.Now()
	if err := g.enc.Send(u); err != nil {
		return err
	}
	g.frames.Add(1)
	g.obs.FrameSent(g.Stage(), time.Since(start))
	return nil
}

func (g *Generator) closeLine() {
	if err := g.line.Close(); err != nil {
		g.logger.Warn("closing line failed", "error", err)
		if g.err == nil {
			g.err = dmx.TransmitError("close", err)
		}
	}
	g.setStage(StageStopped)
	g.logger.Info("signal stopped, port closed", "frames", g.Frames())
}

func (g *Generator) setStage(s Stage) {
	g.stage.Store(int32(s))
	g.obs.StageChanged(s)
}
