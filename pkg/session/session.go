// Package session wires the output engine to its command sources for one
// run of the program
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/james-see/opendmx/pkg/api"
	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/dmx"
	"github.com/james-see/opendmx/pkg/metrics"
	"github.com/james-see/opendmx/pkg/midictl"
)

// Options configures a Session
type Options struct {
	Open   dmx.Opener
	Device string // shown to the operator
	Addr   string // HTTP listen address, empty disables the API
	MIDIIn string // MIDI input port, empty disables MIDI
	MIDICC uint8
	Logger *slog.Logger

	// TickPeriod overrides controller.DefaultTickPeriod when non-zero
	TickPeriod  time.Duration
	JoinTimeout time.Duration
}

// Session is a started output engine with its shared state and sources
type Session struct {
	State      *controller.State
	Generator  *controller.Generator
	Dispatcher *controller.Dispatcher
	Registry   *prometheus.Registry
	Metrics    *metrics.EngineMetrics
	Device     string

	opts     Options
	logger   *slog.Logger
	api      *api.Server
	stopMIDI func()

	stopOnce sync.Once
	stopBy   time.Time // join deadline, counted from the first stop seen
}

// Logger returns the session logger
func (s *Session) Logger() *slog.Logger {
	return s.logger
}

// MIDICC returns the control change number mapped to the master level
func (s *Session) MIDICC() uint8 {
	return s.opts.MIDICC
}

// Front is the operator-facing command source that decides when the run ends
type Front func(ctx context.Context, s *Session) error

// Start opens the line and begins generating frames. A startup error means
// nothing was transmitted.
func Start(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = controller.DefaultJoinTimeout
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewEngineMetrics(reg)
	if err != nil {
		return nil, err
	}

	// the MIDI port is resolved before the line is opened so a bad port
	// name fails without a single frame going out
	var input *midictl.Input
	if opts.MIDIIn != "" {
		input, err = midictl.Open(opts.MIDIIn, logger)
		if err != nil {
			return nil, dmx.StartupError("midi", err)
		}
	}

	state := controller.NewState()
	genOpts := []controller.Option{
		controller.WithLogger(logger),
		controller.WithObserver(m),
	}
	if opts.TickPeriod > 0 {
		genOpts = append(genOpts, controller.WithTickPeriod(opts.TickPeriod))
	}
	gen, err := controller.Start(ctx, state, opts.Open, genOpts...)
	if err != nil {
		if input != nil {
			_ = input.Close()
		}
		return nil, err
	}

	s := &Session{
		State:      state,
		Generator:  gen,
		Dispatcher: controller.NewDispatcher(state, logger, m),
		Registry:   reg,
		Metrics:    m,
		Device:     opts.Device,
		opts:       opts,
		logger:     logger,
	}

	if input != nil {
		mapping := midictl.DefaultMapping()
		mapping.LevelCC = opts.MIDICC
		stop, err := input.Listen(s.Dispatcher.For(midictl.Source), mapping)
		if err != nil {
			_ = input.Close()
			_ = gen.Stop(opts.JoinTimeout)
			return nil, err
		}
		s.stopMIDI = stop
	}

	if opts.Addr != "" {
		s.api = api.NewServer(s.Dispatcher.For(api.Source), state, gen, reg, logger)
	}
	return s, nil
}

// Run serves the HTTP API and front until front returns, the generator
// stops or ctx ends. It then requests a stop and waits for the fade-out.
// A nil front runs headless.
func (s *Session) Run(ctx context.Context, front Front) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	// any source ending ends the run; the TUI follows the stop flag
	g.Go(func() error {
		select {
		case <-s.Generator.Done():
		case <-s.State.Done():
		case <-gctx.Done():
		}
		s.requestStop()
		cancel()
		return nil
	})

	if s.api != nil {
		g.Go(func() error {
			return s.api.Serve(gctx, s.opts.Addr)
		})
	}

	if front != nil {
		g.Go(func() error {
			defer cancel()
			return front(gctx, s)
		})
	}

	runErr := g.Wait()
	return errors.Join(runErr, s.Close())
}

// requestStop requests a stop and starts the join clock
func (s *Session) requestStop() {
	s.stopOnce.Do(func() {
		s.stopBy = time.Now().Add(s.opts.JoinTimeout)
	})
	s.State.RequestStop()
}

// Close requests a stop, waits for the generator and releases the sources.
// The wait is bounded by JoinTimeout from the moment the stop was first
// seen, so time a front already spent waiting counts against it. The
// generator's own failure, if any, is returned.
func (s *Session) Close() error {
	if s.stopMIDI != nil {
		s.stopMIDI()
		s.stopMIDI = nil
	}
	s.requestStop()
	select {
	case <-s.Generator.Done():
		return s.Generator.Err()
	default:
	}
	if err := s.Generator.Wait(time.Until(s.stopBy)); err != nil {
		if errors.Is(err, controller.ErrJoinTimeout) {
			s.logger.Error("dmx output did not stop in time", "timeout", s.opts.JoinTimeout)
		}
		return err
	}
	return nil
}
