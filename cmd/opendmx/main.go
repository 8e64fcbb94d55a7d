// Package main is the entry point for the opendmx CLI
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // registers the system MIDI driver

	"github.com/james-see/opendmx/pkg/config"
	"github.com/james-see/opendmx/pkg/console"
	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/midictl"
	"github.com/james-see/opendmx/pkg/serialport"
	"github.com/james-see/opendmx/pkg/session"
	"github.com/james-see/opendmx/pkg/show"
	"github.com/james-see/opendmx/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	recordFile string
	loopShow   bool
)

func main() {
	defer midi.CloseDriver()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		midi.CloseDriver()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "opendmx",
	Short: "Drive an Open DMX USB adapter",
	Long: `opendmx generates a continuous DMX512 signal on an FTDI based
Open DMX adapter and lets you change what it shows while it runs.

Levels can be set from a prompt, over HTTP or from a MIDI controller.
On exit the universe fades to black before the port is closed.

Examples:
  opendmx run
  opendmx run --device /dev/ttyUSB0 --addr :8080
  opendmx console --match usbserial
  opendmx serve --addr :8080
  opendmx console --record take.mid
  opendmx play take.mid --loop
  opendmx ports`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start output with the interactive terminal UI",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start output with a plain line prompt",
	Args:  cobra.NoArgs,
	RunE:  runConsole,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start output headless, controlled over HTTP and MIDI",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var playCmd = &cobra.Command{
	Use:   "play <show.mid>",
	Short: "Play a recorded MIDI show, then fade out",
	Args:  cobra.ExactArgs(1),
	RunE:  runPlay,
}

var portsCmd = &cobra.Command{
	Use:   "ports",
	Short: "List serial and MIDI ports",
	Args:  cobra.NoArgs,
	RunE:  runPorts,
}

func init() {
	// Global flags
	config.RegisterFlags(rootCmd.PersistentFlags())

	// run and console commands
	runCmd.Flags().StringVarP(&recordFile, "record", "r", "", "Record prompt commands to a MIDI file")
	consoleCmd.Flags().StringVarP(&recordFile, "record", "r", "", "Record prompt commands to a MIDI file")

	// play command
	playCmd.Flags().BoolVarP(&loopShow, "loop", "l", false, "Repeat the show until stopped")

	// Add commands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(consoleCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(portsCmd)
}

// prompt returns the applier for an operator prompt, recording it when
// --record was given
func prompt(s *session.Session, source string) (controller.Applier, func() error) {
	app := s.Dispatcher.For(source)
	if recordFile == "" {
		return app, func() error { return nil }
	}
	rec := show.NewRecorder(app)
	return rec, func() error {
		name := strings.TrimSuffix(filepath.Base(recordFile), filepath.Ext(recordFile))
		take := rec.Show(name)
		if err := show.WriteFile(recordFile, take, mappingFor(s)); err != nil {
			return fmt.Errorf("failed to save recording: %w", err)
		}
		return nil
	}
}

func mappingFor(s *session.Session) midictl.Mapping {
	m := midictl.DefaultMapping()
	m.LevelCC = s.MIDICC()
	return m
}

func runTUI(cmd *cobra.Command, args []string) error {
	return runSession(cmd, true, func(_ context.Context, s *session.Session) error {
		app, save := prompt(s, "tui")
		err := tui.Run(app, s.State, s.Generator, s.Device)
		return errors.Join(err, save())
	})
}

func runConsole(cmd *cobra.Command, args []string) error {
	return runSession(cmd, false, func(ctx context.Context, s *session.Session) error {
		fmt.Printf("Connected to %s. Signal running.\n", s.Device)
		app, save := prompt(s, "console")
		err := console.New(os.Stdin, os.Stdout, app, s.State.Done()).Run(ctx)
		return errors.Join(err, save())
	})
}

func runPlay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	m := midictl.DefaultMapping()
	m.LevelCC = uint8(cfg.MIDICC)
	sh, err := show.ParseFile(args[0], m)
	if err != nil {
		return err
	}
	fmt.Printf("Playing %s: %d cues over %s\n", sh.Name, len(sh.Cues), sh.Length)

	return runSession(cmd, false, func(ctx context.Context, s *session.Session) error {
		return show.Play(ctx, sh, s.Dispatcher.For("show"), loopShow, s.Logger())
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	return runSession(cmd, false, nil)
}

// runSession loads the configuration, starts the engine and hands control
// to front until the run ends
func runSession(cmd *cobra.Command, fullscreen bool, front session.Front) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}
	if front == nil && cfg.Addr == "" && cfg.MIDIIn == "" {
		return fmt.Errorf("serve needs --%s or --%s to be controllable", config.KeyAddr, config.KeyMIDIIn)
	}

	logger, closeLog, err := cfg.Logger(fullscreen)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	device := cfg.Device
	if device == "" {
		device, err = serialport.Discover(serialport.SystemPorts, cfg.Match)
		if err != nil {
			return err
		}
	}
	logger.Info("using adapter", "device", device)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := session.Start(ctx, session.Options{
		Open:   serialport.Opener(device),
		Device: device,
		Addr:   cfg.Addr,
		MIDIIn: cfg.MIDIIn,
		MIDICC: uint8(cfg.MIDICC),
		Logger: logger,
	})
	if err != nil {
		return err
	}
	if cfg.Addr != "" && !fullscreen {
		fmt.Printf("HTTP control on %s, swagger docs at /swagger/index.html\n", cfg.Addr)
	}

	if err := s.Run(ctx, front); err != nil {
		return err
	}
	if !fullscreen {
		fmt.Println("Signal stopped. Port closed.")
	}
	return nil
}

func runPorts(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return err
	}

	ports, err := serialport.Describe(cfg.Match)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\tPORT\tUSB ID\tSERIAL\tPRODUCT")
	for _, p := range ports {
		mark := ""
		if p.Match {
			mark = "*"
		}
		id := ""
		if p.USB {
			id = p.VID + ":" + p.PID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", mark, p.Name, id, p.Serial, p.Product)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Println("No serial ports found.")
	}

	if ins := midictl.Ports(); len(ins) > 0 {
		fmt.Println("\nMIDI inputs:")
		for _, name := range ins {
			fmt.Printf("  %s\n", name)
		}
	}
	return nil
}
