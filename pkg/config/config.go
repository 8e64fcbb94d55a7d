// Package config binds command line flags and OPENDMX_ environment
// variables into the runtime settings
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/james-see/opendmx/pkg/serialport"
)

// EnvPrefix prefixes every environment override, e.g. OPENDMX_DEVICE
const EnvPrefix = "OPENDMX"

// Flag names, also used as viper keys
const (
	KeyMatch    = "match"
	KeyDevice   = "device"
	KeyAddr     = "addr"
	KeyMIDIIn   = "midi-in"
	KeyMIDICC   = "midi-cc"
	KeyLogLevel = "log-level"
	KeyLogFile  = "log-file"
)

// Config holds the settings for one opendmx run
type Config struct {
	Match    string // substring identifying the adapter
	Device   string // explicit serial path, skips discovery
	Addr     string // HTTP listen address, empty disables the API
	MIDIIn   string // MIDI input port name, empty disables MIDI
	MIDICC   int
	LogLevel string
	LogFile  string
}

// RegisterFlags adds the shared flags to fs
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String(KeyMatch, serialport.DefaultMatch, "Substring identifying the Open DMX adapter in the port list")
	fs.String(KeyDevice, "", "Serial device path (skips discovery)")
	fs.String(KeyAddr, "", "HTTP control listen address, e.g. :8080")
	fs.String(KeyMIDIIn, "", "MIDI input port name")
	fs.Int(KeyMIDICC, 7, "MIDI control change number for the master level")
	fs.String(KeyLogLevel, "info", "Log level (debug, info, warn, error)")
	fs.String(KeyLogFile, "", "Write logs to this file instead of stderr")
}

// Load reads fs, letting OPENDMX_* variables override flags that were not
// set explicitly
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &Config{
		Match:    v.GetString(KeyMatch),
		Device:   v.GetString(KeyDevice),
		Addr:     v.GetString(KeyAddr),
		MIDIIn:   v.GetString(KeyMIDIIn),
		MIDICC:   v.GetInt(KeyMIDICC),
		LogLevel: v.GetString(KeyLogLevel),
		LogFile:  v.GetString(KeyLogFile),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.MIDICC < 0 || c.MIDICC > 127 {
		return fmt.Errorf("invalid %s %d: must be 0-127", KeyMIDICC, c.MIDICC)
	}
	if c.Device == "" && strings.TrimSpace(c.Match) == "" {
		return fmt.Errorf("one of --%s or --%s is required", KeyDevice, KeyMatch)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel converts a level name to a slog.Level
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyLogLevel, s, err)
	}
	return l, nil
}

// Logger builds the process logger. With quiet set and no log file, output
// is discarded so it cannot draw over a full-screen UI. The returned close
// function releases the log file.
func (c *Config) Logger(quiet bool) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() error { return nil }
	switch {
	case c.LogFile != "":
		f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		w = f
		closeFn = f.Close
	case quiet:
		w = io.Discard
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}
