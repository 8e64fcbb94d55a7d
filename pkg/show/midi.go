package show

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/midictl"
)

const (
	defaultResolution = 480
	defaultTempo      = 120.0
)

// ErrSMPTE is returned for files timed in SMPTE frames instead of beats
var ErrSMPTE = errors.New("SMPTE time format is not supported")

// ParseFile reads a MIDI file and maps its events to cues
func ParseFile(filename string, m midictl.Mapping) (*Show, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	s, err := Parse(data, m)
	if err != nil {
		return nil, err
	}
	s.Name = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	return s, nil
}

type timedEvent struct {
	tick uint64
	msg  smf.Message
}

// Parse maps the events of all tracks through m. Tempo changes are honoured;
// events the mapping ignores only contribute to the show length.
func Parse(data []byte, m midictl.Mapping) (*Show, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}
	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrSMPTE
	}
	resolution := uint64(mt.Resolution())
	if resolution == 0 {
		return nil, errors.New("invalid MIDI resolution 0")
	}

	// merge tracks on absolute ticks; the stable sort keeps track order
	// for simultaneous events
	var events []timedEvent
	for _, track := range s.Tracks {
		var tick uint64
		for _, ev := range track {
			tick += uint64(ev.Delta)
			events = append(events, timedEvent{tick: tick, msg: ev.Message})
		}
	}
	slices.SortStableFunc(events, func(a, b timedEvent) int {
		return cmp.Compare(a.tick, b.tick)
	})

	show := &Show{Name: "MIDI Show", Tempo: defaultTempo}
	usPerBeat := uint64(60_000_000 / defaultTempo)
	tempoSeen := false
	var elapsed time.Duration
	var lastTick uint64

	for _, ev := range events {
		elapsed += time.Duration((ev.tick-lastTick)*usPerBeat/resolution) * time.Microsecond
		lastTick = ev.tick

		// tempo meta message (FF 51 03 tt tt tt)
		msg := ev.msg
		if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
			if us := uint64(msg[3])<<16 | uint64(msg[4])<<8 | uint64(msg[5]); us > 0 {
				usPerBeat = us
				if !tempoSeen {
					show.Tempo = 60_000_000.0 / float64(us)
					tempoSeen = true
				}
			}
			continue
		}

		if in, ok := m.Translate(midi.Message(msg)); ok {
			show.Cues = append(show.Cues, Cue{At: elapsed, Intent: in})
		}
	}
	show.Length = elapsed
	return show, nil
}

// Generate writes show as a single-track MIDI file using m in reverse.
// Intents m has no message for are skipped.
func Generate(show *Show, m midictl.Mapping) ([]byte, error) {
	if show == nil {
		return nil, errors.New("nil show")
	}
	tempo := show.Tempo
	if tempo <= 0 {
		tempo = defaultTempo
	}
	usPerBeat := uint64(60_000_000 / tempo)
	toTick := func(d time.Duration) uint64 {
		return uint64(d.Microseconds()) * defaultResolution / usPerBeat
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(defaultResolution)

	var track smf.Track
	track.Add(0, smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(usPerBeat >> 16),
		byte(usPerBeat >> 8),
		byte(usPerBeat),
	}))

	var current uint64
	for _, c := range show.Cues {
		msgs := encodeIntent(c.Intent, m)
		if len(msgs) == 0 {
			continue
		}
		tick := toTick(c.At)
		if tick < current {
			return nil, fmt.Errorf("cue at %s is out of order", c.At)
		}
		for i, msg := range msgs {
			delta := uint32(0)
			if i == 0 {
				delta = uint32(tick - current)
			}
			track.Add(delta, msg)
		}
		current = tick
	}

	// pad to the show length so loops keep their period
	end := toTick(show.Length)
	if end < current {
		end = current
	}
	track.Close(uint32(end - current))

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w", err)
	}

	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes show to filename as a MIDI file
func WriteFile(filename string, show *Show, m midictl.Mapping) error {
	data, err := Generate(show, m)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// encodeIntent returns the messages Translate maps back to in
func encodeIntent(in controller.Intent, m midictl.Mapping) []midi.Message {
	const channel = 0
	if in.Op == controller.OpSetAll {
		// level 0 goes through the CC as well, unlike Blackout
		v := uint8((uint16(in.Level)*127 + 127) / 255)
		return []midi.Message{midi.ControlChange(channel, m.LevelCC, v)}
	}
	keys := make([]uint8, 0, len(m.Notes))
	for key, mapped := range m.Notes {
		if mapped == in {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	key := slices.Min(keys)
	return []midi.Message{midi.NoteOn(channel, key, 100), midi.NoteOff(channel, key)}
}
