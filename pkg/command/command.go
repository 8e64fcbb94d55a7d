// Package command parses operator text commands into controller intents
package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/james-see/opendmx/pkg/controller"
	"github.com/james-see/opendmx/pkg/dmx"
	"github.com/james-see/opendmx/pkg/pattern"
)

var (
	// ErrEmpty is returned for blank input, which callers should ignore
	ErrEmpty = errors.New("empty command")
	// ErrHelp is returned for the help command
	ErrHelp = errors.New("help requested")
)

// Help lists the accepted commands
const Help = `Commands:
  val <0-255>  set all channels to a level
  static       hold the current levels
  fade         pulse all channels together
  rainbow      rolling wave across all 512 channels
  off          blackout all channels
  exit         fade to black and quit`

// Parse converts one input line into an intent. Levels outside 0-255 are
// clamped. Malformed input returns an intent error.
func Parse(line string) (controller.Intent, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return controller.Intent{}, ErrEmpty
	}

	switch cmd := fields[0]; cmd {
	case "val", "level", "set":
		if len(fields) != 2 {
			return controller.Intent{}, dmx.IntentError(cmd, errors.New("usage: val <0-255>"))
		}
		v, err := strconv.Atoi(fields[1])
		if err != nil {
			return controller.Intent{}, dmx.IntentError(cmd, fmt.Errorf("usage: val <0-255>: %q is not a number", fields[1]))
		}
		return controller.SetAllChannels(clampLevel(v)), nil
	case "off", "blackout":
		return controller.Blackout(), nil
	case "exit", "quit", "stop":
		return controller.Stop(), nil
	case "help", "?":
		return controller.Intent{}, ErrHelp
	default:
		if len(fields) == 1 {
			if m, err := pattern.ParseMode(cmd); err == nil {
				return controller.SetMode(m), nil
			}
		}
		return controller.Intent{}, dmx.IntentError("parse", fmt.Errorf("unknown command %q", line))
	}
}

func clampLevel(v int) uint8 {
	return uint8(max(0, min(255, v)))
}

// Feedback returns the confirmation shown after an intent was applied
func Feedback(in controller.Intent) string {
	switch in.Op {
	case controller.OpSetAll:
		return fmt.Sprintf("All channels set to %d", in.Level)
	case controller.OpBlackout:
		return "Universe blackout"
	case controller.OpStop:
		return "Fading out universe..."
	case controller.OpSetMode:
		switch in.Mode {
		case pattern.Fade:
			return "Mode: global pulse"
		case pattern.Rainbow:
			return "Mode: rainbow wave"
		default:
			return "Mode: static"
		}
	default:
		return in.String()
	}
}
