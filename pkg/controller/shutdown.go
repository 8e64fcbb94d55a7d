package controller

import "github.com/james-see/opendmx/pkg/dmx"

// FadeOut returns the shutdown sequence for last: steps frames, frame s
// scaled by (steps-s)/steps with integer truncation. The closing all-zero
// frame is not included.
func FadeOut(last dmx.Universe, steps int) []dmx.Universe {
	if steps <= 0 {
		return nil
	}
	out := make([]dmx.Universe, steps)
	for s := range out {
		for i, v := range last {
			out[s][i] = uint8(int(v) * (steps - s) / steps)
		}
	}
	return out
}
