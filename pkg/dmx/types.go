// Package dmx provides the DMX512 universe model and the Open DMX frame encoder
package dmx

import "time"

// Protocol constants
const (
	Channels  = 512          // Slots in one universe
	FrameSize = Channels + 1 // Start code plus all slots
	StartCode = 0x00         // Standard dimmer data

	MinBreak          = 88 * time.Microsecond
	MinMarkAfterBreak = 8 * time.Microsecond

	// Targets leave margin over the protocol minimums
	BreakTime      = 100 * time.Microsecond
	MarkAfterBreak = 12 * time.Microsecond
)

// Universe holds one level per channel, index 0 is channel 1
type Universe [Channels]byte

// Frame is the wire image of one universe: start code followed by 512 slots
type Frame [FrameSize]byte

// Fill sets every channel to level
func (u *Universe) Fill(level uint8) {
	for i := range u {
		u[i] = level
	}
}

// Line is the output device a frame is written to.
//
// Break holds the line low for at least d and releases it before returning.
type Line interface {
	Break(d time.Duration) error
	Write(p []byte) (int, error)
	Close() error
}

// Paced is implemented by lines that need a minimum interval between
// frames, usually the time one frame occupies the wire
type Paced interface {
	MinFramePeriod() time.Duration
}

// FrameTime is how long a full frame occupies a line running at baud with
// 8N2 framing, break and mark after break included
func FrameTime(baud int) time.Duration {
	const bitsPerSlot = 11 // start, 8 data, 2 stop
	return BreakTime + MarkAfterBreak + time.Duration(FrameSize*bitsPerSlot)*time.Second/time.Duration(baud)
}

// Opener opens the output line once per generator lifetime
type Opener func() (Line, error)
