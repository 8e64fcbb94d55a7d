package dmx

import (
	"fmt"
	"io"
	"time"
)

// Encode builds the wire image of u
func Encode(u Universe) Frame {
	var f Frame
	f[0] = StartCode
	copy(f[1:], u[:])
	return f
}

// Encoder drives break/mark timing and writes frames to a Line.
// It keeps no state between calls.
type Encoder struct {
	line  Line
	brk   time.Duration
	mab   time.Duration
	sleep func(time.Duration)
}

// NewEncoder creates an Encoder with the default break and mark-after-break targets
func NewEncoder(line Line) *Encoder {
	return &Encoder{
		line:  line,
		brk:   BreakTime,
		mab:   MarkAfterBreak,
		sleep: time.Sleep,
	}
}

// Send transmits one complete frame for u
func (e *Encoder) Send(u Universe) error {
	if err := e.line.Break(e.brk); err != nil {
		return TransmitError("break", err)
	}
	e.sleep(e.mab)

	f := Encode(u)
	n, err := e.line.Write(f[:])
	if err != nil {
		return TransmitError("write", err)
	}
	if n != FrameSize {
		return TransmitError("write", fmt.Errorf("%w: wrote %d of %d bytes", io.ErrShortWrite, n, FrameSize))
	}
	return nil
}
