// Package serialport connects the DMX encoder to a USB serial adapter
package serialport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"

	"github.com/james-see/opendmx/pkg/dmx"
)

// DMX512 line settings, not configurable
const (
	BaudRate = 250000
	DataBits = 8
)

// DefaultMatch is the device path fragment FTDI adapters show up under on macOS
const DefaultMatch = "usbserial"

// Mode returns the fixed DMX512 serial mode: 250k baud, 8N2
func Mode() *serial.Mode {
	return &serial.Mode{
		BaudRate: BaudRate,
		DataBits: DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.TwoStopBits,
	}
}

// Port adapts a serial.Port to dmx.Line
type Port struct {
	path string
	port serial.Port
}

var (
	_ dmx.Line  = (*Port)(nil)
	_ dmx.Paced = (*Port)(nil)
)

// Open opens path with the DMX512 line settings
func Open(path string) (*Port, error) {
	p, err := serial.Open(path, Mode())
	if err != nil {
		return nil, dmx.StartupError("open "+path, err)
	}
	return &Port{path: path, port: p}, nil
}

// Opener returns a dmx.Opener for path
func Opener(path string) dmx.Opener {
	return func() (dmx.Line, error) {
		return Open(path)
	}
}

// Path returns the device path
func (p *Port) Path() string {
	return p.path
}

// Break holds the line low for d
func (p *Port) Break(d time.Duration) error {
	return p.port.Break(d)
}

// MinFramePeriod is the wire time of one frame. Write returns once the
// kernel has the bytes, so a shorter tick would break into a frame still
// being shifted out.
func (p *Port) MinFramePeriod() time.Duration {
	return dmx.FrameTime(BaudRate)
}

// Write queues a frame for transmission
func (p *Port) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

// Close waits for queued bytes to leave the UART, then closes the port
func (p *Port) Close() error {
	drainErr := p.port.Drain()
	if err := p.port.Close(); err != nil {
		return fmt.Errorf("close %s: %w", p.path, err)
	}
	if drainErr != nil {
		return fmt.Errorf("drain %s: %w", p.path, drainErr)
	}
	return nil
}

// Lister enumerates serial device paths
type Lister func() ([]string, error)

// SystemPorts lists the serial devices known to the OS
func SystemPorts() ([]string, error) {
	return serial.GetPortsList()
}

// Discover returns the first device path containing match, case-insensitively
func Discover(list Lister, match string) (string, error) {
	paths, err := list()
	if err != nil {
		return "", dmx.StartupError("list ports", err)
	}
	needle := strings.ToLower(match)
	for _, p := range paths {
		if strings.Contains(strings.ToLower(p), needle) {
			return p, nil
		}
	}
	return "", dmx.StartupError("discover", fmt.Errorf("%w matching %q", dmx.ErrAdapterNotFound, match))
}

// Details describes one serial port for listing
type Details struct {
	Name    string
	USB     bool
	VID     string
	PID     string
	Serial  string
	Product string
	Match   bool
}

// Describe lists serial ports with USB details and flags those containing match
func Describe(match string) ([]Details, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate ports: %w", err)
	}
	needle := strings.ToLower(match)
	out := make([]Details, 0, len(ports))
	for _, p := range ports {
		out = append(out, Details{
			Name:    p.Name,
			USB:     p.IsUSB,
			VID:     p.VID,
			PID:     p.PID,
			Serial:  p.SerialNumber,
			Product: p.Product,
			Match:   needle != "" && strings.Contains(strings.ToLower(p.Name), needle),
		})
	}
	return out, nil
}
