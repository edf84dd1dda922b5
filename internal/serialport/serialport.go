// Package serialport is the concrete serial driver behind transport.Link:
// open a named port with RTS asserted, a bounded per-read timeout, raw
// mode. RTS/CTS handshaking itself is not enabled: the port mode has no
// flow-control setting. go.bug.st/serial gives a single cross-platform
// implementation, so there is one file here for every target.
package serialport

import (
	"time"

	"go.bug.st/serial"

	"github.com/nordicdfu/serial-host/internal/dfuerr"
)

// readTimeout bounds each read (~500ms), so a hung target surfaces as
// READ_TIMEOUT rather than a blocked process.
const readTimeout = 500 * time.Millisecond

// Port is a transport.Link backed by a real serial device.
type Port struct {
	port serial.Port
}

// Open opens name at baud, 8 data bits, no parity, 1 stop bit, asserting
// RTS. It does not enable RTS/CTS flow control.
func Open(name string, baud int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, dfuerr.Wrapf(dfuerr.IOError, err, "opening serial port %q", name)
	}
	if err := p.SetReadTimeout(readTimeout); err != nil {
		p.Close()
		return nil, dfuerr.Wrap(dfuerr.IOError, err, "setting read timeout")
	}
	if err := p.SetRTS(true); err != nil {
		p.Close()
		return nil, dfuerr.Wrap(dfuerr.IOError, err, "asserting RTS for hardware flow control")
	}

	return &Port{port: p}, nil
}

// Write transmits all of p and drains before returning.
func (pt *Port) Write(p []byte) (int, error) {
	n, err := pt.port.Write(p)
	if err != nil {
		return n, err
	}
	return n, pt.port.Drain()
}

// Read returns the number of bytes read, possibly 0 if the configured
// read timeout elapses with nothing received.
func (pt *Port) Read(p []byte) (int, error) {
	return pt.port.Read(p)
}

// Close closes the port.
func (pt *Port) Close() error {
	return pt.port.Close()
}
