// Package transport sends and receives single SLIP-framed datagrams over
// a Link. It owns the per-session scratch state: the send encode buffer
// is sized from the negotiated MTU and reused across frames, and each
// received frame is decoded into a fresh buffer bounded by the same
// MTU-derived payload limit.
package transport

import (
	"errors"
	"io"

	"github.com/nordicdfu/serial-host/internal/dfuerr"
	"github.com/nordicdfu/serial-host/internal/logging"
	"github.com/nordicdfu/serial-host/pkg/slip"
)

// Link is the serial-driver contract this transport is built on:
// open/close are the caller's responsibility, Write transmits and
// drains, Read reads whatever arrived within the driver's per-read
// timeout window (possibly zero bytes on timeout).
type Link interface {
	Write(p []byte) (n int, err error)
	Read(p []byte) (n int, err error)
}

// defaultMaxPayload is used before the device's MTU is known, i.e. during
// the handshake opcodes (Ping/ReceiptNotifSet/MtuGet), all of which have
// tiny fixed payloads.
const defaultMaxPayload = 32

// Transport frames and deframes single datagrams over a Link.
type Transport struct {
	link       Link
	maxPayload int
	sendBuf    []byte
	readByte   []byte
}

// New wraps link with a Transport sized for the handshake opcodes.
// SetMaxPayload should be called once the device's MTU is known.
func New(link Link) *Transport {
	t := &Transport{link: link, readByte: make([]byte, 1)}
	t.SetMaxPayload(defaultMaxPayload)
	return t
}

// SetMaxPayload resizes the transport's scratch buffers for the largest
// opcode payload it will be asked to send, bounded by the device's MTU.
func (t *Transport) SetMaxPayload(maxPayload int) {
	t.maxPayload = maxPayload
	t.sendBuf = make([]byte, 0, 2*maxPayload+1)
}

// SendFrame SLIP-encodes payload and writes it to the link as one frame.
func (t *Transport) SendFrame(payload []byte) error {
	if len(payload) > t.maxPayload {
		return dfuerr.Newf(dfuerr.TooLarge, "frame payload of %d bytes exceeds limit of %d", len(payload), t.maxPayload)
	}
	t.sendBuf = slip.EncodeInto(t.sendBuf, payload)
	logging.Trace("slip tx: % x", t.sendBuf)
	if _, err := t.link.Write(t.sendBuf); err != nil {
		return dfuerr.Wrap(dfuerr.IOError, err, "serial write")
	}
	return nil
}

// ReceiveFrame reads and deframes exactly one SLIP datagram, skipping any
// stray empty frames (a bare END seen between real frames, e.g. after a
// device reset). It surfaces READ_TIMEOUT if the link reports zero bytes
// within its own per-read timeout, and BUFFER_OVERFLOW if the frame grows
// beyond the transport's configured payload limit.
func (t *Transport) ReceiveFrame() ([]byte, error) {
	dec := slip.NewDecoder(t.maxPayload)
	for {
		n, err := t.link.Read(t.readByte)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, dfuerr.Wrap(dfuerr.IOError, err, "serial read")
		}
		if n == 0 {
			return nil, dfuerr.New(dfuerr.ReadTimeout, "no bytes from device within read window")
		}

		b := t.readByte[0]
		frame, done, ferr := dec.Feed(b)
		if ferr != nil {
			if errors.Is(ferr, slip.ErrOverflow) {
				return nil, dfuerr.Wrap(dfuerr.BufferOverflow, ferr, "receive staging buffer overflow")
			}
			return nil, dfuerr.Wrap(dfuerr.FramingError, ferr, "slip decode")
		}
		if !done {
			continue
		}
		if len(frame) == 0 {
			logging.Trace("slip rx: dropped empty frame")
			continue
		}
		logging.Trace("slip rx: % x", frame)
		return frame, nil
	}
}
