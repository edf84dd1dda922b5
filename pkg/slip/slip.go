// Package slip implements SLIP (Serial Line IP) byte-stuffing framing:
// END/ESC escaping over a byte stream, the framing scheme the DFU serial
// protocol uses to delimit datagrams.
package slip

import "errors"

const (
	END    byte = 0xC0
	ESC    byte = 0xDB
	ESCEND byte = 0xDC
	ESCESC byte = 0xDD
)

// ErrOverflow is returned by Decoder.Feed when accepting a byte would grow
// the in-progress frame beyond the configured maximum length.
var ErrOverflow = errors.New("slip: frame exceeds maximum length")

// ErrBadEscape is returned for any invalid escape sequence: an ESC byte
// followed by anything other than ESCEND/ESCESC, including END itself.
var ErrBadEscape = errors.New("slip: invalid escape sequence")

// Encode returns src framed as a single SLIP datagram: END/ESC bytes
// escaped, terminated by one END byte. The result is at most
// 2*len(src)+1 bytes.
func Encode(src []byte) []byte {
	return EncodeInto(make([]byte, 0, 2*len(src)+1), src)
}

// EncodeInto appends the SLIP encoding of src to dst[:0] and returns the
// (possibly reallocated) slice, letting callers reuse scratch buffers
// across frames the way the transport layer does.
func EncodeInto(dst, src []byte) []byte {
	dst = dst[:0]
	for _, b := range src {
		switch b {
		case END:
			dst = append(dst, ESC, ESCEND)
		case ESC:
			dst = append(dst, ESC, ESCESC)
		default:
			dst = append(dst, b)
		}
	}
	return append(dst, END)
}

// Decoder is a streaming SLIP deframer: feed it one byte at a time as it
// arrives off the wire and it reports when a complete frame is available.
type Decoder struct {
	buf     []byte
	escaped bool
	maxLen  int // 0 means unbounded
}

// NewDecoder returns a Decoder. maxLen bounds the in-progress frame size;
// pass 0 for no bound.
func NewDecoder(maxLen int) *Decoder {
	return &Decoder{maxLen: maxLen}
}

// Feed processes one byte. When it completes a frame, done is true and
// frame holds the accumulated payload (nil/empty for a bare END with no
// preceding payload bytes — callers should discard these and keep
// reading). Feed returns a non-nil err on malformed escape sequences or
// on overflow; the decoder's internal state is left reset after either a
// completed frame or an error, ready to start a new frame with no sync
// gymnastics.
func (d *Decoder) Feed(b byte) (frame []byte, done bool, err error) {
	switch {
	case d.escaped:
		d.escaped = false
		switch b {
		case ESCEND:
			d.buf = append(d.buf, END)
		case ESCESC:
			d.buf = append(d.buf, ESC)
		default:
			d.reset()
			return nil, false, ErrBadEscape
		}
	case b == ESC:
		d.escaped = true
		return nil, false, nil
	case b == END:
		frame = d.buf
		d.reset()
		return frame, true, nil
	default:
		d.buf = append(d.buf, b)
	}

	if d.maxLen > 0 && len(d.buf) > d.maxLen {
		d.reset()
		return nil, false, ErrOverflow
	}
	return nil, false, nil
}

func (d *Decoder) reset() {
	d.buf = nil
	d.escaped = false
}

// Decode deframes a single complete SLIP datagram from the start of src,
// a convenience for tests and callers holding an already-buffered frame
// rather than streaming from a link. It does not preserve trailing bytes
// after the terminating END, matching the transport's single-frame
// receive semantics.
func Decode(src []byte) ([]byte, error) {
	dec := NewDecoder(0)
	for _, b := range src {
		frame, done, err := dec.Feed(b)
		if err != nil {
			return nil, err
		}
		if done {
			if frame == nil {
				frame = []byte{}
			}
			return frame, nil
		}
	}
	return nil, errors.New("slip: truncated frame")
}
