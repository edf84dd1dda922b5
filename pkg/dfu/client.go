// Package dfu implements the DFU protocol client and the object transfer
// engine built on top of it: one function per opcode, the response
// validation every exchange requires, and the recover/stream/execute
// algorithm that drives the device's remote object store.
package dfu

import (
	"github.com/nordicdfu/serial-host/internal/dfuerr"
	"github.com/nordicdfu/serial-host/internal/logging"
	"github.com/nordicdfu/serial-host/pkg/transport"
	"github.com/nordicdfu/serial-host/pkg/wire"
)

// Client drives one device session: open, the opcode request/response
// exchanges, and the object transfer engine built on top of them. A
// Client's session state (ping id, PRN, mtu) is owned for the lifetime of
// one open→close cycle.
type Client struct {
	t      *transport.Transport
	pingID byte
	prn    uint16
	mtu    uint16
}

// NewClient wraps a Link-backed Transport. Call Open before issuing any
// object transfer.
func NewClient(t *transport.Transport) *Client {
	return &Client{t: t}
}

// MTU returns the device-reported MTU cached at Open time.
func (c *Client) MTU() uint16 { return c.mtu }

// Open performs the session handshake: ping, disable PRN, fetch MTU.
func (c *Client) Open() error {
	c.pingID++
	echoed, err := c.ping(c.pingID)
	if err != nil {
		return err
	}
	if echoed != c.pingID {
		return dfuerr.Newf(dfuerr.ProtocolError, "ping id mismatch: sent %d, echoed %d", c.pingID, echoed)
	}

	c.prn = 0
	if err := c.receiptNotifSet(c.prn); err != nil {
		return err
	}

	mtu, err := c.mtuGet()
	if err != nil {
		return err
	}
	c.mtu = mtu
	c.t.SetMaxPayload(maxOpcodePayload(mtu))
	logging.Info("dfu: session open, ping=%d mtu=%d", c.pingID, mtu)
	return nil
}

// Close is a no-op at the protocol level: the caller is responsible for
// closing the underlying serial link. It exists so callers have a
// symmetric place to release client-owned state.
func (c *Client) Close() error {
	return nil
}

// largestFixedMessage is the biggest fixed-size control exchange the
// protocol ever produces, independent of the negotiated MTU: ObjectSelect's
// response (0x60, op, result, 12-byte body). The transport's buffers must
// always accommodate it, even when the MTU-derived write chunk is smaller.
const largestFixedMessage = 15

// maxOpcodePayload bounds the largest single opcode payload the protocol
// can produce for a given MTU: either an ObjectWrite frame carrying up to
// write_max bytes, or the largest fixed-size control response, whichever
// is bigger.
func maxOpcodePayload(mtu uint16) int {
	payload := int(mtu)
	if mtu >= 5 {
		writeMax := int(mtu-1)/2 - 1
		payload = writeMax + 1 // + opcode byte
		if payload > int(mtu) {
			payload = int(mtu)
		}
	}
	if payload < largestFixedMessage {
		payload = largestFixedMessage
	}
	return payload
}

func (c *Client) ping(id byte) (byte, error) {
	resp, err := c.request(OpPing, []byte{id}, 1)
	if err != nil {
		return 0, err
	}
	return resp[0], nil
}

func (c *Client) receiptNotifSet(prn uint16) error {
	req := wire.AppendUint16(make([]byte, 0, 2), prn)
	_, err := c.request(OpReceiptNotifSet, req, 0)
	return err
}

func (c *Client) mtuGet() (uint16, error) {
	resp, err := c.request(OpMtuGet, nil, 2)
	if err != nil {
		return 0, err
	}
	return wire.Uint16(resp), nil
}

func (c *Client) objectSelect(objType ObjectType) (ObjectInfo, error) {
	resp, err := c.request(OpObjectSelect, []byte{byte(objType)}, 12)
	if err != nil {
		return ObjectInfo{}, err
	}
	return ObjectInfo{
		MaxSize: wire.Uint32(resp[0:4]),
		Offset:  wire.Uint32(resp[4:8]),
		CRC:     wire.Uint32(resp[8:12]),
	}, nil
}

func (c *Client) objectCreate(objType ObjectType, size uint32) error {
	req := make([]byte, 0, 5)
	req = append(req, byte(objType))
	req = wire.AppendUint32(req, size)
	_, err := c.request(OpObjectCreate, req, 0)
	return err
}

// objectWrite issues a single ObjectWrite frame. PRN is disabled, so no
// response is expected or awaited here: progress is verified out-of-band
// via crcGet.
func (c *Client) objectWrite(chunk []byte) error {
	frame := make([]byte, 0, len(chunk)+1)
	frame = append(frame, byte(OpObjectWrite))
	frame = append(frame, chunk...)
	logging.Protocol("dfu: write %d bytes", len(chunk))
	return c.t.SendFrame(frame)
}

func (c *Client) crcGet() (offset uint32, crc uint32, err error) {
	resp, err := c.request(OpCrcGet, nil, 8)
	if err != nil {
		return 0, 0, err
	}
	return wire.Uint32(resp[0:4]), wire.Uint32(resp[4:8]), nil
}

func (c *Client) objectExecute() error {
	_, err := c.request(OpObjectExecute, nil, 0)
	return err
}

// request sends opcode+payload as one frame, reads exactly one response
// frame, and validates it: RESPONSE prefix, echoed opcode, SUCCESS
// result, and exact payload length. wantLen < 0 means any length is
// accepted.
func (c *Client) request(op Opcode, payload []byte, wantLen int) ([]byte, error) {
	frame := make([]byte, 0, len(payload)+1)
	frame = append(frame, byte(op))
	frame = append(frame, payload...)
	logging.Protocol("dfu: request opcode=0x%02x len=%d", byte(op), len(payload))
	if err := c.t.SendFrame(frame); err != nil {
		return nil, err
	}

	resp, err := c.t.ReceiveFrame()
	if err != nil {
		return nil, err
	}
	if len(resp) < 3 {
		return nil, dfuerr.Newf(dfuerr.ProtocolError, "response frame too short: %d bytes", len(resp))
	}
	if resp[0] != opResponsePrefix {
		return nil, dfuerr.Newf(dfuerr.ProtocolError, "response missing RESPONSE prefix: got 0x%02x", resp[0])
	}
	if resp[1] != byte(op) {
		return nil, dfuerr.Newf(dfuerr.ProtocolError, "response echoes opcode 0x%02x, expected 0x%02x", resp[1], byte(op))
	}
	result := resp[2]
	body := resp[3:]
	if result != resultCodeSuccess {
		var ext *byte
		if len(body) >= 1 {
			e := body[0]
			ext = &e
		}
		return nil, dfuerr.Remote(result, ext)
	}
	if wantLen >= 0 && len(body) != wantLen {
		return nil, dfuerr.Newf(dfuerr.ProtocolError, "response payload is %d bytes, expected %d", len(body), wantLen)
	}
	logging.Protocol("dfu: response opcode=0x%02x result=0x%02x len=%d", byte(op), result, len(body))
	return body, nil
}
