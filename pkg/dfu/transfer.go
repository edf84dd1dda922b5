package dfu

import (
	"hash/crc32"

	"github.com/nordicdfu/serial-host/internal/dfuerr"
	"github.com/nordicdfu/serial-host/internal/logging"
)

// ProgressFunc is called after each chunk written to the device, letting
// callers (the sequencer, telemetry) track transfer progress without the
// engine depending on them.
type ProgressFunc func(sent, total int)

// TransferInitPacket drives the Command-object algorithm: select, attempt
// recovery, create if needed, stream with CRC verification, execute.
func (c *Client) TransferInitPacket(buf []byte) error {
	n := len(buf)
	sel, err := c.objectSelect(ObjectCommand)
	if err != nil {
		return err
	}

	recovered, err := c.tryRecoverInit(buf, sel)
	if err != nil {
		return err
	}
	if recovered == n {
		logging.Info("dfu: init packet already present on device (%d bytes)", n)
		return nil
	}

	if n > int(sel.MaxSize) {
		return dfuerr.Newf(dfuerr.TooLarge, "init packet of %d bytes exceeds device max of %d", n, sel.MaxSize)
	}

	if err := c.objectCreate(ObjectCommand, uint32(n)); err != nil {
		return err
	}
	crc := uint32(0)
	if err := c.streamWithCRC(buf, 0, n, &crc); err != nil {
		return err
	}
	if err := c.objectExecute(); err != nil {
		return err
	}
	logging.Info("dfu: init packet transferred (%d bytes)", n)
	return nil
}

// TransferFirmware drives the Data-object algorithm: select, recover a
// resumable offset, then stream the remainder as a sequence of objects
// sized by the device's reported max_size.
func (c *Client) TransferFirmware(buf []byte, progress ProgressFunc) error {
	n := len(buf)
	sel, err := c.objectSelect(ObjectData)
	if err != nil {
		return err
	}

	pos, err := c.tryRecoverFirmware(buf, sel)
	if err != nil {
		return err
	}

	crc := crc32.ChecksumIEEE(buf[:pos])
	if progress != nil {
		progress(pos, n)
	}

	for pos < n {
		chunk := n - pos
		if chunk > int(sel.MaxSize) {
			chunk = int(sel.MaxSize)
		}
		if err := c.objectCreate(ObjectData, uint32(chunk)); err != nil {
			return err
		}
		if err := c.streamWithCRC(buf, pos, chunk, &crc); err != nil {
			return err
		}
		if err := c.objectExecute(); err != nil {
			return err
		}
		pos += chunk
		if progress != nil {
			progress(pos, n)
		}
	}
	logging.Info("dfu: firmware transferred (%d bytes)", n)
	return nil
}

// streamWithCRC writes buf[offset:offset+length] to the device as a
// sequence of ObjectWrite frames bounded by the MTU-derived write limit,
// updates the running CRC in place, then verifies the device's
// post-write state with CrcGet.
func (c *Client) streamWithCRC(buf []byte, offset, length int, crc *uint32) error {
	if c.mtu < 5 {
		return dfuerr.Newf(dfuerr.MTUTooSmall, "mtu of %d bytes is too small for any payload", c.mtu)
	}
	writeMax := int(c.mtu-1)/2 - 1

	for p := 0; p < length; {
		step := length - p
		if step > writeMax {
			step = writeMax
		}
		if err := c.objectWrite(buf[offset+p : offset+p+step]); err != nil {
			return err
		}
		p += step
	}

	*crc = crc32.Update(*crc, crc32.IEEETable, buf[offset:offset+length])

	gotOffset, gotCRC, err := c.crcGet()
	if err != nil {
		return err
	}
	wantOffset := uint32(offset + length)
	if gotOffset != wantOffset || gotCRC != *crc {
		return dfuerr.Newf(dfuerr.CRCMismatch, "device reports offset=%d crc=0x%08x, want offset=%d crc=0x%08x",
			gotOffset, gotCRC, wantOffset, *crc)
	}
	return nil
}
