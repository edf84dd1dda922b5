package dfu

import (
	"hash/crc32"

	"github.com/nordicdfu/serial-host/internal/dfuerr"
	"github.com/nordicdfu/serial-host/internal/logging"
)

// tryRecoverInit implements the Command-object recovery table. It never
// returns a CRC_MISMATCH to the caller: a mismatch during recovery means
// "start over" (return 0).
func (c *Client) tryRecoverInit(buf []byte, sel ObjectInfo) (int, error) {
	n := len(buf)

	if sel.Offset == 0 || sel.Offset > uint32(n) {
		return 0, nil
	}

	hostCRC := crc32.ChecksumIEEE(buf[:sel.Offset])
	if hostCRC != sel.CRC {
		logging.Info("dfu: init recovery: device offset=%d crc mismatch, starting over", sel.Offset)
		return 0, nil
	}

	if sel.Offset == uint32(n) {
		if err := c.objectExecute(); err != nil {
			return 0, err
		}
		return n, nil
	}

	// 0 < offset < N and CRCs match: resume streaming the remainder.
	logging.Info("dfu: init recovery: resuming from offset=%d", sel.Offset)
	crc := sel.CRC
	err := c.streamWithCRC(buf, int(sel.Offset), n-int(sel.Offset), &crc)
	if err != nil {
		if dfuerr.Is(err, dfuerr.CRCMismatch) {
			logging.Info("dfu: init recovery: resume stream mismatched, starting over")
			return 0, nil
		}
		return 0, err
	}
	if err := c.objectExecute(); err != nil {
		return 0, err
	}
	return n, nil
}

// tryRecoverFirmware implements the Data-object recovery algorithm. Its
// postcondition (guaranteed by construction): the returned offset is 0,
// N, or a multiple of sel.MaxSize, and every byte before it has been
// accepted and executed on the device.
func (c *Client) tryRecoverFirmware(buf []byte, sel ObjectInfo) (int, error) {
	n := len(buf)
	max := int(sel.MaxSize)

	if sel.Offset > uint32(n) {
		return 0, dfuerr.Newf(dfuerr.InvalidRemoteState, "device offset %d exceeds payload length %d", sel.Offset, n)
	}
	if sel.Offset == 0 {
		return 0, nil
	}

	hostCRC := crc32.ChecksumIEEE(buf[:sel.Offset])
	tail := int(sel.Offset) % max

	if hostCRC != sel.CRC {
		rewind := tail
		if tail == 0 {
			rewind = max
		}
		recovered := int(sel.Offset) - rewind
		logging.Info("dfu: firmware recovery: crc mismatch at offset=%d, rewinding to %d", sel.Offset, recovered)
		return recovered, nil
	}

	if tail == 0 {
		logging.Info("dfu: firmware recovery: offset=%d already executed, resuming fresh object", sel.Offset)
		return int(sel.Offset), nil
	}

	// Partial object: complete it to the max_size boundary, or to the end
	// of the payload if that comes first.
	completeLen := max - tail
	if completeLen > n-int(sel.Offset) {
		completeLen = n - int(sel.Offset)
	}
	logging.Info("dfu: firmware recovery: completing partial object, offset=%d +%d bytes", sel.Offset, completeLen)
	crc := sel.CRC
	err := c.streamWithCRC(buf, int(sel.Offset), completeLen, &crc)
	if err != nil {
		if dfuerr.Is(err, dfuerr.CRCMismatch) {
			recovered := int(sel.Offset) - tail
			logging.Info("dfu: firmware recovery: completion mismatched, rewinding to %d", recovered)
			return recovered, nil
		}
		return 0, err
	}
	if err := c.objectExecute(); err != nil {
		return 0, err
	}
	return int(sel.Offset) + completeLen, nil
}
