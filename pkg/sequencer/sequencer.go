// Package sequencer orders a package's images and drives one device
// session per image, inserting a settle delay between images that
// trigger a target reboot.
package sequencer

import (
	"time"

	"github.com/nordicdfu/serial-host/internal/logging"
	"github.com/nordicdfu/serial-host/pkg/archive"
	"github.com/nordicdfu/serial-host/pkg/dfu"
	"github.com/nordicdfu/serial-host/pkg/manifest"
)

// DefaultSettleDelay is how long to wait for the target to reboot and
// re-enumerate after flashing SoftDevice+Bootloader, SoftDevice, or
// Bootloader.
const DefaultSettleDelay = 1 * time.Second

// order is the fixed transmission order: images not present in the
// package are skipped.
var order = []manifest.Kind{
	manifest.SoftDeviceBootloader,
	manifest.SoftDevice,
	manifest.Bootloader,
	manifest.Application,
}

// Session opens one device session and returns a ready-to-use Client
// plus a closer the sequencer calls once the image transfer completes.
// Implementations reopen the serial link each call: after flashing
// SoftDevice/Bootloader the target reboots and re-enumerates, so a new
// handshake (ping/PRN/MTU) is required for the next image.
type Session func() (client *dfu.Client, closeSession func() error, err error)

// ProgressFunc reports per-image, per-phase transfer progress.
type ProgressFunc func(kind manifest.Kind, phase string, sent, total int)

// Sequencer orchestrates a multi-image update.
type Sequencer struct {
	Open        Session
	SettleDelay time.Duration
	Progress    ProgressFunc
}

// New returns a Sequencer with the default settle delay.
func New(open Session) *Sequencer {
	return &Sequencer{Open: open, SettleDelay: DefaultSettleDelay}
}

// Run transfers every image present in pkg, reading init packet and
// firmware bytes for each from ar, in the fixed transmission order.
func (s *Sequencer) Run(pkg *manifest.Package, ar *archive.Reader) error {
	var attempted []manifest.Image
	for _, kind := range order {
		if img, ok := pkg.Images[kind]; ok {
			attempted = append(attempted, img)
		}
	}

	for i, img := range attempted {
		if err := s.runOne(img, ar); err != nil {
			return err
		}
		if i < len(attempted)-1 {
			logging.Info("sequencer: settling %s before next image", s.SettleDelay)
			time.Sleep(s.SettleDelay)
		}
	}
	return nil
}

func (s *Sequencer) runOne(img manifest.Image, ar *archive.Reader) error {
	logging.Info("sequencer: transferring %s image", img.Kind)

	initBuf, err := ar.ReadFile(img.DatFile)
	if err != nil {
		return err
	}
	fwBuf, err := ar.ReadFile(img.BinFile)
	if err != nil {
		return err
	}

	client, closeSession, err := s.Open()
	if err != nil {
		return err
	}
	defer closeSession()

	if err := client.TransferInitPacket(initBuf); err != nil {
		return err
	}

	progress := func(sent, total int) {
		if s.Progress != nil {
			s.Progress(img.Kind, "firmware", sent, total)
		}
	}
	if err := client.TransferFirmware(fwBuf, progress); err != nil {
		return err
	}

	logging.Info("sequencer: %s image complete", img.Kind)
	return nil
}
