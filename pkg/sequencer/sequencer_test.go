package sequencer

import (
	"archive/zip"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nordicdfu/serial-host/pkg/archive"
	"github.com/nordicdfu/serial-host/pkg/dfu"
	"github.com/nordicdfu/serial-host/pkg/manifest"
	"github.com/nordicdfu/serial-host/pkg/slip"
	"github.com/nordicdfu/serial-host/pkg/transport"
	"github.com/nordicdfu/serial-host/pkg/wire"
)

// cleanDeviceLink is a transport.Link backing a device with no prior
// state: every ObjectSelect reports offset 0, so the transfer engine
// never enters a recovery path. It exists to exercise the sequencer in
// isolation from the object-transfer engine, which pkg/dfu already
// covers directly.
type cleanDeviceLink struct {
	mtu      uint16
	max      uint32
	written  []byte
	outgoing []byte
	pos      int
}

func (l *cleanDeviceLink) Write(p []byte) (int, error) {
	frame, err := slip.Decode(p)
	if err != nil {
		return 0, err
	}
	op := frame[0]
	body := frame[1:]

	resp := func(result byte, payload []byte) []byte {
		f := []byte{0x60, op, result}
		return append(f, payload...)
	}

	switch dfu.Opcode(op) {
	case dfu.OpPing:
		l.queue(resp(0x01, []byte{body[0]}))
	case dfu.OpReceiptNotifSet:
		l.queue(resp(0x01, nil))
	case dfu.OpMtuGet:
		l.queue(resp(0x01, wire.AppendUint16(nil, l.mtu)))
	case dfu.OpObjectSelect:
		payload := wire.AppendUint32(nil, l.max)
		payload = wire.AppendUint32(payload, 0)
		payload = wire.AppendUint32(payload, 0)
		l.queue(resp(0x01, payload))
	case dfu.OpObjectCreate:
		l.written = l.written[:0]
		l.queue(resp(0x01, nil))
	case dfu.OpObjectWrite:
		l.written = append(l.written, body...)
	case dfu.OpCrcGet:
		payload := wire.AppendUint32(nil, uint32(len(l.written)))
		payload = wire.AppendUint32(payload, crc32.ChecksumIEEE(l.written))
		l.queue(resp(0x01, payload))
	case dfu.OpObjectExecute:
		l.queue(resp(0x01, nil))
	}
	return len(p), nil
}

func (l *cleanDeviceLink) queue(frame []byte) {
	l.outgoing = append(l.outgoing, slip.Encode(frame)...)
}

func (l *cleanDeviceLink) Read(p []byte) (int, error) {
	if l.pos >= len(l.outgoing) {
		return 0, nil
	}
	n := copy(p, l.outgoing[l.pos:l.pos+1])
	l.pos++
	return n, nil
}

func newScriptedSession(t *testing.T, openCalls *[]string, label string) Session {
	t.Helper()
	return func() (*dfu.Client, func() error, error) {
		*openCalls = append(*openCalls, label)
		link := &cleanDeviceLink{mtu: 247, max: 4096}
		c := dfu.NewClient(transport.New(link))
		if err := c.Open(); err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	}
}

func writeTestZip(t *testing.T, files map[string][]byte) *archive.Reader {
	t.Helper()
	path := filepath.Join(t.TempDir(), "package.zip")
	zf, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(zf)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, zf.Close())

	r, err := archive.Open(path)
	require.NoError(t, err)
	return r
}

func TestRunOrdersImagesAndSkipsAbsentKinds(t *testing.T) {
	ar := writeTestZip(t, map[string][]byte{
		"sd_bl.dat":       {0xAA},
		"sd_bl.bin":       make([]byte, 100),
		"application.dat": {0xBB},
		"application.bin": make([]byte, 100),
	})
	defer ar.Close()

	pkg := &manifest.Package{Images: map[manifest.Kind]manifest.Image{
		manifest.SoftDeviceBootloader: {Kind: manifest.SoftDeviceBootloader, BinFile: "sd_bl.bin", DatFile: "sd_bl.dat"},
		manifest.Application:          {Kind: manifest.Application, BinFile: "application.bin", DatFile: "application.dat"},
	}}

	var opens []string
	var progressKinds []manifest.Kind

	seq := New(func() (*dfu.Client, func() error, error) {
		label := "session"
		opens = append(opens, label)
		link := &cleanDeviceLink{mtu: 247, max: 4096}
		c := dfu.NewClient(transport.New(link))
		if err := c.Open(); err != nil {
			return nil, nil, err
		}
		return c, func() error { return nil }, nil
	})
	seq.SettleDelay = time.Millisecond
	seq.Progress = func(kind manifest.Kind, phase string, sent, total int) {
		if len(progressKinds) == 0 || progressKinds[len(progressKinds)-1] != kind {
			progressKinds = append(progressKinds, kind)
		}
	}

	require.NoError(t, seq.Run(pkg, ar))
	assert.Len(t, opens, 2)
	assert.Equal(t, []manifest.Kind{manifest.SoftDeviceBootloader, manifest.Application}, progressKinds)
}

func TestRunSinglesImageSkipsSettleDelay(t *testing.T) {
	ar := writeTestZip(t, map[string][]byte{
		"application.dat": {0xBB},
		"application.bin": make([]byte, 50),
	})
	defer ar.Close()

	pkg := &manifest.Package{Images: map[manifest.Kind]manifest.Image{
		manifest.Application: {Kind: manifest.Application, BinFile: "application.bin", DatFile: "application.dat"},
	}}

	var opens []string
	seq := New(newScriptedSession(t, &opens, "only"))
	seq.SettleDelay = time.Hour // would hang the test if ever invoked

	start := time.Now()
	require.NoError(t, seq.Run(pkg, ar))
	assert.Less(t, time.Since(start), time.Second)
}
