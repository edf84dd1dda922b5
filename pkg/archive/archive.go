// Package archive implements a ZIP-backed package reader: open the
// distribution archive, read a named entry entirely into a freshly
// allocated buffer, close. It forwards bytes verbatim.
package archive

import (
	"archive/zip"
	"io"

	"github.com/nordicdfu/serial-host/internal/dfuerr"
)

// Reader opens a DFU distribution package (a standard ZIP archive) for
// read access to its member files.
type Reader struct {
	zr *zip.ReadCloser
}

// Open opens the package at path.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, dfuerr.Wrap(dfuerr.InvalidPackage, err, "opening package archive")
	}
	return &Reader{zr: zr}, nil
}

// ReadFile reads the named entry in full into a new byte slice.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	f, err := r.zr.Open(name)
	if err != nil {
		return nil, dfuerr.Wrapf(dfuerr.InvalidPackage, err, "archive entry %q", name)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, dfuerr.Wrapf(dfuerr.InvalidPackage, err, "reading archive entry %q", name)
	}
	return data, nil
}

// Close closes the archive.
func (r *Reader) Close() error {
	return r.zr.Close()
}
