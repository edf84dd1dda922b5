package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestZip(t *testing.T, files map[string][]byte) string {
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
	return path
}

func TestReadFileRoundTrip(t *testing.T) {
	path := writeTestZip(t, map[string][]byte{
		"manifest.json":   []byte(`{"manifest":{}}`),
		"application.bin": {0x01, 0x02, 0x03, 0x04},
	})

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	data, err := r.ReadFile("application.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, data)
}

func TestReadFileMissingEntry(t *testing.T) {
	path := writeTestZip(t, map[string][]byte{"manifest.json": []byte(`{}`)})

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.ReadFile("does_not_exist.bin")
	assert.Error(t, err)
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.zip"))
	assert.Error(t, err)
}
