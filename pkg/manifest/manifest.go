// Package manifest parses a DFU package's manifest.json and binds each
// declared image to its archive file names. It recognizes the fixed
// manifest schema; a manifest that breaks it is INVALID_PACKAGE, while
// keys outside the schema are ignored.
package manifest

import (
	"encoding/json"

	"github.com/nordicdfu/serial-host/internal/dfuerr"
)

// Kind identifies which of the four image kinds a manifest entry names.
type Kind int

const (
	Application Kind = iota
	Bootloader
	SoftDevice
	SoftDeviceBootloader
)

func (k Kind) String() string {
	switch k {
	case Application:
		return "application"
	case Bootloader:
		return "bootloader"
	case SoftDevice:
		return "softdevice"
	case SoftDeviceBootloader:
		return "softdevice_bootloader"
	default:
		return "unknown"
	}
}

// Image binds one manifest entry's file names within the archive.
type Image struct {
	Kind    Kind
	BinFile string
	DatFile string
}

// Package is the set of images a manifest declares, keyed by kind.
type Package struct {
	Images map[Kind]Image
}

// rawMetadata mirrors softdevice_bootloader's info_read_only_metadata
// block. Its values are consumed by the device via the init packet, not
// by the host; parsing it is structural validation only.
type rawMetadata struct {
	BLSize uint64 `json:"bl_size"`
	SDSize uint64 `json:"sd_size"`
}

type rawImage struct {
	BinFile  string       `json:"bin_file"`
	DatFile  string       `json:"dat_file"`
	Metadata *rawMetadata `json:"info_read_only_metadata,omitempty"`
}

type rawManifest struct {
	Application          *rawImage `json:"application"`
	Bootloader           *rawImage `json:"bootloader"`
	SoftDevice           *rawImage `json:"softdevice"`
	SoftDeviceBootloader *rawImage `json:"softdevice_bootloader"`
}

type rawRoot struct {
	Manifest *rawManifest `json:"manifest"`
}

// Parse decodes manifest.json's bytes into a Package. It enforces the
// expected shape: a top-level "manifest" key mapping to an object with
// 1-2 of the four recognized image keys, each naming a bin_file and a
// dat_file. Other keys, at any level, are not checked and are ignored.
func Parse(data []byte) (*Package, error) {
	var root rawRoot
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, dfuerr.Wrap(dfuerr.InvalidPackage, err, "manifest.json is not valid JSON")
	}
	if root.Manifest == nil {
		return nil, dfuerr.New(dfuerr.InvalidPackage, "manifest.json is missing the top-level \"manifest\" key")
	}

	pkg := &Package{Images: make(map[Kind]Image)}
	add := func(kind Kind, ri *rawImage) error {
		if ri == nil {
			return nil
		}
		if ri.BinFile == "" || ri.DatFile == "" {
			return dfuerr.Newf(dfuerr.InvalidPackage, "%s entry is missing bin_file or dat_file", kind)
		}
		pkg.Images[kind] = Image{Kind: kind, BinFile: ri.BinFile, DatFile: ri.DatFile}
		return nil
	}

	if err := add(Application, root.Manifest.Application); err != nil {
		return nil, err
	}
	if err := add(Bootloader, root.Manifest.Bootloader); err != nil {
		return nil, err
	}
	if err := add(SoftDevice, root.Manifest.SoftDevice); err != nil {
		return nil, err
	}
	if err := add(SoftDeviceBootloader, root.Manifest.SoftDeviceBootloader); err != nil {
		return nil, err
	}

	if len(pkg.Images) == 0 {
		return nil, dfuerr.New(dfuerr.InvalidPackage, "manifest declares no images")
	}
	if len(pkg.Images) > 2 {
		return nil, dfuerr.Newf(dfuerr.InvalidPackage, "manifest declares %d images, expected 1-2", len(pkg.Images))
	}
	return pkg, nil
}
