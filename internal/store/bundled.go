package store

import (
	"embed"
	"io/fs"

	"github.com/spf13/afero"
)

//go:embed traces/*.json traces/manifest.yaml
var bundledFS embed.FS

// Bundled returns a read-only filesystem holding the traces compiled into the
// binary. Trace files and the manifest sit at its root.
func Bundled() afero.Fs {
	sub, err := fs.Sub(bundledFS, "traces")
	if err != nil {
		panic(err)
	}
	return afero.FromIOFS{FS: sub}
}
