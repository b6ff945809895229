package engine

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ModelStore is the fixed asset location the model bundles are read from.
type ModelStore interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

type dirStore struct {
	fsys fs.FS
}

// NewDirStore serves model files from a local directory.
func NewDirStore(dir string) ModelStore {
	return &dirStore{fsys: os.DirFS(dir)}
}

// NewFSStore serves model files from any fs.FS, e.g. an embedded tree.
func NewFSStore(fsys fs.FS) ModelStore {
	return &dirStore{fsys: fsys}
}

func (s *dirStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !fs.ValidPath(name) {
		return nil, fmt.Errorf("invalid model asset path %q", name)
	}

	return s.fsys.Open(name)
}
