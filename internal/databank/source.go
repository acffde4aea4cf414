package databank

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path"

	"github.com/cockroachdb/errors"

	"github.com/tyler180/allstar-rosters/internal/frame"
)

// Source hands out raw databank tables by file name.
type Source interface {
	Load(ctx context.Context, name string) (*frame.Frame, error)
}

// FSSource reads <name>.csv from a file system.
type FSSource struct {
	FS fs.FS
}

// DirSource reads from a local download directory.
func DirSource(dir string) FSSource { return FSSource{FS: os.DirFS(dir)} }

func (s FSSource) Load(_ context.Context, name string) (*frame.Frame, error) {
	return frame.LoadCSV(s.FS, name)
}

// BlobGetter is the read half of an object store.
type BlobGetter interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// BlobSource reads <prefix>/<name>.csv from an object store.
type BlobSource struct {
	Store  BlobGetter
	Prefix string
}

func (s BlobSource) Load(ctx context.Context, name string) (*frame.Frame, error) {
	key := path.Join(s.Prefix, frame.ForceExtension(name, "csv"))
	b, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key)
	}
	f, err := frame.ReadCSV(bytes.NewReader(b))
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", key)
	}
	return f, nil
}
