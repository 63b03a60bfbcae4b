package blob

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// DirStore keeps blobs as files under a single directory. Keys are catalog
// ids (uuid strings), so no sanitization beyond rejecting path separators is
// needed.
type DirStore struct {
	root string
}

// NewDirStore creates the root directory if it does not exist.
func NewDirStore(root string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, err
	}
	return &DirStore{root: root}, nil
}

func (d *DirStore) path(key string) (string, error) {
	if key == "" || key != filepath.Base(key) {
		return "", errKeyNotFound(key)
	}
	return filepath.Join(d.root, key), nil
}

func (d *DirStore) Put(_ context.Context, key string, data []byte) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	// Write-then-rename so a concurrent Get never sees a partial file.
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, p)
}

func (d *DirStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := d.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errKeyNotFound(key)
	}
	return data, err
}

func (d *DirStore) Delete(_ context.Context, key string) error {
	p, err := d.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
