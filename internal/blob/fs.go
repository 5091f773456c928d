package blob

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FSStore keeps blobs under root/<kind>/<name>.
type FSStore struct {
	root string
}

// NewFSStore creates the kind directories under root.
func NewFSStore(root string) (*FSStore, error) {
	for _, k := range Kinds {
		if err := os.MkdirAll(filepath.Join(root, string(k)), 0o755); err != nil {
			return nil, unavailable("create upload directory", err)
		}
	}
	return &FSStore{root: root}, nil
}

// Root returns the base directory.
func (s *FSStore) Root() string {
	return s.root
}

func (s *FSStore) path(kind Kind, name string) string {
	return filepath.Join(s.root, string(kind), name)
}

// Put writes into a temp file first and renames it into place, so readers
// never observe a partially written blob.
func (s *FSStore) Put(_ context.Context, kind Kind, name string, r io.Reader) (int64, error) {
	if err := checkName(kind, name); err != nil {
		return 0, err
	}
	dir := filepath.Join(s.root, string(kind))
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return 0, unavailable("create temp file", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, unavailable("write blob", err)
	}
	if err := os.Rename(tmp.Name(), s.path(kind, name)); err != nil {
		return 0, unavailable("rename blob", err)
	}
	return n, nil
}

func (s *FSStore) Open(_ context.Context, kind Kind, name string) (io.ReadCloser, error) {
	if err := checkName(kind, name); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path(kind, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FSStore) Exists(_ context.Context, kind Kind, name string) (bool, error) {
	if err := checkName(kind, name); err != nil {
		return false, err
	}
	_, err := os.Stat(s.path(kind, name))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (s *FSStore) Delete(_ context.Context, kind Kind, name string) error {
	if err := checkName(kind, name); err != nil {
		return err
	}
	err := os.Remove(s.path(kind, name))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	return err
}
