// Package blob stores uploaded binaries (packages and icons) under generated
// names and validates uploads before they are accepted.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Kind selects the storage location of a blob.
type Kind string

const (
	KindAPK  Kind = "apks"
	KindIcon Kind = "icons"
)

// Kinds lists every storage location.
var Kinds = []Kind{KindAPK, KindIcon}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindAPK || k == KindIcon
}

var (
	ErrNotFound           = errors.New("blob not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidName        = errors.New("invalid blob name")
)

// BlobStore persists blobs keyed by kind and name.
type BlobStore interface {
	Put(ctx context.Context, kind Kind, name string, r io.Reader) (int64, error)
	Open(ctx context.Context, kind Kind, name string) (io.ReadCloser, error)
	Exists(ctx context.Context, kind Kind, name string) (bool, error)
	Delete(ctx context.Context, kind Kind, name string) error
}

// checkName rejects names that could escape the kind directory.
func checkName(kind Kind, name string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidName, kind)
	}
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || filepath.Base(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
