package blob

import (
	"context"
	"errors"
	"io"

	"github.com/sirupsen/logrus"
)

// Fallback writes to a primary store and degrades to memory when the primary
// cannot be written. Reads consult the primary first, then memory.
type Fallback struct {
	primary BlobStore
	memory  *MemoryStore
	log     logrus.FieldLogger
}

// NewFallback wraps primary. A nil primary means memory only.
func NewFallback(primary BlobStore, log logrus.FieldLogger) *Fallback {
	return &Fallback{primary: primary, memory: NewMemoryStore(), log: log}
}

// Put needs to replay the reader after a primary failure, so r must be an
// io.Seeker for the fallback to kick in (multipart files always are).
func (f *Fallback) Put(ctx context.Context, kind Kind, name string, r io.Reader) (int64, error) {
	if f.primary == nil {
		return f.memory.Put(ctx, kind, name, r)
	}
	n, err := f.primary.Put(ctx, kind, name, r)
	if err == nil || !errors.Is(err, ErrStorageUnavailable) {
		return n, err
	}

	seeker, ok := r.(io.Seeker)
	if !ok {
		return 0, err
	}
	if _, serr := seeker.Seek(0, io.SeekStart); serr != nil {
		return 0, err
	}
	f.log.WithError(err).WithFields(logrus.Fields{
		"kind": kind,
		"name": name,
	}).Warn("Blob storage unavailable, keeping upload in memory")
	return f.memory.Put(ctx, kind, name, r)
}

func (f *Fallback) Open(ctx context.Context, kind Kind, name string) (io.ReadCloser, error) {
	if f.primary != nil {
		rc, err := f.primary.Open(ctx, kind, name)
		if err == nil {
			return rc, nil
		}
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrStorageUnavailable) {
			return nil, err
		}
	}
	return f.memory.Open(ctx, kind, name)
}

func (f *Fallback) Exists(ctx context.Context, kind Kind, name string) (bool, error) {
	if ok, _ := f.memory.Exists(ctx, kind, name); ok {
		return true, nil
	}
	if f.primary == nil {
		return false, nil
	}
	ok, err := f.primary.Exists(ctx, kind, name)
	if errors.Is(err, ErrStorageUnavailable) {
		// Put will fall back to memory, which was just checked
		f.log.WithError(err).WithFields(logrus.Fields{
			"kind": kind,
			"name": name,
		}).Warn("Blob storage unavailable, checking memory only")
		return false, nil
	}
	return ok, err
}

func (f *Fallback) Delete(ctx context.Context, kind Kind, name string) error {
	memErr := f.memory.Delete(ctx, kind, name)
	if f.primary == nil {
		return memErr
	}
	err := f.primary.Delete(ctx, kind, name)
	if errors.Is(err, ErrNotFound) && memErr == nil {
		return nil
	}
	return err
}
