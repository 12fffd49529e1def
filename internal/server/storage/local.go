package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/evidencevault/vault/internal/apperr"
)

// LocalBackend is the disk-backed fallback object store. It streams
// directly to/from files beneath root; it never buffers a whole object in
// memory, matching the digest engine's own no-buffering contract.
type LocalBackend struct {
	root string
}

// NewLocalBackend ensures root exists and returns a backend rooted there,
// mirroring the lazy directory creation the teacher's internal/filex
// package uses for its own on-disk state.
func NewLocalBackend(root string) (*LocalBackend, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "resolving local storage root")
	}
	if err := os.MkdirAll(abs, 0o770); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "creating local storage root")
	}
	return &LocalBackend{root: abs}, nil
}

// path joins key under root. Cleaning key as an absolute path first means
// any ".." segments resolve within root before Join ever sees them, so
// the result can never escape the storage directory.
func (b *LocalBackend) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	return filepath.Join(b.root, clean), nil
}

func (b *LocalBackend) Put(ctx context.Context, in PutInput) error {
	full, err := b.path(in.Key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o770); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "creating object directory")
	}

	f, err := os.Create(full)
	if err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "creating object file")
	}
	defer f.Close()

	if _, err := io.Copy(f, in.Body); err != nil {
		return apperr.Wrap(apperr.KindStorage, err, "writing object")
	}
	return f.Sync()
}

func (b *LocalBackend) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := b.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.New(apperr.KindNotFound, "object not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, err, "opening object")
	}
	return f, nil
}

func (b *LocalBackend) Head(ctx context.Context, key string) (bool, error) {
	full, err := b.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(full)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, apperr.Wrap(apperr.KindStorage, err, "stat object")
}

func (b *LocalBackend) Delete(ctx context.Context, key string) error {
	full, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return apperr.Wrap(apperr.KindStorage, err, "deleting object")
	}
	return nil
}

// Presign returns a plain file:// URL. Per spec.md §4.5, callers SHOULD
// NOT rely on its authenticity — there is no signature, only a path.
func (b *LocalBackend) Presign(ctx context.Context, op Operation, key string, ttl time.Duration) (string, error) {
	full, err := b.path(key)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: full}
	return fmt.Sprintf("%s?op=%s&expires=%d", u.String(), op, time.Now().Add(ttl).Unix()), nil
}
