package object

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ObjectStore saves uploaded resumes under an owner namespace and reads them back by key.
type ObjectStore interface {
	Save(ctx context.Context, ownerID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

// Localizer is implemented by stores whose objects already live on the local filesystem.
type Localizer interface {
	LocalPath(storageKey string) (string, error)
}

// Localize returns a filesystem path holding the object's bytes and a release func
// that must be called once the caller is done with the path. Stores without local
// files are copied into a temp file.
func Localize(ctx context.Context, store ObjectStore, storageKey string) (string, func(), error) {
	if l, ok := store.(Localizer); ok {
		p, err := l.LocalPath(storageKey)
		if err != nil {
			return "", func() {}, err
		}
		return p, func() {}, nil
	}

	body, err := store.Open(ctx, storageKey)
	if err != nil {
		return "", func() {}, err
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "resume-*"+filepath.Ext(storageKey))
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	release := func() { _ = os.Remove(tmp.Name()) }
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		release()
		return "", func() {}, fmt.Errorf("copy object %s: %w", storageKey, err)
	}
	if err := tmp.Close(); err != nil {
		release()
		return "", func() {}, fmt.Errorf("close temp file: %w", err)
	}
	return tmp.Name(), release, nil
}
