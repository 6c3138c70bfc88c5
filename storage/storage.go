// Package storage reads item images from a remote object store.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	ErrNotFound = errors.New("object not found")
	ErrTooLarge = errors.New("object exceeds size limit")
)

// ObjectInfo is the remote metadata of a blob.
type ObjectInfo struct {
	Name    string
	Size    int64
	Updated time.Time
	Created time.Time
}

// LastModified is the update time, falling back to the creation time.
// It reports false when the store gave neither.
func (o ObjectInfo) LastModified() (time.Time, bool) {
	if !o.Updated.IsZero() {
		return o.Updated, true
	}
	if !o.Created.IsZero() {
		return o.Created, true
	}
	return time.Time{}, false
}

// ObjectStore is the read side used at runtime.
type ObjectStore interface {
	Metadata(ctx context.Context, name string) (ObjectInfo, error)
	Download(ctx context.Context, name string, maxBytes int64) ([]byte, error)
}

// Uploader is the write side used by the seeding tool.
type Uploader interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) error
}
