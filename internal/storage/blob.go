package storage

import (
	"context"
	"io"
)

// BlobStore keeps imported media outside Trunity, for local review of a
// package or serving it from importd under /media.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	URL(key string) (string, error)
	Upload(ctx context.Context, name string, r io.Reader) (string, error)
}
