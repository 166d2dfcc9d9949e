// Package blobstore abstracts where snapshot files live. The snapshot
// reader only needs read access to named blobs, so the core interface is
// read-only; stores that can also receive snapshot files implement
// WritableStore. Local directories, in-memory maps (tests) and
// S3-compatible object storage are provided.
package blobstore

import (
	"context"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error satisfying errors.Is(err, ErrNotFound).
// The default maps to os.ErrNotExist so local stores need no translation.
var ErrNotFound = os.ErrNotExist

// BlobStore is read access to immutable named blobs.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)
	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// WritableStore is write access for stores that can receive snapshot
// files. Put replaces the named blob with data in one call; whether the
// replacement is atomic is up to the backend.
type WritableStore interface {
	BlobStore
	Put(ctx context.Context, name string, data []byte) error
}

// Blob is a read-only handle to one blob.
type Blob interface {
	io.ReaderAt
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// Mappable is an optional interface for blobs whose contents are already
// resident in memory. Bytes is zero-copy; the slice is valid until the
// blob is closed.
type Mappable interface {
	Bytes() ([]byte, error)
}

// ReadAll returns the full contents of a blob, using the zero-copy path
// when the blob supports it. The returned slice must not be used after
// the blob is closed if the blob is Mappable.
func ReadAll(b Blob) ([]byte, error) {
	if m, ok := b.(Mappable); ok {
		return m.Bytes()
	}
	data := make([]byte, b.Size())
	if _, err := io.ReadFull(io.NewSectionReader(b, 0, b.Size()), data); err != nil {
		return nil, err
	}
	return data, nil
}
