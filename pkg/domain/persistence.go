package domain

import "context"

// SnapshotStore persists the whole collection as one opaque payload.
// Implementations replace the previous snapshot on every write; there are no
// partial reads or writes.
type SnapshotStore interface {
	// ReadSnapshot returns the stored payload or ErrSnapshotNotFound.
	ReadSnapshot(ctx context.Context) ([]byte, error)
	// WriteSnapshot replaces the stored payload.
	WriteSnapshot(ctx context.Context, payload []byte) error
	// Driver names the backend, e.g. "file" or "sqlite".
	Driver() string
}
