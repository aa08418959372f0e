package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"bookshelf/internal/blob"
	"bookshelf/pkg/domain"
)

const snapshotContentType = "application/json"

// BlobSnapshotStore keeps the snapshot as a single blob at key.
type BlobSnapshotStore struct {
	blobs blob.Store
	key   string
}

// NewBlobSnapshotStore adapts a blob store to domain.SnapshotStore.
func NewBlobSnapshotStore(blobs blob.Store, key string) *BlobSnapshotStore {
	return &BlobSnapshotStore{blobs: blobs, key: key}
}

// ReadSnapshot fetches the blob at key.
func (b *BlobSnapshotStore) ReadSnapshot(ctx context.Context) ([]byte, error) {
	_, rc, err := b.blobs.Get(ctx, b.key)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, domain.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", b.key, err)
	}
	return payload, nil
}

// WriteSnapshot replaces the blob at key.
func (b *BlobSnapshotStore) WriteSnapshot(ctx context.Context, payload []byte) error {
	_, err := b.blobs.Put(ctx, b.key, bytes.NewReader(payload), blob.PutOptions{ContentType: snapshotContentType})
	return err
}

// Driver reports "file" for the filesystem backend and the blob driver name otherwise.
func (b *BlobSnapshotStore) Driver() string {
	if b.blobs.Driver() == blob.DriverFilesystem {
		return "file"
	}
	return string(b.blobs.Driver())
}
