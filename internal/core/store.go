package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bookshelf/internal/logging"
	"bookshelf/pkg/domain"
)

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("storage unavailable")

// StorageError reports a failed snapshot read or write.
type StorageError struct {
	Op     string // "load" or "save"
	Driver string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s snapshot (%s): %v", e.Op, e.Driver, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Store is the storage accessor: it loads and saves the whole collection
// through a SnapshotStore. In lenient mode (the default) failures are logged
// and absorbed: a failed load yields an empty collection and a failed save is
// dropped. In strict mode they are returned as *StorageError.
type Store struct {
	snapshots domain.SnapshotStore
	logger    *zap.Logger
	strict    bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for storage failures.
func WithStoreLogger(l *zap.Logger) StoreOption {
	return func(s *Store) { s.logger = logging.OrNop(l) }
}

// WithStrictStorage makes Load and Save return storage failures instead of absorbing them.
func WithStrictStorage(strict bool) StoreOption {
	return func(s *Store) { s.strict = strict }
}

// NewStore wraps a snapshot backend.
func NewStore(snapshots domain.SnapshotStore, opts ...StoreOption) *Store {
	s := &Store{snapshots: snapshots, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("storage", snapshots.Driver()))
	return s
}

// Driver names the snapshot backend.
func (s *Store) Driver() string { return s.snapshots.Driver() }

// Strict reports whether storage failures are surfaced to callers.
func (s *Store) Strict() bool { return s.strict }

// Load reads the current collection. A missing snapshot is an empty collection.
func (s *Store) Load(ctx context.Context) (domain.Collection, error) {
	payload, err := s.snapshots.ReadSnapshot(ctx)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return domain.Collection{}, nil
	}
	if err != nil {
		return s.loadFailed(ctx, err)
	}
	books, err := DecodeCollection(payload)
	if err != nil {
		return s.loadFailed(ctx, err)
	}
	return books, nil
}

func (s *Store) loadFailed(ctx context.Context, err error) (domain.Collection, error) {
	logging.FromContext(ctx, s.logger).Error("load books snapshot", zap.Error(err), zap.Bool("strict", s.strict))
	if s.strict {
		return nil, &StorageError{Op: "load", Driver: s.Driver(), Err: err}
	}
	return domain.Collection{}, nil
}

// Save replaces the stored collection.
func (s *Store) Save(ctx context.Context, books domain.Collection) error {
	payload, err := EncodeCollection(books)
	if err == nil {
		err = s.snapshots.WriteSnapshot(ctx, payload)
	}
	if err != nil {
		logging.FromContext(ctx, s.logger).Error("save books snapshot", zap.Error(err), zap.Int("books", len(books)), zap.Bool("strict", s.strict))
		if s.strict {
			return &StorageError{Op: "save", Driver: s.Driver(), Err: err}
		}
		return nil
	}
	s.logger.Debug("saved books snapshot", zap.Int("books", len(books)), zap.Int("bytes", len(payload)))
	return nil
}

// EncodeCollection renders the collection as an indented JSON array with a
// trailing newline. A nil collection encodes as [].
func EncodeCollection(books domain.Collection) ([]byte, error) {
	if books == nil {
		books = domain.Collection{}
	}
	b, err := json.MarshalIndent(books, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode books: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeCollection parses a snapshot. Blank payloads and null decode to an
// empty collection.
func DecodeCollection(payload []byte) (domain.Collection, error) {
	if strings.TrimSpace(string(payload)) == "" {
		return domain.Collection{}, nil
	}
	var books domain.Collection
	if err := json.Unmarshal(payload, &books); err != nil {
		return nil, fmt.Errorf("decode books: %w", err)
	}
	if books == nil {
		books = domain.Collection{}
	}
	return books, nil
}
