package core

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"bookshelf/internal/blob"
	"bookshelf/pkg/domain"
)

// stubSnapshots is a SnapshotStore with injectable failures.
type stubSnapshots struct {
	payload  []byte
	present  bool
	readErr  error
	writeErr error
	writes   int
}

func (s *stubSnapshots) ReadSnapshot(context.Context) ([]byte, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	if !s.present {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), s.payload...), nil
}

func (s *stubSnapshots) WriteSnapshot(_ context.Context, payload []byte) error {
	s.writes++
	if s.writeErr != nil {
		return s.writeErr
	}
	s.payload = append([]byte(nil), payload...)
	s.present = true
	return nil
}

func (s *stubSnapshots) Driver() string { return "stub" }

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestStoreLoadMissingIsEmpty(t *testing.T) {
	s := NewStore(&stubSnapshots{})
	books, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if books == nil || len(books) != 0 {
		t.Fatalf("expected empty non-nil collection, got %#v", books)
	}
}

func TestStoreSaveWritesIndentedJSON(t *testing.T) {
	snaps := &stubSnapshots{}
	s := NewStore(snaps)
	books := domain.Collection{{ID: 1, Title: "A", Author: "B", Available: true}}
	if err := s.Save(context.Background(), books); err != nil {
		t.Fatalf("save: %v", err)
	}
	want := "[\n  {\n    \"id\": 1,\n    \"title\": \"A\",\n    \"author\": \"B\",\n    \"available\": true\n  }\n]\n"
	if string(snaps.payload) != want {
		t.Fatalf("unexpected payload:\n%s", snaps.payload)
	}
	got, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 1 || got[0] != books[0] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}

func TestStoreSaveNilWritesEmptyArray(t *testing.T) {
	snaps := &stubSnapshots{}
	if err := NewStore(snaps).Save(context.Background(), nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if string(snaps.payload) != "[]\n" {
		t.Fatalf("expected empty array, got %q", snaps.payload)
	}
}

func TestStoreLenientAbsorbsFailures(t *testing.T) {
	logger, logs := observedLogger()
	ctx := context.Background()

	for name, snaps := range map[string]*stubSnapshots{
		"read error": {readErr: errors.New("disk on fire")},
		"malformed":  {present: true, payload: []byte(`{"not":"an array"}`)},
		"truncated":  {present: true, payload: []byte(`[{"id":1`)},
	} {
		s := NewStore(snaps, WithStoreLogger(logger))
		books, err := s.Load(ctx)
		if err != nil {
			t.Fatalf("%s: lenient load returned %v", name, err)
		}
		if len(books) != 0 {
			t.Fatalf("%s: expected empty collection, got %+v", name, books)
		}
	}
	if n := logs.FilterMessage("load books snapshot").Len(); n != 3 {
		t.Fatalf("expected 3 load failures logged, got %d", n)
	}

	snaps := &stubSnapshots{writeErr: errors.New("read-only fs")}
	if err := NewStore(snaps, WithStoreLogger(logger)).Save(ctx, domain.Collection{{ID: 1}}); err != nil {
		t.Fatalf("lenient save returned %v", err)
	}
	entries := logs.FilterMessage("save books snapshot").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error-level save log, got %+v", entries)
	}
	if entries[0].ContextMap()["storage"] != "stub" {
		t.Fatalf("expected storage field, got %+v", entries[0].ContextMap())
	}
}

func TestStoreStrictSurfacesFailures(t *testing.T) {
	ctx := context.Background()
	readErr := errors.New("disk on fire")
	s := NewStore(&stubSnapshots{readErr: readErr}, WithStrictStorage(true))
	if !s.Strict() {
		t.Fatalf("expected strict store")
	}
	_, err := s.Load(ctx)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, readErr) {
		t.Fatalf("expected storage error wrapping cause, got %v", err)
	}
	var serr *StorageError
	if !errors.As(err, &serr) || serr.Op != "load" || serr.Driver != "stub" {
		t.Fatalf("unexpected storage error: %#v", err)
	}
	if !strings.Contains(err.Error(), "load snapshot (stub)") {
		t.Fatalf("unexpected message %q", err.Error())
	}

	s = NewStore(&stubSnapshots{writeErr: errors.New("full")}, WithStrictStorage(true))
	err = s.Save(ctx, domain.Collection{})
	if !errors.As(err, &serr) || serr.Op != "save" {
		t.Fatalf("expected save storage error, got %v", err)
	}
}

func TestDecodeCollectionEdgeCases(t *testing.T) {
	for _, payload := range []string{"", "  \n", "null", "[]"} {
		books, err := DecodeCollection([]byte(payload))
		if err != nil {
			t.Fatalf("payload %q: %v", payload, err)
		}
		if books == nil || len(books) != 0 {
			t.Fatalf("payload %q: expected empty collection, got %#v", payload, books)
		}
	}
	if _, err := DecodeCollection([]byte(`[{"id":"one"}]`)); err == nil {
		t.Fatalf("expected error for mistyped id")
	}
}

func TestBlobSnapshotStore(t *testing.T) {
	ctx := context.Background()
	snaps := NewBlobSnapshotStore(blob.NewMemory(), "books.json")
	if snaps.Driver() != "memory" {
		t.Fatalf("unexpected driver %s", snaps.Driver())
	}
	if _, err := snaps.ReadSnapshot(ctx); !errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
	if err := snaps.WriteSnapshot(ctx, []byte("[]\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := snaps.ReadSnapshot(ctx)
	if err != nil || string(got) != "[]\n" {
		t.Fatalf("unexpected read %q %v", got, err)
	}

	fsBlobs, err := blob.NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("fs: %v", err)
	}
	if d := NewBlobSnapshotStore(fsBlobs, "books.json").Driver(); d != "file" {
		t.Fatalf("expected file driver, got %s", d)
	}
	bad := NewBlobSnapshotStore(fsBlobs, "../outside.json")
	if _, err := bad.ReadSnapshot(ctx); err == nil || errors.Is(err, domain.ErrSnapshotNotFound) {
		t.Fatalf("expected invalid key error, got %v", err)
	}
}

func TestBlobSnapshotStoreOverS3Mock(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewBlobSnapshotStore(blob.NewMockS3ForTests(), "books.json"), WithStrictStorage(true))
	if s.Driver() != "s3" {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	books := domain.Collection{{ID: 1, Title: "A", Author: "B", Available: true}, {ID: 2, Title: "C", Author: "D"}}
	if err := s.Save(ctx, books); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 || got[0] != books[0] || got[1] != books[1] {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
