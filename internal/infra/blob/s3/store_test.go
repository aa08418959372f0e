package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"bookshelf/internal/blob/core"
)

// failingRoundTripper answers every request with the configured status.
type failingRoundTripper struct{ status int }

func (f failingRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	body := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>status %d</Message></Error>`, f.status)
	return &http.Response{StatusCode: f.status, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{"Content-Type": {"application/xml"}}}, nil
}

func TestMockStorePutGetReplace(t *testing.T) {
	ctx := context.Background()
	s := NewMockForTests()
	if s.Driver() != core.DriverS3 {
		t.Fatalf("unexpected driver %s", s.Driver())
	}
	put, err := s.Put(ctx, "books.json", bytes.NewReader([]byte(`[1]`)), core.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if put.ETag != "etag" {
		t.Fatalf("expected unquoted etag from put, got %q", put.ETag)
	}
	if _, err := s.Put(ctx, "books.json", bytes.NewReader([]byte(`[2]`)), core.PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	info, rc, err := s.Get(ctx, "books.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != `[2]` {
		t.Fatalf("expected replaced payload, got %q", data)
	}
	if info.ContentType != "application/json" {
		t.Fatalf("unexpected content type %q", info.ContentType)
	}
	if info.ETag != "etag" {
		t.Fatalf("expected unquoted etag, got %q", info.ETag)
	}
}

func TestMockStoreGetMissing(t *testing.T) {
	s := NewMockForTests()
	_, _, err := s.Get(context.Background(), "missing.json")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorePutEmptyKey(t *testing.T) {
	s := NewMockForTests()
	if _, err := s.Put(context.Background(), "", strings.NewReader("x"), core.PutOptions{}); !errors.Is(err, core.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}
}

func TestStoreSurfacesServiceErrors(t *testing.T) {
	s := newMockStore(failingRoundTripper{status: http.StatusForbidden})
	ctx := context.Background()
	if _, err := s.Put(ctx, "k", strings.NewReader("x"), core.PutOptions{}); err == nil {
		t.Fatalf("expected put error")
	}
	_, _, err := s.Get(ctx, "k")
	if err == nil || errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected non-notfound error, got %v", err)
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
}

func TestNewWithStaticCredentials(t *testing.T) {
	s, err := New(context.Background(), Config{
		Bucket:          "books",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "id",
		SecretAccessKey: "secret",
		PathStyle:       true,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if s.bucket != "books" {
		t.Fatalf("unexpected bucket %s", s.bucket)
	}
}

func TestDecodeChunked(t *testing.T) {
	payload := "5;chunk-signature=abc\r\nhello\r\n6\r\n world\r\n0\r\nx-amz-checksum-crc32:AAAA\r\n\r\n"
	out, ok := decodeChunked([]byte(payload))
	if !ok || string(out) != "hello world" {
		t.Fatalf("unexpected decode: %q %v", out, ok)
	}
	if _, ok := decodeChunked([]byte("zz\r\n")); ok {
		t.Fatalf("expected failure on bad header")
	}
}
