package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileStorePut(t *testing.T) {
	base := t.TempDir()
	store, err := NewFileStore(base, "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	url, err := store.Put(context.Background(), "products/p1/source_x.jpg", "image/jpeg", strings.NewReader("bytes"), 5)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://localhost:8080/static/products/p1/source_x.jpg" {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(base, "products", "p1", "source_x.jpg"))
	if err != nil {
		t.Fatalf("reading stored file: %v", err)
	}
	if string(data) != "bytes" {
		t.Fatalf("stored file holds %q", data)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, key := range []string{"", ".", "../escape.jpg", "a/../../escape.jpg"} {
		if _, err := store.Put(context.Background(), key, "image/jpeg", strings.NewReader("x"), 1); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}

func TestSanitizeKeyNormalizes(t *testing.T) {
	got, err := sanitizeKey(`/products\p1\photo.jpg`)
	if err != nil {
		t.Fatalf("sanitizeKey: %v", err)
	}
	if got != "products/p1/photo.jpg" {
		t.Fatalf("sanitizeKey = %q", got)
	}
}
