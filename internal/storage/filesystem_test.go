package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestUploadFile(t *testing.T) {
	root := t.TempDir()
	store, err := NewFileStore(root, "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	src := filepath.Join(t.TempDir(), "artifact.jpg")
	if err := os.WriteFile(src, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	url, err := store.UploadFile(context.Background(), src, "generated/user-1/out.jpg")
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if url != "http://localhost:8080/static/generated/user-1/out.jpg" {
		t.Fatalf("unexpected url: %s", url)
	}

	data, err := os.ReadFile(filepath.Join(root, "generated", "user-1", "out.jpg"))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Fatalf("stored content mismatch: %q", data)
	}
}

func TestUploadFileRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	src := filepath.Join(t.TempDir(), "artifact.bin")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	for _, key := range []string{"", "../escape.bin", "/../../etc/passwd"} {
		if _, err := store.UploadFile(context.Background(), src, key); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestUploadFileMissingSource(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.UploadFile(context.Background(), filepath.Join(t.TempDir(), "missing"), "a/b.bin"); err == nil {
		t.Fatal("expected error for missing source file")
	}
}
