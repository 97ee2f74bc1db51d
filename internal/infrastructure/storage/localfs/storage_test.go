package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestStorageRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := storage.Save(ctx, "doc-1_handbook.pdf", strings.NewReader("content")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reader, err := storage.Open(ctx, "doc-1_handbook.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "content" {
		t.Fatalf("unexpected content %q", raw)
	}
}

func TestStorageRejectsTraversalKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"", ".", "..", "../etc/passwd", "a/b", `a\b`} {
		if err := storage.Save(ctx, key, strings.NewReader("x")); err == nil {
			t.Fatalf("Save(%q) expected error", key)
		}
		if _, err := storage.Open(ctx, key); err == nil {
			t.Fatalf("Open(%q) expected error", key)
		}
	}
}
