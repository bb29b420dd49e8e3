package local

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ogasahara/employee-registry/internal/core/employee"
	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore returned error: %v", err)
	}
	return store
}

func TestStore_StoreAndExists(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	ref, err := store.Store(context.Background(), employee.Upload{
		FileName:    "Ana Photo.PNG",
		ContentType: "image/png",
		Data:        []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	if !strings.HasPrefix(ref, "/uploads/") {
		t.Fatalf("expected /uploads/ prefix, got %q", ref)
	}
	if !strings.HasSuffix(ref, ".png") {
		t.Fatalf("expected lowercased extension to be kept, got %q", ref)
	}

	exists, err := store.Exists(context.Background(), ref)
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected stored artifact to exist")
	}

	data, err := os.ReadFile(filepath.Join(store.Root(), strings.TrimPrefix(ref, "/uploads/")))
	if err != nil {
		t.Fatalf("failed to read stored file: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Fatalf("unexpected file content: %q", data)
	}
}

func TestStore_StoreDropsUnsafeExtension(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	ref, err := store.Store(context.Background(), employee.Upload{FileName: "../../etc/passwd", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}
	name := strings.TrimPrefix(ref, "/uploads/")
	if strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		t.Fatalf("unexpected file name: %q", name)
	}
}

func TestStore_LeavesNoTempFiles(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	if _, err := store.Store(context.Background(), employee.Upload{FileName: "a.png", Data: []byte("x")}); err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	entries, err := os.ReadDir(store.Root())
	if err != nil {
		t.Fatalf("failed to read upload root: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			t.Fatalf("unexpected temp file left behind: %s", entry.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly one artifact, got %d", len(entries))
	}
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	ref, err := store.Store(context.Background(), employee.Upload{FileName: "a.png", Data: []byte("x")})
	if err != nil {
		t.Fatalf("Store returned error: %v", err)
	}

	if err := store.Delete(context.Background(), ref); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if err := store.Delete(context.Background(), ref); err != nil {
		t.Fatalf("expected second delete to succeed, got %v", err)
	}

	exists, err := store.Exists(context.Background(), ref)
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected artifact to be gone")
	}
}

func TestStore_RejectsTraversalReferences(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	for _, ref := range []string{
		"/uploads/../secret",
		"/uploads/..",
		"/uploads/.upload-123",
		"/uploads/a/b",
		"/elsewhere/file.png",
		"/uploads/",
	} {
		if err := store.Delete(context.Background(), ref); err == nil {
			t.Errorf("expected delete of %q to be rejected", ref)
		}
	}
}
