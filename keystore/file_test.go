package keystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.json")
	ctx := context.Background()

	first, _ := NewFileStore(path)
	if err := first.Set(ctx, AgentAPIKey, "persisted"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	second, _ := NewFileStore(path)
	v, ok, err := second.Get(ctx, AgentAPIKey)
	if err != nil || !ok || v != "persisted" {
		t.Fatalf("Get() = %q, %v, %v", v, ok, err)
	}
}

func TestFileStore_Permissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.json")
	s, _ := NewFileStore(path)
	if err := s.Set(context.Background(), AgentAPIKey, "x"); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, _ := NewFileStore(path)
	if _, _, err := s.Get(context.Background(), AgentAPIKey); err == nil {
		t.Error("expected decode error")
	}
}
