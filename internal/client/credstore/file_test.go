package credstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestFileBackend_GetMissingFile(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "nested"))
	v, ok, err := b.Get(context.Background(), KeyToken)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok || v != "" {
		t.Errorf("Get = %q, %v; want empty, false", v, ok)
	}
}

func TestFileBackend_SetCreatesDirAndFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")
	b := NewFileBackend(dir)
	if err := b.Set(context.Background(), map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	buf, err := os.ReadFile(filepath.Join(dir, credentialsFile))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var onDisk map[string]string
	if err := json.Unmarshal(buf, &onDisk); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if onDisk["a"] != "1" || onDisk["b"] != "2" {
		t.Errorf("unexpected file content: %v", onDisk)
	}
	if _, err := os.Stat(b.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}

func TestFileBackend_DeleteKeepsOtherKeys(t *testing.T) {
	ctx := context.Background()
	b := NewFileBackend(t.TempDir())
	if err := b.Set(ctx, map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete(ctx, "a", "missing"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if _, ok, _ := b.Get(ctx, "a"); ok {
		t.Error("a should be gone")
	}
	if v, ok, _ := b.Get(ctx, "b"); !ok || v != "2" {
		t.Errorf("b = %q, %v; want 2, true", v, ok)
	}
}
