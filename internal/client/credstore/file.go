package credstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const credentialsFile = "credentials.json"

// FileBackend keeps all keys in a single JSON document inside dir.
// Writes are atomic (temp file + rename).
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

// NewFileBackend returns a backend storing its file in dir. The directory is
// created on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Path returns the full path of the credentials file.
func (b *FileBackend) Path() string {
	return filepath.Join(b.dir, credentialsFile)
}

// Get implements Backend.
func (b *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	values, err := b.read()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

// Set implements Backend.
func (b *FileBackend) Set(_ context.Context, values map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.read()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return b.write(current)
}

// Delete implements Backend.
func (b *FileBackend) Delete(_ context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	current, err := b.read()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := current[k]; ok {
			delete(current, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return b.write(current)
}

func (b *FileBackend) read() (map[string]string, error) {
	data, err := os.ReadFile(b.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	values := map[string]string{}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode credentials: %w", err)
	}
	return values, nil
}

func (b *FileBackend) write(values map[string]string) error {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp := b.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := os.Rename(tmp, b.Path()); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
