package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Resource owns one JSON file. Writes go through a one-slot semaphore so that at most one
// read-modify-write cycle is in flight; readers never see a partial file because writes are
// renamed into place.
type Resource struct {
	path string
	sem  chan struct{}
}

// NewResource creates a handle for the file at path.
func NewResource(path string) *Resource {
	return &Resource{path: path, sem: make(chan struct{}, 1)}
}

// Path returns the file path.
func (r *Resource) Path() string {
	return r.path
}

func (r *Resource) lock(ctx context.Context) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock %s: %w", filepath.Base(r.path), ctx.Err())
	}
}

func (r *Resource) unlock() {
	<-r.sem
}

// Exists reports whether the file is present.
func (r *Resource) Exists() bool {
	_, err := os.Stat(r.path)
	return err == nil
}

// Read decodes the file into v. A missing or empty file leaves v untouched and reports found=false.
func (r *Resource) Read(v any) (bool, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", r.path, err)
	}
	return true, nil
}

// Write replaces the file contents with v.
func (r *Resource) Write(ctx context.Context, v any) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()
	return r.write(v)
}

// WriteIfMissing writes v only when the file does not exist yet.
func (r *Resource) WriteIfMissing(ctx context.Context, v any) (bool, error) {
	if err := r.lock(ctx); err != nil {
		return false, err
	}
	defer r.unlock()
	if r.Exists() {
		return false, nil
	}
	return true, r.write(v)
}

// Update runs a read-modify-write cycle while holding the lock. fn receives the decoded contents
// in v and mutates them; the file is rewritten only if fn returns nil.
func (r *Resource) Update(ctx context.Context, v any, fn func() error) error {
	if err := r.lock(ctx); err != nil {
		return err
	}
	defer r.unlock()

	if _, err := r.Read(v); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return r.write(v)
}

func (r *Resource) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", r.path, err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace %s: %w", r.path, err)
	}
	return nil
}
