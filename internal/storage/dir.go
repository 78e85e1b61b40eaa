package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const tempDirName = ".tmp"

// DirStore keeps objects as plain files in a directory, for example a mounted
// network share. Writes go to a temp file first and are renamed into place,
// so readers never observe a partial object.
type DirStore struct {
	root string
}

// NewDirStore returns a store rooted at root. The directory is created by
// EnsureContainer.
func NewDirStore(root string) *DirStore {
	return &DirStore{root: filepath.Clean(root)}
}

// EnsureContainer implements Store.EnsureContainer.
func (s *DirStore) EnsureContainer(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Join(s.root, tempDirName), 0o755); err != nil {
		return fmt.Errorf("creating container directory: %w", err)
	}
	return nil
}

// Put implements Store.Put.
func (s *DirStore) Put(ctx context.Context, name string, r io.Reader) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmpPath := filepath.Join(s.root, tempDirName, uuid.NewString())
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(f, ctxReader{ctx: ctx, r: r}); err != nil {
		return fmt.Errorf("writing %q: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing %q: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", name, err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.root, name)); err != nil {
		return fmt.Errorf("committing %q: %w", name, err)
	}
	committed = true
	return nil
}

// List implements Store.List.
func (s *DirStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Get implements Store.Get.
func (s *DirStore) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("object %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("opening %q: %w", name, err)
	}
	return f, nil
}

// ctxReader stops a long copy once the context is cancelled.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
