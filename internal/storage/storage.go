// Package storage holds the remote object stores segments are relocated to.
//
// Every store offers the same four operations: make sure the container
// exists, write an object (create-or-overwrite), list object names and read
// an object back. Object names are flat: the capture pipeline strips the local
// directory and keeps the file name only.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"hatcam/internal/platform/config"
)

const maxNameLength = 1024

var (
	// ErrNotFound is returned by Get when the object does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrInvalidName is returned for names that are empty, too long or not flat.
	ErrInvalidName = errors.New("invalid object name")
)

// Store is a remote object container.
type Store interface {
	// EnsureContainer creates the container if it does not exist yet.
	EnsureContainer(ctx context.Context) error

	// Put streams r into the object called name, replacing any previous content.
	Put(ctx context.Context, name string, r io.Reader) error

	// List returns the names of all objects in the container, in no particular order.
	List(ctx context.Context) ([]string, error)

	// Get opens the object called name. The caller must close the reader.
	Get(ctx context.Context, name string) (io.ReadCloser, error)
}

// New builds the store selected by cfg.Backend.
func New(cfg config.Storage) (Store, error) {
	switch cfg.Backend {
	case config.BackendAzure:
		return NewAzureStore(cfg.ConnectionString, cfg.Container)
	case config.BackendDir:
		return NewDirStore(filepath.Join(cfg.Dir, cfg.Container)), nil
	case config.BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// ValidateName rejects names that could escape a container or collide with
// store internals.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLength)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q must be a bare file name", ErrInvalidName, name)
	case name == "." || name == ".." || strings.HasPrefix(name, "."):
		return fmt.Errorf("%w: %q must not start with a dot", ErrInvalidName, name)
	}
	return nil
}
