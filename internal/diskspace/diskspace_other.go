//go:build !(linux || darwin || freebsd)

package diskspace

import (
	"errors"
	"fmt"
)

var errUnsupported = errors.New("free space probing is not supported on this platform")

func freeBytes(path string) (int64, error) {
	return 0, fmt.Errorf("statfs %s: %w", path, errUnsupported)
}
