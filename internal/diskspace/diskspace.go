// Package diskspace reports free space on the volume holding a path.
package diskspace

// Reporter reads free space from the filesystem. The zero value is ready to use.
type Reporter struct{}

// FreeBytes returns the bytes available to an unprivileged writer on the
// volume containing path.
func (Reporter) FreeBytes(path string) (int64, error) {
	return freeBytes(path)
}
