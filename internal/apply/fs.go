package apply

import (
	"fmt"
	"os"
	"syscall"

	"github.com/michaelscutari/remapid/internal/entry"
	"golang.org/x/sys/unix"
)

// FS is the filesystem as the remapper sees it. Implementations must not
// follow symlinks in any of the three calls.
type FS interface {
	Lstat(path string) (entry.Object, error)
	// ReadDir may return names together with an error when the listing
	// stopped partway.
	ReadDir(path string) ([]string, error)
	// Lchown sets ownership of path itself. -1 leaves that side unchanged.
	Lchown(path string, uid, gid int) error
}

// OSFS is the host filesystem.
type OSFS struct{}

// Lstat reads the ownership and identity of path without following links.
func (OSFS) Lstat(path string) (entry.Object, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return entry.Object{Path: path}, err
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return entry.Object{Path: path}, &os.PathError{Op: "lstat", Path: path, Err: fmt.Errorf("no ownership information")}
	}
	return entry.Object{
		Path:  path,
		Kind:  entry.KindFromMode(info.Mode()),
		UID:   stat.Uid,
		GID:   stat.Gid,
		Dev:   uint64(stat.Dev),
		Ino:   stat.Ino,
		Nlink: uint64(stat.Nlink),
	}, nil
}

// ReadDir returns the names in path sorted by name. When listing fails
// partway the names read so far are returned with the error.
func (OSFS) ReadDir(path string) ([]string, error) {
	des, err := os.ReadDir(path)
	names := make([]string, len(des))
	for i, de := range des {
		names[i] = de.Name()
	}
	return names, err
}

// Lchown changes ownership with a single lchown(2).
func (OSFS) Lchown(path string, uid, gid int) error {
	if err := unix.Lchown(path, uid, gid); err != nil {
		return &os.PathError{Op: "lchown", Path: path, Err: err}
	}
	return nil
}
