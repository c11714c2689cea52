package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize returns a canonical filesystem path string.
// It removes trailing slashes, collapses "." and "..", and
// preserves relative paths when provided.
func Normalize(path string) string {
	if path == "" {
		return path
	}
	return filepath.Clean(path)
}

// Absolute resolves path against the working directory and normalizes it.
// Walk roots and journal base paths are always stored in this form.
func Absolute(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return Normalize(abs), nil
}

// DirPrefix returns dir with exactly one trailing separator, for matching
// paths strictly below dir.
func DirPrefix(dir string) string {
	if strings.HasSuffix(dir, "/") {
		return dir
	}
	return dir + "/"
}

// Within reports whether path is base or lies below it.
func Within(path, base string) bool {
	path, base = Normalize(path), Normalize(base)
	return path == base || strings.HasPrefix(path, DirPrefix(base))
}

// Parent returns the directory above path, never climbing above base.
func Parent(path, base string) string {
	parent := filepath.Dir(Normalize(path))
	if !Within(parent, base) {
		return Normalize(base)
	}
	return parent
}
