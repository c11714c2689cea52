package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadScanFile opens and reads a scan artifact.
func ReadScanFile(path string, warn WarnFunc) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scan artifact: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadScan(f, warn)
}

// ReadMapFile opens and reads a map artifact.
func ReadMapFile(path string, warn WarnFunc) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open map artifact: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadMap(f, warn)
}

// CreateScanFile truncates or creates path for streaming. existed reports
// whether a previous artifact was overwritten.
func CreateScanFile(path string) (f *os.File, existed bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		existed = true
	} else if !errors.Is(statErr, fs.ErrNotExist) {
		return nil, false, fmt.Errorf("stat scan artifact: %w", statErr)
	}
	f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, existed, fmt.Errorf("create scan artifact: %w", err)
	}
	return f, existed, nil
}

// WriteMapFile writes entries to path through a temp file and rename, so a
// reader never sees a half-written map. existed reports an overwrite.
func WriteMapFile(path string, entries []Entry) (n int, existed bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		existed = true
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".remapid-map-")
	if err != nil {
		return 0, existed, fmt.Errorf("create temp in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	n, err = WriteMap(tmp, entries)
	if err != nil {
		_ = tmp.Close()
		return 0, existed, err
	}
	if err := tmp.Chmod(0o644); err != nil {
		_ = tmp.Close()
		return 0, existed, fmt.Errorf("chmod temp %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return 0, existed, fmt.Errorf("close temp %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return 0, existed, fmt.Errorf("rename temp %s -> %s: %w", tmpName, path, err)
	}
	return n, existed, nil
}
