package ident

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// FileResolver resolves against passwd(5) and group(5) formatted files, for
// trees whose identity database is not the host's (mounted images, chroots).
// Every call re-reads the file so edits made between phases are visible.
type FileResolver struct {
	PasswdPath string
	GroupPath  string
}

func (r FileResolver) path(kind Kind) (string, error) {
	switch kind {
	case KindUser:
		return r.PasswdPath, nil
	case KindGroup:
		return r.GroupPath, nil
	}
	return "", fmt.Errorf("%w: %d", ErrUnknownKind, kind)
}

// LookupName returns the first name listed with id.
func (r FileResolver) LookupName(kind Kind, id ID) (string, bool, error) {
	var name string
	found := false
	err := r.each(kind, func(n string, v ID) bool {
		if v == id {
			name, found = n, true
			return false
		}
		return true
	})
	return name, found, err
}

// LookupID returns the ID listed for name.
func (r FileResolver) LookupID(kind Kind, name string) (ID, bool, error) {
	var id ID
	found := false
	err := r.each(kind, func(n string, v ID) bool {
		if n == name {
			id, found = v, true
			return false
		}
		return true
	})
	return id, found, err
}

// each calls fn for every well-formed line until fn returns false. Both
// formats carry the name in field 0 and the numeric ID in field 2.
func (r FileResolver) each(kind Kind, fn func(name string, id ID) bool) error {
	path, err := r.path(kind)
	if err != nil {
		return err
	}
	if path == "" {
		return fmt.Errorf("%w: no %s file configured", ErrLookup, kind)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrLookup, path, err)
	}
	defer func() { _ = f.Close() }()

	// group(5) member lists can exceed any fixed line buffer.
	br := bufio.NewReader(f)
	for {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return fmt.Errorf("%w: read %s: %w", ErrLookup, path, readErr)
		}
		if readErr == io.EOF && raw == "" {
			return nil
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ":")
		if len(parts) < 3 || parts[0] == "" {
			continue
		}
		id, err := ParseID(parts[2])
		if err != nil {
			continue
		}
		if !fn(parts[0], id) {
			return nil
		}
	}
}
