package artifact

import (
	"bufio"
	"fmt"
	"io"

	"github.com/michaelscutari/remapid/internal/ident"
)

// ReadMap reads a whole map artifact. Malformed lines are reported to warn
// and skipped.
func ReadMap(r io.Reader, warn WarnFunc) ([]Entry, error) {
	var entries []Entry
	err := readLines(r, 4, warn, func(parts []string) error {
		kind, oldID, name, err := parseHead(parts)
		if err != nil {
			return err
		}
		newID, err := ident.ParseID(parts[3])
		if err != nil {
			return err
		}
		entries = append(entries, Entry{Kind: kind, OldID: oldID, Name: name, NewID: newID})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read map artifact: %w", err)
	}
	return entries, nil
}

// WriteMap writes entries in the given order. Entries whose ID did not
// change are not written.
func WriteMap(w io.Writer, entries []Entry) (int, error) {
	bw := bufio.NewWriter(w)
	n := 0
	for _, e := range entries {
		if e.OldID == e.NewID {
			continue
		}
		if err := ValidateName(e.Name); err != nil {
			return n, fmt.Errorf("entry %s %d: %w", e.Kind, e.OldID, err)
		}
		if _, err := fmt.Fprintln(bw, e.String()); err != nil {
			return n, fmt.Errorf("write entry: %w", err)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("flush map artifact: %w", err)
	}
	return n, nil
}
