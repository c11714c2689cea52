// Package artifact implements the line-oriented scan and map file formats.
//
//	scan: kind:old_id:name
//	map:  kind:old_id:name:new_id
//
// kind is "users" or "groups". There is no header and no versioning; a line
// is recognized by its field count and kind tag alone.
package artifact

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/michaelscutari/remapid/internal/ident"
)

var (
	ErrMalformedLine = errors.New("malformed line")
	ErrInvalidName   = errors.New("invalid name")
)

// MaxLineLength bounds a single artifact line. Longer lines are reported
// as malformed and skipped; the read continues with the next line.
const MaxLineLength = 64 * 1024

// Record is one identity observed before renumbering.
type Record struct {
	Kind  ident.Kind
	OldID ident.ID
	Name  string
}

func (r Record) String() string {
	return fmt.Sprintf("%s:%d:%s", r.Kind, r.OldID, r.Name)
}

// Entry is one identity whose ID changed.
type Entry struct {
	Kind  ident.Kind
	OldID ident.ID
	Name  string
	NewID ident.ID
}

func (e Entry) String() string {
	return fmt.Sprintf("%s:%d:%s:%d", e.Kind, e.OldID, e.Name, e.NewID)
}

// WarnFunc receives lines that were skipped while reading.
type WarnFunc func(lineNo int, line string, err error)

// ValidateName rejects names that cannot round-trip through the format.
func ValidateName(name string) error {
	if name == "" || strings.ContainsAny(name, ":\n\r") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// eachLine calls fn for every line of r, without its terminator. Lines
// longer than limit are cut to limit bytes and flagged; the rest of such a line
// is discarded without being buffered.
func eachLine(r io.Reader, limit int, fn func(lineNo int, line string, tooLong bool)) error {
	br := bufio.NewReader(r)
	lineNo := 0
	for {
		var buf []byte
		tooLong := false
		for {
			chunk, isPrefix, err := br.ReadLine()
			if err == io.EOF && len(buf) == 0 && !tooLong {
				return nil
			}
			if err != nil && err != io.EOF {
				return err
			}
			if room := limit - len(buf); room > 0 {
				if len(chunk) > room {
					chunk, tooLong = chunk[:room], true
				}
				buf = append(buf, chunk...)
			} else if len(chunk) > 0 {
				tooLong = true
			}
			if !isPrefix || err == io.EOF {
				break
			}
		}
		lineNo++
		fn(lineNo, string(buf), tooLong)
	}
}

func readLines(r io.Reader, fields int, warn WarnFunc, fn func([]string) error) error {
	return eachLine(r, MaxLineLength, func(lineNo int, line string, tooLong bool) {
		line = strings.TrimRight(line, "\r")
		if tooLong {
			if warn != nil {
				warn(lineNo, line, fmt.Errorf("%w: longer than %d bytes", ErrMalformedLine, MaxLineLength))
			}
			return
		}
		if strings.TrimSpace(line) == "" {
			return
		}
		parts := strings.Split(line, ":")
		if len(parts) != fields {
			if warn != nil {
				warn(lineNo, line, fmt.Errorf("%w: want %d fields, got %d", ErrMalformedLine, fields, len(parts)))
			}
			return
		}
		if err := fn(parts); err != nil && warn != nil {
			warn(lineNo, line, fmt.Errorf("%w: %w", ErrMalformedLine, err))
		}
	})
}

func parseHead(parts []string) (ident.Kind, ident.ID, string, error) {
	kind, err := ident.ParseKind(parts[0])
	if err != nil {
		return 0, 0, "", err
	}
	id, err := ident.ParseID(parts[1])
	if err != nil {
		return 0, 0, "", err
	}
	if err := ValidateName(parts[2]); err != nil {
		return 0, 0, "", err
	}
	return kind, id, parts[2], nil
}
