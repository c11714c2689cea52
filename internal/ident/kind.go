package ident

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ID is a numeric user or group identifier.
type ID = uint32

// Superuser is the reserved ID of root in both namespaces.
const Superuser ID = 0

// NoChange is (uid_t)-1, which chown reads as "leave this ID alone". It can
// never be assigned to a file.
const NoChange ID = math.MaxUint32

// Kind selects the user or group namespace. The two are independent and
// never substitute for each other.
type Kind uint8

const (
	KindUser  Kind = 0
	KindGroup Kind = 1
)

// Kinds lists both namespaces in artifact order.
var Kinds = []Kind{KindUser, KindGroup}

// String returns the artifact tag for the kind.
func (k Kind) String() string {
	switch k {
	case KindUser:
		return "users"
	case KindGroup:
		return "groups"
	default:
		return "unknown"
	}
}

// Short returns "uid" or "gid".
func (k Kind) Short() string {
	if k == KindGroup {
		return "gid"
	}
	return "uid"
}

// ParseKind parses an artifact tag.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "users":
		return KindUser, nil
	case "groups":
		return KindGroup, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// ParseID parses a decimal UID/GID.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(n), nil
}

// Range is an inclusive span of IDs.
type Range struct {
	Start ID
	End   ID
}

// ParseRange parses "start-end" or a single ID.
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("%w: empty", ErrInvalidRange)
	}
	lo, hi, found := strings.Cut(s, "-")
	start, err := ParseID(lo)
	if err != nil {
		return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	end := start
	if found {
		end, err = ParseID(hi)
		if err != nil {
			return Range{}, fmt.Errorf("%w: %q", ErrInvalidRange, s)
		}
	}
	if end < start {
		return Range{}, fmt.Errorf("%w: %q ends before it starts", ErrInvalidRange, s)
	}
	if end == NoChange {
		return Range{}, fmt.Errorf("%w: %q includes the reserved id %d", ErrInvalidRange, s, end)
	}
	return Range{Start: start, End: end}, nil
}

// Len returns the number of IDs in the range.
func (r Range) Len() int64 {
	return int64(r.End) - int64(r.Start) + 1
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
