package scan

import (
	"errors"

	"github.com/michaelscutari/remapid/internal/ident"
)

// ErrNoRange means neither a user nor a group range was given.
var ErrNoRange = errors.New("no ID range to scan")

// Options configures which IDs are scanned.
type Options struct {
	// Users is the inclusive UID range, nil to skip users.
	Users *ident.Range

	// Groups is the inclusive GID range, nil to skip groups.
	Groups *ident.Range
}

// DefaultOptions returns options that scan nothing until a range is set.
func DefaultOptions() *Options {
	return &Options{}
}

// WithRange sets both ranges.
func (o *Options) WithRange(r ident.Range) *Options {
	return o.WithUserRange(r).WithGroupRange(r)
}

// WithUserRange sets the UID range.
func (o *Options) WithUserRange(r ident.Range) *Options {
	o.Users = &r
	return o
}

// WithGroupRange sets the GID range.
func (o *Options) WithGroupRange(r ident.Range) *Options {
	o.Groups = &r
	return o
}

// RangeOf returns the range for kind, or nil.
func (o *Options) RangeOf(kind ident.Kind) *ident.Range {
	if kind == ident.KindGroup {
		return o.Groups
	}
	return o.Users
}

// Validate requires at least one range.
func (o *Options) Validate() error {
	if o.Users == nil && o.Groups == nil {
		return ErrNoRange
	}
	return nil
}

// Total returns the number of IDs that will be looked up.
func (o *Options) Total() int64 {
	var n int64
	for _, kind := range ident.Kinds {
		if r := o.RangeOf(kind); r != nil {
			n += r.Len()
		}
	}
	return n
}
