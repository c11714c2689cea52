package remap

import "errors"

var (
	// ErrAmbiguousInverse means two old IDs map to the same new ID, so the
	// table cannot be reversed.
	ErrAmbiguousInverse = errors.New("table cannot be inverted unambiguously")
)
