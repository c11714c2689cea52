package ident

import "errors"

var (
	ErrUnknownKind  = errors.New("unknown identity kind")
	ErrInvalidID    = errors.New("invalid id")
	ErrInvalidRange = errors.New("invalid id range")
	ErrLookup       = errors.New("identity lookup failed")
)
