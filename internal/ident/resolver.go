package ident

import (
	"errors"
	"fmt"
	"os/user"
	"strconv"
)

// Resolver answers point-in-time name<->ID questions against an identity
// database. A false result with a nil error means the identity does not
// exist; a non-nil error means the database itself could not be queried.
// Implementations must not cache across calls.
type Resolver interface {
	LookupName(kind Kind, id ID) (string, bool, error)
	LookupID(kind Kind, name string) (ID, bool, error)
}

// OSResolver resolves through the host's name service (files, LDAP, sssd...)
// via os/user.
type OSResolver struct{}

// LookupName returns the name currently owning id.
func (OSResolver) LookupName(kind Kind, id ID) (string, bool, error) {
	key := strconv.FormatUint(uint64(id), 10)
	switch kind {
	case KindUser:
		u, err := user.LookupId(key)
		if err != nil {
			var unknown user.UnknownUserIdError
			if errors.As(err, &unknown) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("%w: uid %d: %w", ErrLookup, id, err)
		}
		return u.Username, true, nil
	case KindGroup:
		g, err := user.LookupGroupId(key)
		if err != nil {
			var unknown user.UnknownGroupIdError
			if errors.As(err, &unknown) {
				return "", false, nil
			}
			return "", false, fmt.Errorf("%w: gid %d: %w", ErrLookup, id, err)
		}
		return g.Name, true, nil
	}
	return "", false, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
}

// LookupID returns the ID currently assigned to name.
func (OSResolver) LookupID(kind Kind, name string) (ID, bool, error) {
	var raw string
	switch kind {
	case KindUser:
		u, err := user.Lookup(name)
		if err != nil {
			var unknown user.UnknownUserError
			if errors.As(err, &unknown) {
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("%w: user %q: %w", ErrLookup, name, err)
		}
		raw = u.Uid
	case KindGroup:
		g, err := user.LookupGroup(name)
		if err != nil {
			var unknown user.UnknownGroupError
			if errors.As(err, &unknown) {
				return 0, false, nil
			}
			return 0, false, fmt.Errorf("%w: group %q: %w", ErrLookup, name, err)
		}
		raw = g.Gid
	default:
		return 0, false, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	id, err := ParseID(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%w: %s %q: %w", ErrLookup, kind, name, err)
	}
	return id, true, nil
}
