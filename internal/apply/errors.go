package apply

import "errors"

var (
	// ErrSuperuserID aborts a run whose table would read or write ID 0.
	ErrSuperuserID = errors.New("refusing to remap the superuser ID 0")
	// ErrReservedID aborts a run whose table uses 4294967295, which chown
	// would silently treat as "unchanged".
	ErrReservedID = errors.New("refusing to remap the reserved ID 4294967295")
	// ErrBasePath means the traversal root could not be read.
	ErrBasePath = errors.New("base path is not accessible")
)
