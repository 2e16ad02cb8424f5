package lock

import "errors"

// ErrLockTimeout is returned when the context ends before the user's lock is acquired.
var ErrLockTimeout = errors.New("user lock not acquired")
