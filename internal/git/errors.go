package git

import "errors"

// ErrDetachedHead is returned when a branch is required but HEAD is detached.
var ErrDetachedHead = errors.New("HEAD is detached, no branch is checked out")
