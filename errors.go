package deltatree

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidArgument indicates a lookup or mutation keyed by an empty id.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrStaleDelta indicates the base snapshot moved since the delta was seeded.
	ErrStaleDelta = errors.New("delta is stale against base snapshot")

	// ErrMissingBase indicates an Update, Delete or Unchanged delta whose base node does not exist.
	ErrMissingBase = errors.New("delta references missing base node")

	// ErrNotFound indicates an id that is not reachable in any tree.
	ErrNotFound = errors.New("node not found")
)

// Overridden in tests.
var (
	now   = func() time.Time { return time.Now().UTC() }
	newID = func() string { return uuid.New().String() }
)
