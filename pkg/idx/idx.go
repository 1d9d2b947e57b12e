// Package idx generates sortable identifiers for correlation (request ids,
// housekeeping runs). Persistent entities use database-assigned integers.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID for the current UTC time. IDs created within the same
// millisecond are strictly increasing.
func New() ID {
	return NewAt(time.Now().UTC())
}

func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()
	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

func (id ID) String() string { return string(id) }
