package util

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid"
)

var (
	entropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	m       sync.Mutex
)

// NewULID returns a lower-case, lexically sortable unique id.
func NewULID() string {
	m.Lock()
	defer m.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Now(), entropy).String())
}

// NewJobSpecId returns a random uuid rendered as 32 hex characters without dashes.
func NewJobSpecId() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
