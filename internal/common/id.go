package common

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewRunID generates a lexically sortable batch run ID
// Format: run_<ulid>
func NewRunID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return "run_" + ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewClientID generates a unique WebSocket client ID
func NewClientID() string {
	return uuid.New().String()
}

// NewRequestID generates the ID echoed in the X-Request-ID response header
func NewRequestID() string {
	return uuid.NewString()
}
