package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Lease is a TTL-bounded advisory lock persisted in the store so that
// mutual exclusion holds across processes, not just goroutines. An expired
// lease is silently reclaimable by the next acquirer; there is no renewal.
type Lease struct {
	bun.BaseModel `bun:"table:leases,alias:ls"`

	Name       string    `bun:"name,pk"`
	AcquiredAt time.Time `bun:"acquired_at,notnull"`
	TTLSeconds int       `bun:"ttl_seconds,notnull"`
}

// Expired reports whether the lease no longer blocks other acquirers.
func (l *Lease) Expired(now time.Time) bool {
	return now.Sub(l.AcquiredAt) >= time.Duration(l.TTLSeconds)*time.Second
}
