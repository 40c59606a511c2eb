package models

import (
	"time"

	"github.com/uptrace/bun"
)

// QueueEntry is one claimant's place in the waitlist. Positions are a
// dense 1..N renumbering by join time; they are advisory for display and
// may briefly drift while a renumber pass overlaps a fresh admission.
type QueueEntry struct {
	bun.BaseModel `bun:"table:queue_entries,alias:qe"`

	ID         int64     `bun:"id,pk,autoincrement"`
	ClaimantID string    `bun:"claimant_id,notnull,unique"`
	Position   int       `bun:"position,notnull"`
	JoinedAt   time.Time `bun:"joined_at,notnull"`
}
