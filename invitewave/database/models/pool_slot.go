package models

import (
	"time"

	"github.com/uptrace/bun"
)

type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusSent      SlotStatus = "sent"
)

// SubmitterDonation tags slots donated by an admin on behalf of the
// project rather than returned by a claimant. Complaint fan-out skips
// notifying this identity.
const SubmitterDonation = "donation"

// PoolSlot is one redeemable use of a physical invite code. A code with a
// usage limit of 4 is stored as up to 4 slots sharing the same code value;
// the per-code total across every submitter is what the cap binds.
type PoolSlot struct {
	bun.BaseModel `bun:"table:pool_slots,alias:ps"`

	ID          int64      `bun:"id,pk,autoincrement"`
	Code        string     `bun:"code,notnull"`
	SubmittedBy string     `bun:"submitted_by,notnull"`
	Status      SlotStatus `bun:"status,notnull,default:'available'"`

	// UsageNumber is this slot's ordinal among all slots ever created for
	// its code value; TotalLimit is the configured per-code cap at the time
	// the slot was created.
	UsageNumber int `bun:"usage_number,notnull"`
	TotalLimit  int `bun:"total_limit,notnull"`

	SentTo string    `bun:"sent_to"`
	SentAt time.Time `bun:"sent_at"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
