package models

import (
	"time"

	"github.com/uptrace/bun"
)

type ClaimantStatus string

const (
	ClaimantStatusNew            ClaimantStatus = "new"
	ClaimantStatusWaiting        ClaimantStatus = "waiting"
	ClaimantStatusReceived       ClaimantStatus = "received"
	ClaimantStatusCompleted      ClaimantStatus = "completed"
	ClaimantStatusReturnedUnused ClaimantStatus = "returned_unused"
)

// MaxGrantsPerClaimant caps how many codes a single claimant can ever be
// granted, including re-grants after a complaint.
const MaxGrantsPerClaimant = 2

type Claimant struct {
	bun.BaseModel `bun:"table:claimants,alias:cm"`

	ID       string         `bun:"id,pk"`
	Language string         `bun:"language,notnull,default:'en'"`
	Status   ClaimantStatus `bun:"status,notnull,default:'new'"`

	GrantedCode    string `bun:"granted_code"`
	CodesReturned  int    `bun:"codes_returned,notnull,default:0"`
	GrantsReceived int    `bun:"grants_received,notnull,default:0"`

	// Complaints the claimant has filed, by code value.
	ReportedCodes   []string  `bun:"reported_codes,type:jsonb"`
	ComplaintsFiled int       `bun:"complaints_filed,notnull,default:0"`
	LastComplaintAt time.Time `bun:"last_complaint_at"`

	Banned    bool   `bun:"banned,notnull,default:false"`
	BanReason string `bun:"ban_reason"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// HasReported reports whether the claimant already filed a complaint
// against the given code value.
func (c *Claimant) HasReported(code string) bool {
	for _, reported := range c.ReportedCodes {
		if reported == code {
			return true
		}
	}
	return false
}
