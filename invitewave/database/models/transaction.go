package models

import (
	"time"

	"github.com/uptrace/bun"
)

type TransactionStatus string

const (
	TransactionStatusPaid     TransactionStatus = "paid"
	TransactionStatusRefunded TransactionStatus = "refunded"
)

// Transaction records one confirmed payment and the generation work bought
// with it. Rows are never deleted; refunds flip the status and the row
// stays as the audit trail.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:tx"`

	ID      string `bun:"id,pk"`
	PayerID string `bun:"payer_id,notnull"`
	Type    string `bun:"type,notnull"`
	Mode    string `bun:"mode"`

	StarsPaid       int               `bun:"stars_paid,notnull"`
	ChargeReference string            `bun:"charge_reference,notnull"`
	Status          TransactionStatus `bun:"status,notnull,default:'paid'"`

	VideosGenerated []string `bun:"videos_generated,type:jsonb"`
	Delivered       bool     `bun:"delivered,notnull,default:false"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
