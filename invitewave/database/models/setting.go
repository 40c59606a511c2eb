package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CounterAvailableCodes is the advisory count of available pool slots.
// It is a display hint only; allocation decisions always use a live count.
const CounterAvailableCodes = "codes_available"

type Setting struct {
	bun.BaseModel `bun:"table:settings,alias:st"`

	Name      string    `bun:"name,pk"`
	Value     int64     `bun:"value,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
