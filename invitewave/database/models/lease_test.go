package models

import (
	"testing"
	"time"
)

func TestLeaseExpired(t *testing.T) {
	acquired := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	lease := &Lease{Name: "queue_processor", AcquiredAt: acquired, TTLSeconds: 60}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "fresh", now: acquired.Add(time.Second), want: false},
		{name: "just inside ttl", now: acquired.Add(59 * time.Second), want: false},
		{name: "exactly at ttl", now: acquired.Add(60 * time.Second), want: true},
		{name: "long past ttl", now: acquired.Add(time.Hour), want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := lease.Expired(tt.now); got != tt.want {
				t.Errorf("Expired(%s) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
