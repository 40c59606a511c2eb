package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/uptrace/bun"
)

type LeaseRepository interface {
	// Acquire takes the named lease when it is free or expired. Returns
	// false without error when another holder still has it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

type leaseRepository struct {
	*BaseRepository
}

func NewLeaseRepository(db *bun.DB) LeaseRepository {
	return &leaseRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *leaseRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	acquired := false
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		lease := new(models.Lease)
		err := tx.NewSelect().
			Model(lease).
			Where("name = ?", name).
			For("UPDATE").
			Scan(ctx)

		now := time.Now()
		switch {
		case errors.Is(err, sql.ErrNoRows):
			lease = &models.Lease{
				Name:       name,
				AcquiredAt: now,
				TTLSeconds: int(ttl.Seconds()),
			}
			if _, err := tx.NewInsert().Model(lease).Exec(ctx); err != nil {
				return err
			}
			acquired = true
			return nil
		case err != nil:
			return err
		}

		if !lease.Expired(now) {
			return nil
		}

		// Expired holder: reclaim silently.
		_, err = tx.NewUpdate().
			Model((*models.Lease)(nil)).
			Set("acquired_at = ?", now).
			Set("ttl_seconds = ?", int(ttl.Seconds())).
			Where("name = ?", name).
			Exec(ctx)
		if err != nil {
			return err
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, r.HandleErrorWithID("acquire", "lease", name, err)
	}
	return acquired, nil
}

func (r *leaseRepository) Release(ctx context.Context, name string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewDelete().
		Model((*models.Lease)(nil)).
		Where("name = ?", name).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("release", "lease", name, err)
}
