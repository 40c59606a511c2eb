package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/uptrace/bun"
)

var (
	ErrNoSlotAvailable = errors.New("no available slot in pool")
	ErrSlotAlreadySent = errors.New("slot already sent")
)

type PoolRepository interface {
	// AddSlotsCapped creates up to requested slots for code, never letting
	// the lifetime total for that code value exceed cap. Returns the
	// number actually created, which may be zero.
	AddSlotsCapped(ctx context.Context, code, submitterID string, requested, cap int) (int, error)
	TakeAvailable(ctx context.Context) (*models.PoolSlot, error)
	MarkSent(ctx context.Context, slotID int64, recipientID string) error
	RemoveAllForCode(ctx context.Context, code string) (int64, error)
	CountForCode(ctx context.Context, code string) (int, error)
	CountAvailable(ctx context.Context) (int, error)
	CodesBySubmitters(ctx context.Context, submitterIDs []string) ([]string, error)
	SubmitterOf(ctx context.Context, code string) (string, error)
	GetByID(ctx context.Context, slotID int64) (*models.PoolSlot, error)
}

type poolRepository struct {
	*BaseRepository
}

func NewPoolRepository(db *bun.DB) PoolRepository {
	return &poolRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *poolRepository) AddSlotsCapped(ctx context.Context, code, submitterID string, requested, cap int) (int, error) {
	if requested <= 0 {
		return 0, nil
	}

	added := 0
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		// Live count is the ground truth; the cap binds across every
		// submitter who ever donated this code value.
		existing, err := tx.NewSelect().
			Model((*models.PoolSlot)(nil)).
			Where("code = ?", code).
			Count(ctx)
		if err != nil {
			return err
		}

		room := cap - existing
		if room <= 0 {
			return nil
		}
		if requested < room {
			room = requested
		}

		slots := make([]*models.PoolSlot, 0, room)
		for i := 0; i < room; i++ {
			slots = append(slots, &models.PoolSlot{
				Code:        code,
				SubmittedBy: submitterID,
				Status:      models.SlotStatusAvailable,
				UsageNumber: existing + i + 1,
				TotalLimit:  cap,
				CreatedAt:   time.Now(),
			})
		}
		if _, err := tx.NewInsert().Model(&slots).Exec(ctx); err != nil {
			return err
		}

		added = room
		return nil
	})
	if err != nil {
		return 0, r.HandleError("add_slots", "pool_slot", err)
	}
	return added, nil
}

func (r *poolRepository) TakeAvailable(ctx context.Context) (*models.PoolSlot, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	slot := new(models.PoolSlot)
	err := r.GetDB().NewSelect().
		Model(slot).
		Where("status = ?", models.SlotStatusAvailable).
		Limit(1).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSlotAvailable
	}
	if err != nil {
		return nil, r.HandleError("take_available", "pool_slot", err)
	}
	return slot, nil
}

func (r *poolRepository) MarkSent(ctx context.Context, slotID int64, recipientID string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	// Conditional write: flipping an already-sent slot must be a no-op
	// error, not a silent re-send.
	result, err := r.GetDB().NewUpdate().
		Model((*models.PoolSlot)(nil)).
		Set("status = ?", models.SlotStatusSent).
		Set("sent_to = ?", recipientID).
		Set("sent_at = ?", time.Now()).
		Where("id = ?", slotID).
		Where("status = ?", models.SlotStatusAvailable).
		Exec(timeoutCtx)
	if err != nil {
		return r.HandleErrorWithID("mark_sent", "pool_slot", slotID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.HandleErrorWithID("mark_sent", "pool_slot", slotID, err)
	}
	if affected == 0 {
		return ErrSlotAlreadySent
	}
	return nil
}

func (r *poolRepository) RemoveAllForCode(ctx context.Context, code string) (int64, error) {
	timeoutCtx, cancel := r.WithBatchTimeout(ctx)
	defer cancel()

	result, err := r.GetDB().NewDelete().
		Model((*models.PoolSlot)(nil)).
		Where("code = ?", code).
		Exec(timeoutCtx)
	if err != nil {
		return 0, r.HandleError("remove_all_for_code", "pool_slot", err)
	}
	return result.RowsAffected()
}

func (r *poolRepository) CountForCode(ctx context.Context, code string) (int, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	count, err := r.GetDB().NewSelect().
		Model((*models.PoolSlot)(nil)).
		Where("code = ?", code).
		Count(timeoutCtx)
	return count, r.HandleError("count_for_code", "pool_slot", err)
}

func (r *poolRepository) CountAvailable(ctx context.Context) (int, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	count, err := r.GetDB().NewSelect().
		Model((*models.PoolSlot)(nil)).
		Where("status = ?", models.SlotStatusAvailable).
		Count(timeoutCtx)
	return count, r.HandleError("count_available", "pool_slot", err)
}

func (r *poolRepository) CodesBySubmitters(ctx context.Context, submitterIDs []string) ([]string, error) {
	timeoutCtx, cancel := r.WithBatchTimeout(ctx)
	defer cancel()

	var codes []string
	err := r.GetDB().NewSelect().
		Model((*models.PoolSlot)(nil)).
		Column("code").
		Distinct().
		Where("submitted_by IN (?)", bun.In(submitterIDs)).
		Scan(timeoutCtx, &codes)
	if err != nil {
		return nil, r.HandleError("codes_by_submitters", "pool_slot", err)
	}
	return codes, nil
}

func (r *poolRepository) SubmitterOf(ctx context.Context, code string) (string, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	slot := new(models.PoolSlot)
	err := r.GetDB().NewSelect().
		Model(slot).
		Column("submitted_by").
		Where("code = ?", code).
		Limit(1).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", r.HandleError("submitter_of", "pool_slot", err)
	}
	return slot.SubmittedBy, nil
}

func (r *poolRepository) GetByID(ctx context.Context, slotID int64) (*models.PoolSlot, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	slot := new(models.PoolSlot)
	err := r.GetDB().NewSelect().
		Model(slot).
		Where("id = ?", slotID).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleErrorWithID("get", "pool_slot", slotID, err)
	}
	return slot, nil
}
