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
	ErrAlreadyQueued = errors.New("claimant already queued")
	ErrQueueEmpty    = errors.New("queue is empty")
)

type QueueRepository interface {
	// Admit appends the claimant at position max+1 and returns the
	// assigned position. ErrAlreadyQueued when a row already exists.
	Admit(ctx context.Context, claimantID string) (int, error)
	Head(ctx context.Context) (*models.QueueEntry, error)
	Remove(ctx context.Context, claimantID string) error
	All(ctx context.Context) ([]*models.QueueEntry, error)
	UpdatePositions(ctx context.Context, entries []*models.QueueEntry) error
	Count(ctx context.Context) (int, error)
	PositionOf(ctx context.Context, claimantID string) (int, error)
}

type queueRepository struct {
	*BaseRepository
}

func NewQueueRepository(db *bun.DB) QueueRepository {
	return &queueRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *queueRepository) Admit(ctx context.Context, claimantID string) (int, error) {
	position := 0
	err := r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.QueueEntry)(nil)).
			Where("claimant_id = ?", claimantID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if exists {
			return ErrAlreadyQueued
		}

		var max sql.NullInt64
		if err := tx.NewSelect().
			Model((*models.QueueEntry)(nil)).
			ColumnExpr("MAX(position)").
			Scan(ctx, &max); err != nil {
			return err
		}

		entry := &models.QueueEntry{
			ClaimantID: claimantID,
			Position:   int(max.Int64) + 1,
			JoinedAt:   time.Now(),
		}
		if _, err := tx.NewInsert().Model(entry).Exec(ctx); err != nil {
			return err
		}

		position = entry.Position
		return nil
	})
	if errors.Is(err, ErrAlreadyQueued) {
		return 0, err
	}
	if err != nil {
		return 0, r.HandleErrorWithID("admit", "queue_entry", claimantID, err)
	}
	return position, nil
}

func (r *queueRepository) Head(ctx context.Context) (*models.QueueEntry, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	entry := new(models.QueueEntry)
	err := r.GetDB().NewSelect().
		Model(entry).
		Order("position ASC").
		Limit(1).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrQueueEmpty
	}
	if err != nil {
		return nil, r.HandleError("head", "queue_entry", err)
	}
	return entry, nil
}

func (r *queueRepository) Remove(ctx context.Context, claimantID string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewDelete().
		Model((*models.QueueEntry)(nil)).
		Where("claimant_id = ?", claimantID).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("remove", "queue_entry", claimantID, err)
}

func (r *queueRepository) All(ctx context.Context) ([]*models.QueueEntry, error) {
	timeoutCtx, cancel := r.WithBatchTimeout(ctx)
	defer cancel()

	var entries []*models.QueueEntry
	err := r.GetDB().NewSelect().
		Model(&entries).
		Order("joined_at ASC").
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("all", "queue_entry", err)
	}
	return entries, nil
}

// UpdatePositions rewrites positions for one renumber chunk. Each row is a
// simple conditional update keyed by id; the chunk is not interdependent,
// so a batch (not a transaction) is the right primitive.
func (r *queueRepository) UpdatePositions(ctx context.Context, entries []*models.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}

	timeoutCtx, cancel := r.WithBatchTimeout(ctx)
	defer cancel()

	values := r.GetDB().NewValues(&entries)
	_, err := r.GetDB().NewUpdate().
		With("_data", values).
		Model((*models.QueueEntry)(nil)).
		TableExpr("_data").
		Set("position = _data.position").
		Where("qe.id = _data.id").
		Exec(timeoutCtx)
	return r.HandleError("update_positions", "queue_entry", err)
}

func (r *queueRepository) Count(ctx context.Context) (int, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	count, err := r.GetDB().NewSelect().
		Model((*models.QueueEntry)(nil)).
		Count(timeoutCtx)
	return count, r.HandleError("count", "queue_entry", err)
}

func (r *queueRepository) PositionOf(ctx context.Context, claimantID string) (int, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	entry := new(models.QueueEntry)
	err := r.GetDB().NewSelect().
		Model(entry).
		Where("claimant_id = ?", claimantID).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, &NotFoundError{Entity: "queue_entry", ID: claimantID}
	}
	if err != nil {
		return 0, r.HandleErrorWithID("position_of", "queue_entry", claimantID, err)
	}
	return entry.Position, nil
}
