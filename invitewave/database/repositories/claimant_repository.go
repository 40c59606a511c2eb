package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/uptrace/bun"
)

var ErrGrantLimitReached = errors.New("claimant grant limit reached")

type ClaimantRepository interface {
	GetByID(ctx context.Context, id string) (*models.Claimant, error)
	GetOrCreate(ctx context.Context, id, language string) (*models.Claimant, error)
	Update(ctx context.Context, claimant *models.Claimant) error
	// GrantCode records a code grant: status flips to received, the code
	// is stored and the lifetime grant counter is bumped, all in one
	// conditional write so a concurrent cycle cannot double-grant.
	GrantCode(ctx context.Context, id, code string) error
	// ResetByCodes clears the grant of every claimant holding one of the
	// purged codes and returns the affected claimants.
	ResetByCodes(ctx context.Context, codes []string) ([]*models.Claimant, error)
	FindByGrantedCode(ctx context.Context, code string) ([]*models.Claimant, error)
	RecordComplaint(ctx context.Context, id, code string) error
	Ban(ctx context.Context, id, reason string) error
}

type claimantRepository struct {
	*BaseRepository
}

func NewClaimantRepository(db *bun.DB) ClaimantRepository {
	return &claimantRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *claimantRepository) GetByID(ctx context.Context, id string) (*models.Claimant, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	claimant := new(models.Claimant)
	err := r.GetDB().NewSelect().
		Model(claimant).
		Where("id = ?", id).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "claimant", ID: id}
	}
	if err != nil {
		return nil, r.HandleErrorWithID("get", "claimant", id, err)
	}
	return claimant, nil
}

func (r *claimantRepository) GetOrCreate(ctx context.Context, id, language string) (*models.Claimant, error) {
	claimant, err := r.GetByID(ctx, id)
	if err == nil {
		return claimant, nil
	}
	if !IsNotFound(err) {
		return nil, err
	}

	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	claimant = &models.Claimant{
		ID:        id,
		Language:  language,
		Status:    models.ClaimantStatusNew,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	_, err = r.GetDB().NewInsert().
		Model(claimant).
		On("CONFLICT (id) DO NOTHING").
		Exec(timeoutCtx)
	if err != nil {
		return nil, r.HandleErrorWithID("create", "claimant", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r *claimantRepository) Update(ctx context.Context, claimant *models.Claimant) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	claimant.UpdatedAt = time.Now()
	_, err := r.GetDB().NewUpdate().
		Model(claimant).
		WherePK().
		Exec(timeoutCtx)
	return r.HandleErrorWithID("update", "claimant", claimant.ID, err)
}

func (r *claimantRepository) GrantCode(ctx context.Context, id, code string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	result, err := r.GetDB().NewUpdate().
		Model((*models.Claimant)(nil)).
		Set("status = ?", models.ClaimantStatusReceived).
		Set("granted_code = ?", code).
		Set("grants_received = grants_received + 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("grants_received < ?", models.MaxGrantsPerClaimant).
		Exec(timeoutCtx)
	if err != nil {
		return r.HandleErrorWithID("grant_code", "claimant", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return r.HandleErrorWithID("grant_code", "claimant", id, err)
	}
	if affected == 0 {
		return ErrGrantLimitReached
	}
	return nil
}

func (r *claimantRepository) ResetByCodes(ctx context.Context, codes []string) ([]*models.Claimant, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	timeoutCtx, cancel := r.WithBatchTimeout(ctx)
	defer cancel()

	var affected []*models.Claimant
	err := r.GetDB().NewSelect().
		Model(&affected).
		Where("granted_code IN (?)", bun.In(codes)).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("reset_by_codes", "claimant", err)
	}
	if len(affected) == 0 {
		return nil, nil
	}

	_, err = r.GetDB().NewUpdate().
		Model((*models.Claimant)(nil)).
		Set("status = ?", models.ClaimantStatusNew).
		Set("granted_code = NULL").
		Set("updated_at = ?", time.Now()).
		Where("granted_code IN (?)", bun.In(codes)).
		Exec(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("reset_by_codes", "claimant", err)
	}
	return affected, nil
}

func (r *claimantRepository) FindByGrantedCode(ctx context.Context, code string) ([]*models.Claimant, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var claimants []*models.Claimant
	err := r.GetDB().NewSelect().
		Model(&claimants).
		Where("granted_code = ?", code).
		Scan(timeoutCtx)
	if err != nil {
		return nil, r.HandleError("find_by_granted_code", "claimant", err)
	}
	return claimants, nil
}

func (r *claimantRepository) RecordComplaint(ctx context.Context, id, code string) error {
	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		claimant := new(models.Claimant)
		if err := tx.NewSelect().
			Model(claimant).
			Where("id = ?", id).
			For("UPDATE").
			Scan(ctx); err != nil {
			return err
		}

		if !claimant.HasReported(code) {
			claimant.ReportedCodes = append(claimant.ReportedCodes, code)
		}
		claimant.ComplaintsFiled++
		claimant.LastComplaintAt = time.Now()
		claimant.UpdatedAt = time.Now()

		_, err := tx.NewUpdate().Model(claimant).WherePK().Exec(ctx)
		return err
	})
}

func (r *claimantRepository) Ban(ctx context.Context, id, reason string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model((*models.Claimant)(nil)).
		Set("banned = TRUE").
		Set("ban_reason = ?", reason).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("ban", "claimant", id, err)
}
