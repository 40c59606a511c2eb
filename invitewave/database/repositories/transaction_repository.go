package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/uptrace/bun"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) error
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	AppendArtifact(ctx context.Context, id, artifactID string) error
	MarkDelivered(ctx context.Context, id string) error
	MarkRefunded(ctx context.Context, id string) error
}

type transactionRepository struct {
	*BaseRepository
}

func NewTransactionRepository(db *bun.DB) TransactionRepository {
	return &transactionRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *transactionRepository) Create(ctx context.Context, transaction *models.Transaction) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	transaction.CreatedAt = time.Now()
	transaction.UpdatedAt = time.Now()
	_, err := r.GetDB().NewInsert().
		Model(transaction).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("create", "transaction", transaction.ID, err)
}

func (r *transactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	transaction := new(models.Transaction)
	err := r.GetDB().NewSelect().
		Model(transaction).
		Where("id = ?", id).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Entity: "transaction", ID: id}
	}
	if err != nil {
		return nil, r.HandleErrorWithID("get", "transaction", id, err)
	}
	return transaction, nil
}

func (r *transactionRepository) AppendArtifact(ctx context.Context, id, artifactID string) error {
	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		transaction := new(models.Transaction)
		if err := tx.NewSelect().
			Model(transaction).
			Where("id = ?", id).
			For("UPDATE").
			Scan(ctx); err != nil {
			return err
		}

		transaction.VideosGenerated = append(transaction.VideosGenerated, artifactID)
		transaction.UpdatedAt = time.Now()
		_, err := tx.NewUpdate().Model(transaction).WherePK().Exec(ctx)
		return err
	})
}

func (r *transactionRepository) MarkDelivered(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model((*models.Transaction)(nil)).
		Set("delivered = TRUE").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("mark_delivered", "transaction", id, err)
}

func (r *transactionRepository) MarkRefunded(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model((*models.Transaction)(nil)).
		Set("status = ?", models.TransactionStatusRefunded).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(timeoutCtx)
	return r.HandleErrorWithID("mark_refunded", "transaction", id, err)
}
