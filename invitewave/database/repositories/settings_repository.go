package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/hyewave/invitewave/invitewave/database/models"
	"github.com/uptrace/bun"
)

// SettingsRepository holds the advisory aggregate counters. Writes are
// best-effort: callers log failures and move on, and nothing correctness-
// critical may branch on a counter value.
type SettingsRepository interface {
	IncrementCounter(ctx context.Context, name string, delta int64) error
	SetCounter(ctx context.Context, name string, value int64) error
	GetCounter(ctx context.Context, name string) (int64, error)
}

type settingsRepository struct {
	*BaseRepository
}

func NewSettingsRepository(db *bun.DB) SettingsRepository {
	return &settingsRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *settingsRepository) IncrementCounter(ctx context.Context, name string, delta int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	setting := &models.Setting{
		Name:      name,
		Value:     delta,
		UpdatedAt: time.Now(),
	}
	// Floor at zero: a stray double-decrement must not drive the display
	// counter negative.
	_, err := r.GetDB().NewInsert().
		Model(setting).
		On("CONFLICT (name) DO UPDATE").
		Set("value = GREATEST(0, st.value + EXCLUDED.value)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(timeoutCtx)
	return r.HandleErrorWithID("increment_counter", "setting", name, err)
}

func (r *settingsRepository) SetCounter(ctx context.Context, name string, value int64) error {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	if value < 0 {
		value = 0
	}
	setting := &models.Setting{
		Name:      name,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	_, err := r.GetDB().NewInsert().
		Model(setting).
		On("CONFLICT (name) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(timeoutCtx)
	return r.HandleErrorWithID("set_counter", "setting", name, err)
}

func (r *settingsRepository) GetCounter(ctx context.Context, name string) (int64, error) {
	timeoutCtx, cancel := r.WithTimeout(ctx)
	defer cancel()

	setting := new(models.Setting)
	err := r.GetDB().NewSelect().
		Model(setting).
		Where("name = ?", name).
		Scan(timeoutCtx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, r.HandleErrorWithID("get_counter", "setting", name, err)
	}
	return setting.Value, nil
}
