package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ArthurKelvin/polling-app/internal/domain"
)

// PollRepository persists polls together with their options.
type PollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) *PollRepository {
	return &PollRepository{db: db}
}

func (r *PollRepository) Create(ctx context.Context, p domain.Poll) error {
	// Options ride along in the same insert; GORM writes the association rows
	// within one transaction.
	if err := r.db.WithContext(ctx).Omit("Votes").Create(&p).Error; err != nil {
		return fmt.Errorf("gorm polls: insert: %w", err)
	}
	return nil
}

func (r *PollRepository) FindByID(ctx context.Context, id domain.PollID) (domain.Poll, error) {
	var p domain.Poll
	if err := r.db.WithContext(ctx).
		Preload("Options", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Poll{}, domain.ErrNotFound
		}
		return domain.Poll{}, fmt.Errorf("gorm polls: find by id: %w", err)
	}
	return p, nil
}

func (r *PollRepository) Delete(ctx context.Context, id domain.PollID) error {
	// FK cascade removes the poll's options and ledger rows.
	res := r.db.WithContext(ctx).Delete(&domain.Poll{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("gorm polls: delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PollRepository) ListPublic(ctx context.Context) ([]domain.Poll, error) {
	var polls []domain.Poll
	if err := r.db.WithContext(ctx).
		Where("public = ?", true).
		Order("created_at DESC").
		Find(&polls).Error; err != nil {
		return nil, fmt.Errorf("gorm polls: list public: %w", err)
	}
	return polls, nil
}

// ListIDs returns every poll id, public or not. Used by the recount repair.
func (r *PollRepository) ListIDs(ctx context.Context) ([]domain.PollID, error) {
	var pollIDs []domain.PollID
	if err := r.db.WithContext(ctx).
		Model(&domain.Poll{}).
		Order("id ASC").
		Pluck("id", &pollIDs).Error; err != nil {
		return nil, fmt.Errorf("gorm polls: list ids: %w", err)
	}
	return pollIDs, nil
}

var _ domain.PollRepository = (*PollRepository)(nil)
