package repository

import (
	"context"
	"errors"
	"time"

	"chat-companion-analytics/backend/usage/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UsageRepository persists per-owner counters and badge grants.
type UsageRepository interface {
	GetStats(ctx context.Context, ownerID uint) (*models.UsageStats, error)
	SaveStats(ctx context.Context, stats *models.UsageStats) error
	// Grant records a badge grant and reports whether this call created it.
	// A grant that already exists returns false with no error.
	Grant(ctx context.Context, ownerID uint, category, tier string, at time.Time) (bool, error)
	ListGrants(ctx context.Context, ownerID uint) ([]models.BadgeGrant, error)
}

type GormUsageRepository struct {
	db *gorm.DB
}

func NewGormUsageRepository(db *gorm.DB) *GormUsageRepository {
	return &GormUsageRepository{db: db}
}

func (r *GormUsageRepository) Migrate() error {
	return r.db.AutoMigrate(&models.UsageStats{}, &models.BadgeGrant{})
}

// GetStats returns the owner's counters, zero-valued when the owner has no
// recorded usage yet.
func (r *GormUsageRepository) GetStats(ctx context.Context, ownerID uint) (*models.UsageStats, error) {
	var stats models.UsageStats
	err := r.db.WithContext(ctx).First(&stats, "owner_id = ?", ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.UsageStats{OwnerID: ownerID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *GormUsageRepository) SaveStats(ctx context.Context, stats *models.UsageStats) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "owner_id"}},
		UpdateAll: true,
	}).Create(stats).Error
}

func (r *GormUsageRepository) Grant(ctx context.Context, ownerID uint, category, tier string, at time.Time) (bool, error) {
	grant := models.BadgeGrant{
		OwnerID:   ownerID,
		Category:  category,
		Tier:      tier,
		GrantedAt: at,
	}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&grant)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormUsageRepository) ListGrants(ctx context.Context, ownerID uint) ([]models.BadgeGrant, error) {
	var grants []models.BadgeGrant
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("granted_at ASC").
		Find(&grants).Error
	return grants, err
}
