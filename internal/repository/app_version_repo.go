package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AppVersionRepository interface {
	// Upsert registers a build, replacing any existing row with the same key.
	Upsert(ctx context.Context, version *model.AppVersion) error
	FindByPlatformComponent(ctx context.Context, platform, component string) ([]model.AppVersion, error)
}

type appVersionRepository struct {
	db *gorm.DB
}

func NewAppVersionRepository(db *gorm.DB) AppVersionRepository {
	return &appVersionRepository{db: db}
}

func (r *appVersionRepository) Upsert(ctx context.Context, version *model.AppVersion) error {
	return GetDB(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(version).Error
}

func (r *appVersionRepository) FindByPlatformComponent(ctx context.Context, platform, component string) ([]model.AppVersion, error) {
	var versions []model.AppVersion
	if err := GetDB(ctx, r.db).
		Where("platform = ? AND component = ?", platform, component).
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}
