package repository

import (
	"context"

	"backend/internal/model"

	"gorm.io/gorm"
)

type MeasurementConfigRepository interface {
	List(ctx context.Context) ([]model.MeasurementConfig, error)
	FindByGarmentType(ctx context.Context, garmentType string) (*model.MeasurementConfig, error)
	Save(ctx context.Context, config *model.MeasurementConfig) error
	Delete(ctx context.Context, garmentType string) error
}

type measurementConfigRepository struct {
	db *gorm.DB
}

func NewMeasurementConfigRepository(db *gorm.DB) MeasurementConfigRepository {
	return &measurementConfigRepository{db: db}
}

func (r *measurementConfigRepository) List(ctx context.Context) ([]model.MeasurementConfig, error) {
	var configs []model.MeasurementConfig
	if err := GetDB(ctx, r.db).Order("garment_type asc").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *measurementConfigRepository) FindByGarmentType(ctx context.Context, garmentType string) (*model.MeasurementConfig, error) {
	var config model.MeasurementConfig
	if err := GetDB(ctx, r.db).First(&config, "garment_type = ?", garmentType).Error; err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *measurementConfigRepository) Save(ctx context.Context, config *model.MeasurementConfig) error {
	return GetDB(ctx, r.db).Save(config).Error
}

func (r *measurementConfigRepository) Delete(ctx context.Context, garmentType string) error {
	res := GetDB(ctx, r.db).Delete(&model.MeasurementConfig{}, "garment_type = ?", garmentType)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
