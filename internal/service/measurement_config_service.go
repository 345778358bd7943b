package service

import (
	"context"
	"errors"
	"time"

	"backend/internal/apierror"
	"backend/internal/model"
	"backend/internal/repository"

	"gorm.io/gorm"
)

type MeasurementConfigRequest struct {
	GarmentType string              `json:"garmentType" binding:"required"`
	Fields      []model.ConfigField `json:"measurements"`
}

type MeasurementConfigResponse struct {
	ID          string              `json:"id"` // garment type doubles as the id
	GarmentType string              `json:"garmentType"`
	Fields      []model.ConfigField `json:"measurements"`
	CreatedAt   int64               `json:"createdAt"`
	UpdatedAt   int64               `json:"updatedAt"`
}

type MeasurementConfigService interface {
	List(ctx context.Context) ([]MeasurementConfigResponse, error)
	Create(ctx context.Context, req MeasurementConfigRequest) (*MeasurementConfigResponse, error)
	Update(ctx context.Context, garmentType string, fields []model.ConfigField) (*MeasurementConfigResponse, error)
	Delete(ctx context.Context, garmentType string) error
}

type measurementConfigService struct {
	repo repository.MeasurementConfigRepository
	now  func() time.Time
}

func NewMeasurementConfigService(repo repository.MeasurementConfigRepository) MeasurementConfigService {
	return &measurementConfigService{repo: repo, now: time.Now}
}

func (s *measurementConfigService) List(ctx context.Context) ([]MeasurementConfigResponse, error) {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Storage(err, "failed to list measurement configs")
	}
	result := make([]MeasurementConfigResponse, 0, len(configs))
	for i := range configs {
		result = append(result, toConfigResponse(&configs[i]))
	}
	return result, nil
}

func (s *measurementConfigService) Create(ctx context.Context, req MeasurementConfigRequest) (*MeasurementConfigResponse, error) {
	if req.GarmentType == "" {
		return nil, apierror.Validationf("garment type is required")
	}

	nowUnix := s.now().Unix()
	config := model.MeasurementConfig{
		GarmentType: req.GarmentType,
		Fields:      req.Fields,
		CreatedAt:   nowUnix,
		UpdatedAt:   nowUnix,
	}
	if err := s.repo.Save(ctx, &config); err != nil {
		return nil, apierror.Storage(err, "failed to save measurement config")
	}

	resp := toConfigResponse(&config)
	return &resp, nil
}

func (s *measurementConfigService) Update(ctx context.Context, garmentType string, fields []model.ConfigField) (*MeasurementConfigResponse, error) {
	config, err := s.repo.FindByGarmentType(ctx, garmentType)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("measurement config not found")
		}
		return nil, apierror.Storage(err, "failed to load measurement config")
	}

	config.Fields = fields
	config.UpdatedAt = s.now().Unix()
	if err := s.repo.Save(ctx, config); err != nil {
		return nil, apierror.Storage(err, "failed to update measurement config")
	}

	resp := toConfigResponse(config)
	return &resp, nil
}

func (s *measurementConfigService) Delete(ctx context.Context, garmentType string) error {
	if err := s.repo.Delete(ctx, garmentType); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFoundf("measurement config not found")
		}
		return apierror.Storage(err, "failed to delete measurement config")
	}
	return nil
}

func toConfigResponse(c *model.MeasurementConfig) MeasurementConfigResponse {
	return MeasurementConfigResponse{
		ID:          c.GarmentType,
		GarmentType: c.GarmentType,
		Fields:      c.Fields,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
