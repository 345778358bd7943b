package service

import (
	"context"
	"errors"
	"time"

	"backend/internal/apierror"
	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ServiceRequest struct {
	Name         string          `json:"name" binding:"required"`
	Description  string          `json:"description"`
	DefaultPrice decimal.Decimal `json:"defaultPrice" binding:"required"`
}

type ServiceResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	DefaultPrice decimal.Decimal `json:"defaultPrice"`
	CreatedAt    int64           `json:"createdAt"`
	UpdatedAt    int64           `json:"updatedAt"`
}

// CatalogService manages the price list of offered tailoring services.
type CatalogService interface {
	List(ctx context.Context) ([]ServiceResponse, error)
	Create(ctx context.Context, req ServiceRequest) (*ServiceResponse, error)
	Update(ctx context.Context, id uuid.UUID, req ServiceRequest) (*ServiceResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	repo repository.ServiceRepository
	now  func() time.Time
}

func NewCatalogService(repo repository.ServiceRepository) CatalogService {
	return &catalogService{repo: repo, now: time.Now}
}

func (s *catalogService) List(ctx context.Context) ([]ServiceResponse, error) {
	services, err := s.repo.List(ctx)
	if err != nil {
		return nil, apierror.Storage(err, "failed to list services")
	}
	result := make([]ServiceResponse, 0, len(services))
	for i := range services {
		result = append(result, toServiceResponse(&services[i]))
	}
	return result, nil
}

func (s *catalogService) Create(ctx context.Context, req ServiceRequest) (*ServiceResponse, error) {
	if err := validateServiceRequest(req); err != nil {
		return nil, err
	}

	nowUnix := s.now().Unix()
	svc := model.Service{
		ID:           uuid.New(),
		Name:         req.Name,
		Description:  req.Description,
		DefaultPrice: req.DefaultPrice.Round(2),
		CreatedAt:    nowUnix,
		UpdatedAt:    nowUnix,
	}
	if err := s.repo.Create(ctx, &svc); err != nil {
		return nil, apierror.Storage(err, "failed to create service")
	}

	resp := toServiceResponse(&svc)
	return &resp, nil
}

func (s *catalogService) Update(ctx context.Context, id uuid.UUID, req ServiceRequest) (*ServiceResponse, error) {
	if err := validateServiceRequest(req); err != nil {
		return nil, err
	}

	svc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("service not found")
		}
		return nil, apierror.Storage(err, "failed to load service")
	}

	svc.Name = req.Name
	svc.Description = req.Description
	svc.DefaultPrice = req.DefaultPrice.Round(2)
	svc.UpdatedAt = s.now().Unix()
	if err := s.repo.Save(ctx, svc); err != nil {
		return nil, apierror.Storage(err, "failed to update service")
	}

	resp := toServiceResponse(svc)
	return &resp, nil
}

func (s *catalogService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFoundf("service not found")
		}
		return apierror.Storage(err, "failed to delete service")
	}
	return nil
}

func validateServiceRequest(req ServiceRequest) error {
	if req.Name == "" {
		return apierror.Validationf("service name is required")
	}
	if req.DefaultPrice.IsNegative() {
		return apierror.Validationf("default price must not be negative")
	}
	return nil
}

func toServiceResponse(svc *model.Service) ServiceResponse {
	return ServiceResponse{
		ID:           svc.ID.String(),
		Name:         svc.Name,
		Description:  svc.Description,
		DefaultPrice: svc.DefaultPrice,
		CreatedAt:    svc.CreatedAt,
		UpdatedAt:    svc.UpdatedAt,
	}
}
