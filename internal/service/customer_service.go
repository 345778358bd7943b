package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"backend/internal/apierror"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type PersonalDetails struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Email   string `json:"email"`
}

type CustomerRequest struct {
	PersonalDetails PersonalDetails      `json:"personalDetails" binding:"required"`
	Measurements    []MeasurementRequest `json:"measurements" binding:"dive"`
	Comments        string               `json:"comments"`
}

type MeasurementRequest struct {
	ID               string                   `json:"id"` // set to update an existing measurement
	GarmentType      string                   `json:"garmentType" binding:"required"`
	Fields           []model.MeasurementField `json:"fields"`
	Notes            string                   `json:"notes"`
	LastMeasuredDate string                   `json:"lastMeasuredDate"`
}

type CustomerFilter struct {
	SearchText  string
	SearchField string
	Limit       int
}

type CustomerResponse struct {
	ID              string              `json:"id"`
	CustomerNumber  string              `json:"customerNumber"`
	PersonalDetails PersonalDetails     `json:"personalDetails"`
	Measurements    []model.Measurement `json:"measurements"`
	Comments        string              `json:"comments"`
	CreatedAt       int64               `json:"createdAt"`
	UpdatedAt       int64               `json:"updatedAt"`
}

type CustomerListResponse struct {
	Customers []CustomerResponse `json:"customers"`
	HasMore   bool               `json:"hasMore"`
}

type CustomerExistsResponse struct {
	Exists     bool               `json:"exists"`
	Duplicates []CustomerResponse `json:"duplicates"`
}

// --- Interface ---

type CustomerService interface {
	CreateCustomer(ctx context.Context, req CustomerRequest) (*CustomerResponse, error)
	GetCustomer(ctx context.Context, id string) (*CustomerResponse, error)
	ListCustomers(ctx context.Context, filter CustomerFilter) (*CustomerListResponse, error)
	UpdateCustomer(ctx context.Context, id string, req CustomerRequest) (*CustomerResponse, error)
	DeleteCustomer(ctx context.Context, id string) error
	CheckExists(ctx context.Context, phone string) (*CustomerExistsResponse, error)

	GetMeasurements(ctx context.Context, customerID string) ([]model.Measurement, error)
	SaveMeasurement(ctx context.Context, customerID string, req MeasurementRequest) (*model.Measurement, error)
	DeleteMeasurement(ctx context.Context, customerID, measurementID string) error
}

type customerService struct {
	repo repository.CustomerRepository
	now  func() time.Time
}

func NewCustomerService(repo repository.CustomerRepository) CustomerService {
	return &customerService{repo: repo, now: time.Now}
}

// --- Implementation ---

func (s *customerService) CreateCustomer(ctx context.Context, req CustomerRequest) (*CustomerResponse, error) {
	if err := validatePersonalDetails(req.PersonalDetails); err != nil {
		return nil, err
	}

	nowUnix := s.now().Unix()
	id := uuid.New()
	customer := model.Customer{
		ID: id,
		// Short display number derived from the id, enough for the counter desk.
		CustomerNumber: strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8]),
		Name:           req.PersonalDetails.Name,
		Phone:          req.PersonalDetails.Phone,
		Address:        req.PersonalDetails.Address,
		Email:          req.PersonalDetails.Email,
		Comments:       req.Comments,
		Measurements:   toMeasurements(req.Measurements),
		CreatedAt:      nowUnix,
		UpdatedAt:      nowUnix,
	}

	if err := s.repo.Create(ctx, &customer); err != nil {
		return nil, apierror.Storage(err, "failed to create customer")
	}

	resp := toCustomerResponse(&customer)
	return &resp, nil
}

func (s *customerService) GetCustomer(ctx context.Context, id string) (*CustomerResponse, error) {
	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toCustomerResponse(customer)
	return &resp, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter CustomerFilter) (*CustomerListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}

	customers, err := s.repo.List(ctx, repository.CustomerQuery{
		Text:  filter.SearchText,
		Field: filter.SearchField,
		Limit: filter.Limit,
	})
	if err != nil {
		return nil, apierror.Storage(err, "failed to list customers")
	}

	result := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		result = append(result, toCustomerResponse(&customers[i]))
	}
	return &CustomerListResponse{
		Customers: result,
		HasMore:   pagination.HasMore(len(result), filter.Limit),
	}, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id string, req CustomerRequest) (*CustomerResponse, error) {
	if err := validatePersonalDetails(req.PersonalDetails); err != nil {
		return nil, err
	}

	customer, err := s.findCustomer(ctx, id)
	if err != nil {
		return nil, err
	}

	customer.Name = req.PersonalDetails.Name
	customer.Phone = req.PersonalDetails.Phone
	customer.Address = req.PersonalDetails.Address
	customer.Email = req.PersonalDetails.Email
	customer.Comments = req.Comments
	customer.Measurements = toMeasurements(req.Measurements)
	customer.UpdatedAt = s.now().Unix()

	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, apierror.Storage(err, "failed to update customer")
	}

	resp := toCustomerResponse(customer)
	return &resp, nil
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return apierror.Validationf("invalid customer id: %s", id)
	}
	if err := s.repo.Delete(ctx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFoundf("customer not found")
		}
		return apierror.Storage(err, "failed to delete customer")
	}
	return nil
}

func (s *customerService) CheckExists(ctx context.Context, phone string) (*CustomerExistsResponse, error) {
	if phone == "" {
		return nil, apierror.Validationf("phone number is required")
	}
	matches, err := s.repo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, apierror.Storage(err, "failed to check customer existence")
	}
	duplicates := make([]CustomerResponse, 0, len(matches))
	for i := range matches {
		duplicates = append(duplicates, toCustomerResponse(&matches[i]))
	}
	return &CustomerExistsResponse{
		Exists:     len(duplicates) > 0,
		Duplicates: duplicates,
	}, nil
}

// --- Measurements ---

func (s *customerService) GetMeasurements(ctx context.Context, customerID string) ([]model.Measurement, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return customer.Measurements, nil
}

// SaveMeasurement upserts one measurement set: a request carrying a known id
// replaces that entry, anything else appends.
func (s *customerService) SaveMeasurement(ctx context.Context, customerID string, req MeasurementRequest) (*model.Measurement, error) {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	measurement := model.Measurement{
		ID:               req.ID,
		GarmentType:      req.GarmentType,
		Fields:           req.Fields,
		Notes:            req.Notes,
		LastMeasuredDate: req.LastMeasuredDate,
	}
	if measurement.ID == "" {
		measurement.ID = newMeasurementID()
	}

	replaced := false
	for i := range customer.Measurements {
		if customer.Measurements[i].ID == measurement.ID {
			customer.Measurements[i] = measurement
			replaced = true
			break
		}
	}
	if !replaced {
		customer.Measurements = append(customer.Measurements, measurement)
	}
	customer.UpdatedAt = s.now().Unix()

	if err := s.repo.Save(ctx, customer); err != nil {
		return nil, apierror.Storage(err, "failed to save measurement")
	}
	return &measurement, nil
}

func (s *customerService) DeleteMeasurement(ctx context.Context, customerID, measurementID string) error {
	customer, err := s.findCustomer(ctx, customerID)
	if err != nil {
		return err
	}

	kept := customer.Measurements[:0:0]
	found := false
	for _, m := range customer.Measurements {
		if m.ID == measurementID {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	if !found {
		return apierror.NotFoundf("measurement not found")
	}

	customer.Measurements = kept
	customer.UpdatedAt = s.now().Unix()
	if err := s.repo.Save(ctx, customer); err != nil {
		return apierror.Storage(err, "failed to delete measurement")
	}
	return nil
}

// --- Helpers ---

func (s *customerService) findCustomer(ctx context.Context, id string) (*model.Customer, error) {
	customerID, err := uuid.Parse(id)
	if err != nil {
		return nil, apierror.Validationf("invalid customer id: %s", id)
	}
	customer, err := s.repo.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFoundf("customer not found")
		}
		return nil, apierror.Storage(err, "failed to load customer")
	}
	return customer, nil
}

func newMeasurementID() string {
	return "meas-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func validatePersonalDetails(pd PersonalDetails) error {
	if pd.Name == "" || pd.Phone == "" {
		return apierror.Validationf("customer name and phone are required")
	}
	return nil
}

func toMeasurements(reqs []MeasurementRequest) []model.Measurement {
	if len(reqs) == 0 {
		return nil
	}
	out := make([]model.Measurement, 0, len(reqs))
	for _, r := range reqs {
		id := r.ID
		if id == "" {
			id = newMeasurementID()
		}
		out = append(out, model.Measurement{
			ID:               id,
			GarmentType:      r.GarmentType,
			Fields:           r.Fields,
			Notes:            r.Notes,
			LastMeasuredDate: r.LastMeasuredDate,
		})
	}
	return out
}

func toCustomerResponse(c *model.Customer) CustomerResponse {
	return CustomerResponse{
		ID:             c.ID.String(),
		CustomerNumber: c.CustomerNumber,
		PersonalDetails: PersonalDetails{
			Name:    c.Name,
			Phone:   c.Phone,
			Address: c.Address,
			Email:   c.Email,
		},
		Measurements: c.Measurements,
		Comments:     c.Comments,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}
