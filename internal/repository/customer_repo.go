package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomerQuery drives customer listing. Field is a single column to search
// ("name", "phone", "address", "email", "customerNumber") or "universal" for
// all of them; Text is matched as a case-insensitive substring.
type CustomerQuery struct {
	Text  string
	Field string
	Limit int
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FindByPhone(ctx context.Context, phone string) ([]model.Customer, error)
	List(ctx context.Context, q CustomerQuery) ([]model.Customer, error)
	Save(ctx context.Context, customer *model.Customer) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByPhone(ctx context.Context, phone string) ([]model.Customer, error) {
	var customers []model.Customer
	if err := GetDB(ctx, r.db).Where("phone = ?", phone).Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

var searchColumns = map[string]string{
	"name":           "name",
	"phone":          "phone",
	"address":        "address",
	"email":          "email",
	"customerNumber": "customer_number",
}

func (r *customerRepository) List(ctx context.Context, q CustomerQuery) ([]model.Customer, error) {
	db := GetDB(ctx, r.db).Model(&model.Customer{})

	if q.Text != "" {
		pattern := "%" + q.Text + "%"
		if col, ok := searchColumns[q.Field]; ok {
			db = db.Where(col+" ILIKE ?", pattern)
		} else {
			db = db.Where(
				"name ILIKE ? OR phone ILIKE ? OR address ILIKE ? OR email ILIKE ? OR customer_number ILIKE ?",
				pattern, pattern, pattern, pattern, pattern,
			)
		}
	}
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var customers []model.Customer
	if err := db.Order("created_at desc").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *customerRepository) Save(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Delete(&model.Customer{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
