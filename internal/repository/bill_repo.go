package repository

import (
	"context"
	"errors"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrVersionConflict is returned when a compare-and-swap header write found a
// different version than expected (a concurrent writer got there first).
var ErrVersionConflict = errors.New("bill version conflict")

// BillQuery holds the storage-level filters for listing bills. Status is not
// here: it is derived from the amounts and filtered by the service after
// recomputation.
type BillQuery struct {
	CustomerID       string
	DeliveryStatus   string
	BillingDateFrom  string
	BillingDateTo    string
	DeliveryDateFrom string
	DeliveryDateTo   string
	SearchText       string // substring over bill_number and notes
}

type BillRepository interface {
	Create(ctx context.Context, bill *model.Bill) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	List(ctx context.Context, q BillQuery) ([]model.Bill, error)
	Save(ctx context.Context, bill *model.Bill) error
	// SaveWithVersion persists the header only if its stored version still
	// equals expected, bumping the version on success. Returns
	// ErrVersionConflict when the row moved underneath the caller.
	SaveWithVersion(ctx context.Context, bill *model.Bill, expected int64) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type billRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) BillRepository {
	return &billRepository{db: db}
}

func (r *billRepository) Create(ctx context.Context, bill *model.Bill) error {
	return GetDB(ctx, r.db).Create(bill).Error
}

func (r *billRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	if err := GetDB(ctx, r.db).First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) List(ctx context.Context, q BillQuery) ([]model.Bill, error) {
	db := GetDB(ctx, r.db).Model(&model.Bill{})

	if q.CustomerID != "" {
		db = db.Where("customer_id = ?", q.CustomerID)
	}
	if q.DeliveryStatus != "" {
		if q.DeliveryStatus == model.DeliveryStatusPending {
			// Bills persisted before delivery tracking have no value stored;
			// they count as pending.
			db = db.Where("delivery_status = ? OR delivery_status IS NULL OR delivery_status = ''", model.DeliveryStatusPending)
		} else {
			db = db.Where("delivery_status = ?", q.DeliveryStatus)
		}
	}
	if q.BillingDateFrom != "" {
		db = db.Where("billing_date >= ?", q.BillingDateFrom)
	}
	if q.BillingDateTo != "" {
		db = db.Where("billing_date <= ?", q.BillingDateTo)
	}
	if q.DeliveryDateFrom != "" {
		db = db.Where("delivery_date >= ?", q.DeliveryDateFrom)
	}
	if q.DeliveryDateTo != "" {
		db = db.Where("delivery_date <= ?", q.DeliveryDateTo)
	}
	if q.SearchText != "" {
		pattern := "%" + q.SearchText + "%"
		db = db.Where("bill_number ILIKE ? OR notes ILIKE ?", pattern, pattern)
	}

	var bills []model.Bill
	if err := db.Order("created_at desc").Find(&bills).Error; err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *billRepository) Save(ctx context.Context, bill *model.Bill) error {
	return GetDB(ctx, r.db).Save(bill).Error
}

func (r *billRepository) SaveWithVersion(ctx context.Context, bill *model.Bill, expected int64) error {
	bill.Version = expected + 1
	res := GetDB(ctx, r.db).Model(&model.Bill{}).
		Where("id = ? AND version = ?", bill.ID, expected).
		Updates(map[string]interface{}{
			"payments":           bill.Payments,
			"paid_amount":        bill.PaidAmount,
			"outstanding_amount": bill.Outstanding,
			"status":             bill.Status,
			"version":            bill.Version,
			"updated_at":         bill.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (r *billRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Delete(&model.Bill{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
