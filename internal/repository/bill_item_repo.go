package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BillItemRepository owns the physical storage of a bill's line items,
// independent of the bill header.
type BillItemRepository interface {
	FindByBill(ctx context.Context, billID uuid.UUID) ([]model.BillItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.BillItem, error)
	Save(ctx context.Context, item *model.BillItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForBill(ctx context.Context, billID uuid.UUID) error
	// AppendReferenceImage appends url to the item's reference image list in
	// a single statement, creating the list if absent. Safe under concurrent
	// attaches to the same item.
	AppendReferenceImage(ctx context.Context, id uuid.UUID, url string, updatedAt int64) error
	// SetReferenceImages replaces the whole list (fallback path and detach).
	SetReferenceImages(ctx context.Context, id uuid.UUID, urls []string, updatedAt int64) error
}

type billItemRepository struct {
	db *gorm.DB
}

func NewBillItemRepository(db *gorm.DB) BillItemRepository {
	return &billItemRepository{db: db}
}

func (r *billItemRepository) FindByBill(ctx context.Context, billID uuid.UUID) ([]model.BillItem, error) {
	var items []model.BillItem
	if err := GetDB(ctx, r.db).Where("bill_id = ?", billID).Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *billItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.BillItem, error) {
	var item model.BillItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *billItemRepository) Save(ctx context.Context, item *model.BillItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *billItemRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := GetDB(ctx, r.db).Delete(&model.BillItem{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *billItemRepository) DeleteAllForBill(ctx context.Context, billID uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.BillItem{}, "bill_id = ?", billID).Error
}

func (r *billItemRepository) AppendReferenceImage(ctx context.Context, id uuid.UUID, url string, updatedAt int64) error {
	res := GetDB(ctx, r.db).Exec(
		`UPDATE bill_items
		 SET reference_images = COALESCE(reference_images, '[]'::jsonb) || to_jsonb(?::text),
		     updated_at = ?
		 WHERE id = ?`,
		url, updatedAt, id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *billItemRepository) SetReferenceImages(ctx context.Context, id uuid.UUID, urls []string, updatedAt int64) error {
	return GetDB(ctx, r.db).Model(&model.BillItem{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"reference_images": datatypes.NewJSONSlice(urls),
			"updated_at":       updatedAt,
		}).Error
}
