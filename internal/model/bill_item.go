package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// MaterialSource enum constants
const (
	MaterialSourceCustomer = "customer"
	MaterialSourceShop     = "shop"
)

// BillItem is one priced line entry on a bill. Items are stored in their own
// table, keyed by their own id and queried by owning bill id, so they can be
// listed independently of the header.
//
// TotalPrice is always Quantity × UnitPrice, recomputed on every write.
type BillItem struct {
	ID              uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BillID          uuid.UUID                   `gorm:"type:uuid;not null;index" json:"billId"`
	Type            string                      `gorm:"type:varchar(40)" json:"type"`
	Name            string                      `gorm:"type:varchar(120);not null" json:"name"`
	Description     string                      `gorm:"type:text" json:"description"`
	Quantity        int                         `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	TotalPrice      decimal.Decimal             `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	ConfigItemID    string                      `gorm:"type:varchar(64)" json:"configItemId"` // price-list reference, not validated
	MaterialSource  string                      `gorm:"type:varchar(20)" json:"materialSource"`
	DeliveryStatus  string                      `gorm:"type:varchar(20)" json:"deliveryStatus"`
	InternalNotes   string                      `gorm:"type:text" json:"internalNotes"`
	ReferenceImages datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"referenceImages"`
	CreatedAt       int64                       `gorm:"not null" json:"createdAt"`
	UpdatedAt       int64                       `gorm:"not null" json:"updatedAt"`
}
