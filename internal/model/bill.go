package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Payment status enum constants. Status is derived from the amounts and is
// never settable by callers.
const (
	BillStatusUnpaid        = "unpaid"
	BillStatusPartiallyPaid = "partially_paid"
	BillStatusFullyPaid     = "fully_paid"
)

// DeliveryStatusPending is the implicit delivery status of bills persisted
// before delivery tracking existed; listing treats a missing value as pending.
const DeliveryStatusPending = "pending"

// Bill is the aggregate root for one customer order. Line items live in the
// bill_items table (see BillItem); payments and received items are embedded
// JSONB collections with no identity outside the bill.
//
// PaidAmount, OutstandingAmount and Status are derived: always recomputed
// from TotalAmount and Payments, never trusted as stored.
type Bill struct {
	ID             uuid.UUID                         `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID     string                            `gorm:"type:varchar(64);not null;index" json:"customerId"`
	BillNumber     string                            `gorm:"type:varchar(30);not null;index" json:"billNumber"`
	BillingDate    string                            `gorm:"type:varchar(30);not null" json:"billingDate"`
	DeliveryDate   string                            `gorm:"type:varchar(30);not null" json:"deliveryDate"`
	DeliveryStatus string                            `gorm:"type:varchar(20);index" json:"deliveryStatus"`
	TotalAmount    decimal.Decimal                   `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	PaidAmount     decimal.Decimal                   `gorm:"type:decimal(12,2);not null;default:0" json:"paidAmount"`
	Outstanding    decimal.Decimal                   `gorm:"column:outstanding_amount;type:decimal(12,2);not null;default:0" json:"outstandingAmount"`
	Status         string                            `gorm:"type:varchar(20);not null;default:'unpaid';index" json:"status"`
	Payments       datatypes.JSONSlice[Payment]      `gorm:"type:jsonb" json:"payments"`
	ReceivedItems  datatypes.JSONSlice[ReceivedItem] `gorm:"type:jsonb" json:"receivedItems"`
	// LegacyItems predates the bill_items table. Read fallback only, never
	// written for new bills.
	LegacyItems datatypes.JSONSlice[EmbeddedItem] `gorm:"column:items;type:jsonb" json:"-"`
	// Discount is informational; it does not enter the total/outstanding math.
	Discount  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Notes     string          `gorm:"type:text" json:"notes"`
	Version   int64           `gorm:"not null;default:0" json:"-"` // compare-and-swap counter
	CreatedAt int64           `gorm:"not null" json:"createdAt"`   // epoch seconds
	UpdatedAt int64           `gorm:"not null" json:"updatedAt"`
}

// Payment is one entry of a bill's embedded payment ledger.
type Payment struct {
	ID            string          `json:"id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   string          `json:"paymentDate"`
	PaymentMethod string          `json:"paymentMethod"`
	Notes         string          `json:"notes"`
	CreatedAt     int64           `json:"createdAt"`
}

// ReceivedItem tracks material received from the customer (e.g. own fabric).
// Independent of payments and totals.
type ReceivedItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Quantity     int    `json:"quantity"`
	ReceivedDate string `json:"receivedDate"`
	Status       string `json:"status"`
}

// EmbeddedItem is the pre-ledger line item shape kept for old bills.
type EmbeddedItem struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	Name           string          `json:"name"`
	Description    string          `json:"description"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unitPrice"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	MaterialSource string          `json:"materialSource"`
	DeliveryStatus string          `json:"deliveryStatus"`
}
