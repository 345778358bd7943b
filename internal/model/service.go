package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is one entry of the tailoring price list (stitching, alteration,
// embroidery, ...). DefaultPrice seeds new bill items; it is not a cap.
type Service struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name         string          `gorm:"type:varchar(120);not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	DefaultPrice decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"defaultPrice"`
	CreatedAt    int64           `gorm:"not null" json:"createdAt"`
	UpdatedAt    int64           `gorm:"not null" json:"updatedAt"`
}
