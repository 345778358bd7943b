package model

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Customer holds a shop customer plus their saved garment measurements.
// Personal details are flattened into columns so search can run on them
// directly; the API still groups them under personalDetails.
type Customer struct {
	ID             uuid.UUID                        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerNumber string                           `gorm:"type:varchar(20);not null;index" json:"customerNumber"`
	Name           string                           `gorm:"type:varchar(120);not null" json:"name"`
	Phone          string                           `gorm:"type:varchar(30);not null;index" json:"phone"`
	Address        string                           `gorm:"type:text" json:"address"`
	Email          string                           `gorm:"type:varchar(120)" json:"email"`
	Comments       string                           `gorm:"type:text" json:"comments"`
	Measurements   datatypes.JSONSlice[Measurement] `gorm:"type:jsonb" json:"measurements"`
	CreatedAt      int64                            `gorm:"not null" json:"createdAt"`
	UpdatedAt      int64                            `gorm:"not null" json:"updatedAt"`
}

// Measurement is one saved measurement set for a garment type.
type Measurement struct {
	ID               string             `json:"id"`
	GarmentType      string             `json:"garmentType"`
	Fields           []MeasurementField `json:"fields"`
	Notes            string             `json:"notes"`
	LastMeasuredDate string             `json:"lastMeasuredDate"`
}

type MeasurementField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
}
