package model

import "gorm.io/datatypes"

// MeasurementConfig is the measurement template for one garment type, keyed
// by the garment type itself.
type MeasurementConfig struct {
	GarmentType string                           `gorm:"type:varchar(60);primaryKey" json:"garmentType"`
	Fields      datatypes.JSONSlice[ConfigField] `gorm:"type:jsonb" json:"measurements"`
	CreatedAt   int64                            `gorm:"not null" json:"createdAt"`
	UpdatedAt   int64                            `gorm:"not null" json:"updatedAt"`
}

// ConfigField is one measurement the template asks for.
type ConfigField struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}
