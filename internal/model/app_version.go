package model

import (
	"time"

	"gorm.io/datatypes"
)

// AppVersion is one released build of the companion app. The key is
// platform#component#version so re-registering a build overwrites it.
type AppVersion struct {
	ID           string                      `gorm:"type:varchar(120);primaryKey" json:"id"`
	Version      string                      `gorm:"type:varchar(30);not null" json:"version"`
	Platform     string                      `gorm:"type:varchar(20);not null;index" json:"platform"`
	Component    string                      `gorm:"type:varchar(40);not null" json:"component"`
	Description  string                      `gorm:"type:text" json:"description"`
	Size         int64                       `gorm:"not null;default:0" json:"size"`
	Critical     bool                        `gorm:"not null;default:false" json:"critical"`
	DownloadURL  string                      `gorm:"type:text" json:"downloadUrl"`
	Checksum     string                      `gorm:"type:varchar(128)" json:"checksum"`
	Dependencies datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"dependencies"`
	ReleaseDate  time.Time                   `json:"releaseDate"`
	CreatedAt    time.Time                   `json:"createdAt"`
}
