package domain

import (
	"time"

	"gorm.io/datatypes"
)

// Store is the merchant configuration document. The accrual path only
// consults ScanSecret and Goal; everything else is display data owned by
// the merchant surfaces.
type Store struct {
	ID           string            `gorm:"primaryKey" json:"storeId"`
	Name         string            `gorm:"not null" json:"name"`
	Goal         int               `gorm:"not null;default:0" json:"goal,omitempty"`
	ScanSecret   string            `gorm:"not null;default:''" json:"-"`
	CardTemplate datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"cardTemplate"`
	CreatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt    time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// DefaultCardTemplate is returned for stores that have not configured one.
func DefaultCardTemplate() datatypes.JSONMap {
	return datatypes.JSONMap{
		"title":      "Loyalty Card",
		"bgColor":    "#111827",
		"textColor":  "#ffffff",
		"font":       "sans",
		"logoUrl":    "",
		"bgImageUrl": "",
	}
}
