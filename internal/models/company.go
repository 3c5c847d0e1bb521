package models

import (
	"time"
)

// Company is the company running this deployment. A single active record is
// expected; it is upserted by Code.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Code       string `gorm:"size:50;uniqueIndex;not null" json:"code"`
	SectorCode string `gorm:"size:50" json:"sector_code"`
	Sector     string `gorm:"size:255" json:"sector"`
	Name       string `gorm:"size:255;not null" json:"name"`

	// Optional details
	Address *string `gorm:"size:500" json:"address,omitempty"`
	Owner   *string `gorm:"size:255" json:"owner,omitempty"`
	User    *string `gorm:"size:255" json:"user,omitempty"`
}

// Supplier issues the invoices recorded by this application.
type Supplier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name    string  `gorm:"size:255;not null" json:"name"`
	Code    string  `gorm:"size:50;uniqueIndex;not null" json:"code"`
	Address *string `gorm:"size:500" json:"address,omitempty"`
}
