package models

import (
	"time"
)

// Base carries the shared timestamp columns.
type Base struct {
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
