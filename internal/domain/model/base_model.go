package model

import (
	"time"
)

// BaseModel 共用時間欄位
type BaseModel struct {
	CreatedAt time.Time  `gorm:"not null" json:"created_at" yaml:"-"`
	UpdatedAt *time.Time `gorm:"null" json:"updated_at,omitempty" yaml:"-"`
}
