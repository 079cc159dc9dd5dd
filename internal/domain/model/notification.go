package model

import "time"

const NotificationTypePromotion = "Promotion"

type Notification struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Code      string    `gorm:"not null;type:varchar(64);uniqueIndex" json:"code"`
	Title     string    `gorm:"not null;type:varchar(255)" json:"title"`
	Message   string    `gorm:"not null;type:text" json:"message"`
	Type      string    `gorm:"not null;type:varchar(50)" json:"type"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }
