package model

import (
	"github.com/shopspring/decimal"
)

// Status 狀態目錄，id 由設定檔決定其業務意義
type Status struct {
	ID   int    `gorm:"primaryKey;autoIncrement:false" json:"id" yaml:"id"`
	Code string `gorm:"not null;type:varchar(50);uniqueIndex" json:"code" yaml:"code"`
	Name string `gorm:"not null;type:varchar(100)" json:"name" yaml:"name"`
}

func (Status) TableName() string { return "statuses" }

type Store struct {
	ID       int    `gorm:"primaryKey" json:"id" yaml:"id"`
	Name     string `gorm:"not null;type:varchar(255)" json:"name" yaml:"name"`
	StatusID int    `gorm:"not null" json:"status_id" yaml:"status_id"`
}

func (Store) TableName() string { return "stores" }

type User struct {
	ID       int64  `gorm:"primaryKey" json:"id" yaml:"id"`
	FullName string `gorm:"not null;type:varchar(255)" json:"full_name" yaml:"full_name"`
	Email    string `gorm:"type:varchar(255)" json:"email" yaml:"email"`
}

func (User) TableName() string { return "users" }

// Product 商品主檔，OriginalPrice 不會被促銷修改
type Product struct {
	ID            int             `gorm:"primaryKey" json:"id" yaml:"id"`
	SKU           string          `gorm:"not null;type:varchar(100);uniqueIndex" json:"sku" yaml:"sku"`
	Name          string          `gorm:"not null;type:varchar(255)" json:"name" yaml:"name"`
	OriginalPrice decimal.Decimal `gorm:"not null;type:decimal(18,2)" json:"original_price" yaml:"original_price"`
	CostPrice     decimal.Decimal `gorm:"not null;type:decimal(18,2)" json:"cost_price" yaml:"cost_price"`
	StatusID      int             `gorm:"not null" json:"status_id" yaml:"status_id"`
}

func (Product) TableName() string { return "products" }
