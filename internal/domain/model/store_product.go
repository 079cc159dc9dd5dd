package model

import (
	"github.com/shopspring/decimal"
)

// StoreProduct 庫存帳：每個 (store, product) 的可用數量與目前售價
type StoreProduct struct {
	StoreID   int             `gorm:"primaryKey;autoIncrement:false" json:"store_id" yaml:"store_id"`
	ProductID int             `gorm:"primaryKey;autoIncrement:false" json:"product_id" yaml:"product_id"`
	Quantity  int             `gorm:"not null;check:quantity >= 0" json:"quantity" yaml:"quantity"`
	SalePrice decimal.Decimal `gorm:"not null;type:decimal(18,2)" json:"sale_price" yaml:"sale_price"`
}

func (StoreProduct) TableName() string { return "store_products" }
