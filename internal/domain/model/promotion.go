package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Promotion struct {
	ID        int                `gorm:"primaryKey" json:"id"`
	Code      string             `gorm:"not null;type:varchar(64);uniqueIndex" json:"code"`
	Name      string             `gorm:"not null;type:varchar(255);uniqueIndex" json:"name"`
	StartDate time.Time          `gorm:"not null" json:"start_date"`
	EndDate   time.Time          `gorm:"not null" json:"end_date"`
	StatusID  int                `gorm:"not null;index" json:"status_id"`
	Products  []PromotionProduct `gorm:"foreignKey:PromotionID;constraint:OnDelete:CASCADE" json:"products"`
	Stores    []PromotionStore   `gorm:"foreignKey:PromotionID;constraint:OnDelete:CASCADE" json:"stores"`
	BaseModel
}

func (Promotion) TableName() string { return "promotions" }

// InWindow now 是否落在 [StartDate, EndDate]
func (p *Promotion) InWindow(now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}

func (p *Promotion) StoreIDs() []int {
	ids := make([]int, 0, len(p.Stores))
	for _, s := range p.Stores {
		ids = append(ids, s.StoreID)
	}
	return ids
}

// Discount 回傳促銷中某商品的折扣百分比
func (p *Promotion) Discount(productID int) (decimal.Decimal, bool) {
	for _, pp := range p.Products {
		if pp.ProductID == productID {
			return pp.DiscountPercent, true
		}
	}
	return decimal.Zero, false
}

func (p *Promotion) Clone() *Promotion {
	c := *p
	c.Products = append([]PromotionProduct(nil), p.Products...)
	c.Stores = append([]PromotionStore(nil), p.Stores...)
	if p.UpdatedAt != nil {
		v := *p.UpdatedAt
		c.UpdatedAt = &v
	}
	return &c
}

type PromotionProduct struct {
	PromotionID     int             `gorm:"primaryKey;autoIncrement:false" json:"promotion_id"`
	ProductID       int             `gorm:"primaryKey;autoIncrement:false" json:"product_id"`
	DiscountPercent decimal.Decimal `gorm:"not null;type:decimal(5,2)" json:"discount_percent"`
}

func (PromotionProduct) TableName() string { return "promotion_products" }

type PromotionStore struct {
	PromotionID int `gorm:"primaryKey;autoIncrement:false" json:"promotion_id"`
	StoreID     int `gorm:"primaryKey;autoIncrement:false;index" json:"store_id"`
}

func (PromotionStore) TableName() string { return "promotion_stores" }

// DiscountedPrice 一律由原價計算，避免折上折
func DiscountedPrice(originalPrice, discountPercent decimal.Decimal) decimal.Decimal {
	hundred := decimal.NewFromInt(100)
	return originalPrice.Mul(hundred.Sub(discountPercent)).Div(hundred).RoundBank(2)
}
