package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart 購物車只存在於 redis，不落地到 DB
type Cart struct {
	CustomerID int64           `json:"customer_id"`
	Items      []CartItem      `json:"items"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CartItem struct {
	ID        int64           `json:"id"`
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// ItemByProduct 依商品找購物車明細
func (c *Cart) ItemByProduct(productID int) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i], true
		}
	}
	return nil, false
}

func (c *Cart) ItemByID(id int64) (*CartItem, bool) {
	for i := range c.Items {
		if c.Items[i].ID == id {
			return &c.Items[i], true
		}
	}
	return nil, false
}

// Recalculate 計算每行小計與總額
func (c *Cart) Recalculate() {
	total := decimal.Zero
	for i := range c.Items {
		c.Items[i].LineTotal = c.Items[i].UnitPrice.Mul(decimal.NewFromInt(int64(c.Items[i].Quantity)))
		total = total.Add(c.Items[i].LineTotal)
	}
	c.Total = total
}
