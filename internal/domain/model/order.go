package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeOnline  OrderType = "Online"  // 線上訂單，固定由倉庫出貨
	OrderTypeOffline OrderType = "Offline" // 門市訂單
)

func (t OrderType) Valid() bool {
	return t == OrderTypeOnline || t == OrderTypeOffline
}

type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "Cash"
	PaymentMethodTransfer PaymentMethod = "Transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCash || m == PaymentMethodTransfer
}

type Order struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	OrderNumber   string          `gorm:"not null;type:varchar(64);uniqueIndex" json:"order_number"`
	CustomerID    int64           `gorm:"not null;index" json:"customer_id"`
	CreatedBy     *int64          `gorm:"null" json:"created_by,omitempty"`
	StoreID       *int            `gorm:"null" json:"store_id,omitempty"`
	OrderType     OrderType       `gorm:"not null;type:varchar(20)" json:"order_type"`
	PaymentMethod PaymentMethod   `gorm:"not null;type:varchar(20)" json:"payment_method"`
	StatusID      int             `gorm:"not null" json:"status_id"`
	TotalAmount   decimal.Decimal `gorm:"not null;type:decimal(18,2)" json:"total_amount"`
	OrderDetails  []OrderDetail   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_details"` // 一對多，級聯刪除
	BaseModel
}

func (Order) TableName() string { return "orders" }

// RecalculateTotal 依目前明細重算訂單總額
func (o *Order) RecalculateTotal() decimal.Decimal {
	total := decimal.Zero
	for _, d := range o.OrderDetails {
		total = total.Add(d.LineTotal())
	}
	o.TotalAmount = total
	return total
}

// DetailByID 回傳明細在 OrderDetails 中的位置
func (o *Order) DetailByID(id int64) (int, bool) {
	for i := range o.OrderDetails {
		if o.OrderDetails[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

type OrderDetail struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	OrderID   int64           `gorm:"not null;index" json:"order_id"`
	ProductID int             `gorm:"not null" json:"product_id"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"not null;type:decimal(18,2)" json:"unit_price"`
}

func (OrderDetail) TableName() string { return "order_details" }

func (d OrderDetail) LineTotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}

// Clone 深拷貝，避免呼叫端共用明細 slice
func (o *Order) Clone() *Order {
	c := *o
	c.OrderDetails = append([]OrderDetail(nil), o.OrderDetails...)
	if o.CreatedBy != nil {
		v := *o.CreatedBy
		c.CreatedBy = &v
	}
	if o.StoreID != nil {
		v := *o.StoreID
		c.StoreID = &v
	}
	if o.UpdatedAt != nil {
		v := *o.UpdatedAt
		c.UpdatedAt = &v
	}
	return &c
}

// OrderEvent 訂單異動事件，提供給報表端消費
type OrderEvent struct {
	Type        string          `json:"type"`
	OrderID     int64           `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  int64           `json:"customer_id"`
	StoreID     int             `json:"store_id"`
	StatusID    int             `json:"status_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

const (
	OrderEventCreated       = "order.created"
	OrderEventStatusChanged = "order.status_changed"
)
