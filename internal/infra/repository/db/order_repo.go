package db

import (
	"context"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepo struct {
	db *DbDao
}

func NewOrderRepo(db *DbDao) *OrderRepo {
	return &OrderRepo{db: db}
}

func orderedDetails(tx *gorm.DB) *gorm.DB {
	return tx.Order("id")
}

// CreateOrder 連同明細一起寫入
func (r *OrderRepo) CreateOrder(ctx context.Context, order *model.Order) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(order).Error, "create order")
}

func (r *OrderRepo) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("OrderDetails", orderedDetails).
		First(&order, id).Error
	if err != nil {
		return nil, notFoundOr(err, "get order %d", id)
	}
	return &order, nil
}

// GetOrderForUpdate 鎖定訂單資料列，同一張訂單的異動會排隊
func (r *OrderRepo) GetOrderForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		return nil, notFoundOr(err, "lock order %d", id)
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("id").Find(&order.OrderDetails).Error; err != nil {
		return nil, errors.Wrapf(err, "get details of order %d", id)
	}
	return &order, nil
}

func (r *OrderRepo) GetOrderIDByDetailID(ctx context.Context, detailID int64) (int64, error) {
	var detail model.OrderDetail
	if err := r.db.WithContext(ctx).Select("id", "order_id").First(&detail, detailID).Error; err != nil {
		return 0, notFoundOr(err, "get order detail %d", detailID)
	}
	return detail.OrderID, nil
}

func (r *OrderRepo) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	var orders []model.Order
	err := r.db.WithContext(ctx).
		Preload("OrderDetails", orderedDetails).
		Where("customer_id = ?", customerID).
		Order("id").
		Find(&orders).Error
	return orders, errors.Wrapf(err, "list orders of customer %d", customerID)
}

func (r *OrderRepo) UpdateOrderDetailQuantity(ctx context.Context, detailID int64, quantity int) error {
	err := r.db.WithContext(ctx).Model(&model.OrderDetail{}).
		Where("id = ?", detailID).
		UpdateColumn("quantity", quantity).Error
	return errors.Wrapf(err, "update order detail %d", detailID)
}

func (r *OrderRepo) DeleteOrderDetail(ctx context.Context, detailID int64) error {
	return errors.Wrapf(r.db.WithContext(ctx).Delete(&model.OrderDetail{}, detailID).Error, "delete order detail %d", detailID)
}

func (r *OrderRepo) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal, updatedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		UpdateColumns(map[string]any{"total_amount": total, "updated_at": updatedAt}).Error
	return errors.Wrapf(err, "update total of order %d", orderID)
}

func (r *OrderRepo) UpdateOrderStatus(ctx context.Context, orderID int64, statusID int, updatedAt time.Time) error {
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		UpdateColumns(map[string]any{"status_id": statusID, "updated_at": updatedAt}).Error
	return errors.Wrapf(err, "update status of order %d", orderID)
}
