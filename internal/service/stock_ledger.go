package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/shopspring/decimal"
)

// StockLedger 庫存帳的共用操作
// 不開交易，所有異動落在呼叫端傳入的 Querier 上
type StockLedger struct{}

func NewStockLedger() *StockLedger {
	return &StockLedger{}
}

func (l *StockLedger) Entry(ctx context.Context, q db.IStockRepository, storeID, productID int) (*model.StoreProduct, error) {
	entry, err := q.GetStockEntry(ctx, storeID, productID)
	if err != nil {
		return nil, l.translate(err, storeID, productID, 0)
	}
	return entry, nil
}

// LockEntries 鎖定同一門市多個商品的庫存列，缺的商品不會出現在結果中
func (l *StockLedger) LockEntries(ctx context.Context, q db.IStockRepository, storeID int, productIDs []int) (map[int]model.StoreProduct, error) {
	return q.GetStockEntriesForUpdate(ctx, storeID, productIDs)
}

// Adjust 套用有號增量，結果小於 0 時回傳 ErrInsufficientStock
func (l *StockLedger) Adjust(ctx context.Context, q db.IStockRepository, storeID, productID, delta int) (int, error) {
	qty, err := q.AdjustQuantity(ctx, storeID, productID, delta)
	if err != nil {
		return 0, l.translate(err, storeID, productID, delta)
	}
	return qty, nil
}

func (l *StockLedger) SetSalePrice(ctx context.Context, q db.IStockRepository, storeID, productID int, price decimal.Decimal) error {
	if price.IsNegative() {
		return apperr.New(apperr.ErrValidation, "sale price %s must not be negative", price)
	}
	if err := q.SetSalePrice(ctx, storeID, productID, price); err != nil {
		return l.translate(err, storeID, productID, 0)
	}
	return nil
}

func (l *StockLedger) translate(err error, storeID, productID, delta int) error {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return apperr.New(apperr.ErrNotAvailableInStore, "product %d has no stock entry in store %d", productID, storeID)
	case errors.Is(err, db.ErrStockNotEnough):
		return apperr.New(apperr.ErrInsufficientStock, "product %d in store %d cannot cover %d unit(s)", productID, storeID, -delta)
	default:
		return err
	}
}
