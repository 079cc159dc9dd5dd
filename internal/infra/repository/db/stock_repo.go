package db

import (
	"context"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StockRepo 庫存帳 (store_products)
// 數量的增減一律用單一 UPDATE 加上 quantity + delta >= 0 條件，不做先讀後寫
type StockRepo struct {
	db *DbDao
}

func NewStockRepo(db *DbDao) *StockRepo {
	return &StockRepo{db: db}
}

func (r *StockRepo) GetStockEntry(ctx context.Context, storeID, productID int) (*model.StoreProduct, error) {
	var entry model.StoreProduct
	err := r.db.WithContext(ctx).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		First(&entry).Error
	if err != nil {
		return nil, notFoundOr(err, "get stock entry store=%d product=%d", storeID, productID)
	}
	return &entry, nil
}

func (r *StockRepo) GetStockEntriesForUpdate(ctx context.Context, storeID int, productIDs []int) (map[int]model.StoreProduct, error) {
	result := make(map[int]model.StoreProduct, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	// 先鎖定記錄
	var entries []model.StoreProduct
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("store_id = ? AND product_id IN ?", storeID, productIDs).
		Order("product_id").
		Find(&entries).Error
	if err != nil {
		return nil, errors.Wrapf(err, "lock stock entries store=%d", storeID)
	}
	for _, e := range entries {
		result[e.ProductID] = e
	}
	return result, nil
}

// AdjustQuantity 套用有號增量並回傳新數量
// 結果會小於 0 時回傳 ErrStockNotEnough，資料列不存在回傳 ErrNotFound
func (r *StockRepo) AdjustQuantity(ctx context.Context, storeID, productID, delta int) (int, error) {
	if delta == 0 {
		entry, err := r.GetStockEntry(ctx, storeID, productID)
		if err != nil {
			return 0, err
		}
		return entry.Quantity, nil
	}

	res := r.db.WithContext(ctx).Model(&model.StoreProduct{}).
		Where("store_id = ? AND product_id = ? AND quantity + ? >= 0", storeID, productID, delta).
		UpdateColumn("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return 0, errors.Wrapf(res.Error, "adjust stock store=%d product=%d", storeID, productID)
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetStockEntry(ctx, storeID, productID); err != nil {
			return 0, err
		}
		return 0, ErrStockNotEnough
	}

	entry, err := r.GetStockEntry(ctx, storeID, productID)
	if err != nil {
		return 0, err
	}
	return entry.Quantity, nil
}

// SetSalePrice 資料列不存在回傳 ErrNotFound
// RowsAffected 以符合條件的列計算，mysql 需 clientFoundRows
func (r *StockRepo) SetSalePrice(ctx context.Context, storeID, productID int, price decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&model.StoreProduct{}).
		Where("store_id = ? AND product_id = ?", storeID, productID).
		UpdateColumn("sale_price", price)
	if res.Error != nil {
		return errors.Wrapf(res.Error, "set sale price store=%d product=%d", storeID, productID)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *StockRepo) CreateStockEntry(ctx context.Context, entry *model.StoreProduct) error {
	return errors.Wrap(r.db.WithContext(ctx).Create(entry).Error, "create stock entry")
}
