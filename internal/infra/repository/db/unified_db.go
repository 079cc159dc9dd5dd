package db

import (
	"context"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	// ErrNotFound 資料不存在
	ErrNotFound = errors.New("record not found")
	// ErrStockNotEnough 庫存不足
	ErrStockNotEnough = errors.New("stock not enough")
)

// Store 統一的資料庫介面
// ExecTx 內的所有操作必須透過傳入的 Querier，才會落在同一個交易
type Store interface {
	Querier
	ExecTx(ctx context.Context, fn func(q Querier) error) error
	InitMigrate() error
	Seed(ctx context.Context, seed *model.Seed) error
	Ping(ctx context.Context) error
}

type Querier interface {
	ICatalogRepository
	IStockRepository
	IOrderRepository
	IPromotionRepository
	INotificationRepository
}

// ICatalogRepository 商品、門市、使用者、狀態的唯讀查詢
type ICatalogRepository interface {
	UserExists(ctx context.Context, id int64) (bool, error)
	StoreExists(ctx context.Context, id int) (bool, error)
	StatusExists(ctx context.Context, id int) (bool, error)
	GetProductByID(ctx context.Context, id int) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int) (map[int]model.Product, error)
	GetExistingStoreIDs(ctx context.Context, ids []int) ([]int, error)
	// LockStores 鎖定門市資料列，序列化同門市的促銷重疊檢查
	LockStores(ctx context.Context, ids []int) error
}

// IStockRepository 庫存帳操作，不自行開交易
type IStockRepository interface {
	GetStockEntry(ctx context.Context, storeID, productID int) (*model.StoreProduct, error)
	GetStockEntriesForUpdate(ctx context.Context, storeID int, productIDs []int) (map[int]model.StoreProduct, error)
	AdjustQuantity(ctx context.Context, storeID, productID, delta int) (int, error)
	SetSalePrice(ctx context.Context, storeID, productID int, price decimal.Decimal) error
	CreateStockEntry(ctx context.Context, entry *model.StoreProduct) error
}

type IOrderRepository interface {
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrderByID(ctx context.Context, id int64) (*model.Order, error)
	GetOrderForUpdate(ctx context.Context, id int64) (*model.Order, error)
	GetOrderIDByDetailID(ctx context.Context, detailID int64) (int64, error)
	ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error)
	UpdateOrderDetailQuantity(ctx context.Context, detailID int64, quantity int) error
	DeleteOrderDetail(ctx context.Context, detailID int64) error
	UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal, updatedAt time.Time) error
	UpdateOrderStatus(ctx context.Context, orderID int64, statusID int, updatedAt time.Time) error
}

type IPromotionRepository interface {
	CreatePromotion(ctx context.Context, promotion *model.Promotion) error
	GetPromotionByID(ctx context.Context, id int) (*model.Promotion, error)
	GetPromotionForUpdate(ctx context.Context, id int) (*model.Promotion, error)
	ListPromotions(ctx context.Context) ([]model.Promotion, error)
	PromotionNameExists(ctx context.Context, name string, excludeID int) (bool, error)
	// ListActivePromotions 回傳涵蓋任一門市且目前生效的其他促銷
	ListActivePromotions(ctx context.Context, storeIDs []int, excludeID, activeStatusID int, now time.Time) ([]model.Promotion, error)
	UpdatePromotion(ctx context.Context, promotion *model.Promotion) error
	UpdatePromotionStatus(ctx context.Context, id, statusID int, updatedAt time.Time) error
	DeletePromotion(ctx context.Context, id int) error
}

type INotificationRepository interface {
	CreateNotification(ctx context.Context, notification *model.Notification) error
}

// UnifiedDBImpl 統一資料庫實現
type UnifiedDBImpl struct {
	db    *gorm.DB
	dbDao *DbDao
	*CatalogRepo
	*StockRepo
	*OrderRepo
	*PromotionRepo
	*NotificationRepo
}

// NewUnifiedDB 創建新的統一資料庫實例
func NewUnifiedDB(conn *gorm.DB) *UnifiedDBImpl {
	dbDao := NewDbDao(conn)
	return &UnifiedDBImpl{
		db:               conn,
		dbDao:            dbDao,
		CatalogRepo:      NewCatalogRepo(dbDao),
		StockRepo:        NewStockRepo(dbDao),
		OrderRepo:        NewOrderRepo(dbDao),
		PromotionRepo:    NewPromotionRepo(dbDao),
		NotificationRepo: NewNotificationRepo(dbDao),
	}
}

// ExecTx 開始事務，fn 回傳錯誤時整筆 rollback
func (u *UnifiedDBImpl) ExecTx(ctx context.Context, fn func(q Querier) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewUnifiedDB(tx))
	})
}

func (u *UnifiedDBImpl) InitMigrate() error {
	return u.dbDao.InitMigrate()
}

func (u *UnifiedDBImpl) Seed(ctx context.Context, seed *model.Seed) error {
	return u.dbDao.Seed(ctx, seed)
}

func (u *UnifiedDBImpl) Ping(ctx context.Context) error {
	return u.dbDao.Ping(ctx)
}

// GetDB 獲取資料庫連接
func (u *UnifiedDBImpl) GetDB() *gorm.DB {
	return u.db
}

func notFoundOr(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return errors.Wrapf(err, format, args...)
}

var (
	_ Store                   = (*UnifiedDBImpl)(nil)
	_ ICatalogRepository      = (*CatalogRepo)(nil)
	_ IStockRepository        = (*StockRepo)(nil)
	_ IOrderRepository        = (*OrderRepo)(nil)
	_ IPromotionRepository    = (*PromotionRepo)(nil)
	_ INotificationRepository = (*NotificationRepo)(nil)
)
