package memory

import (
	"context"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/shopspring/decimal"
)

// Store 記憶體版 db.Store，給本機開發與單元測試使用
// 交易以全域互斥鎖序列化，在快照上執行，成功才替換
type Store struct {
	mu   sync.Mutex
	data *state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

func (s *Store) ExecTx(ctx context.Context, fn func(q db.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	snapshot := s.data.clone()
	if err := fn(&querier{st: snapshot}); err != nil {
		return err
	}
	s.data = snapshot
	return nil
}

func (s *Store) InitMigrate() error {
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Seed(ctx context.Context, seed *model.Seed) error {
	if seed == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.data
	for _, v := range seed.Statuses {
		if _, ok := st.statuses[v.ID]; !ok {
			st.statuses[v.ID] = v
		}
	}
	for _, v := range seed.Stores {
		if _, ok := st.stores[v.ID]; !ok {
			st.stores[v.ID] = v
		}
	}
	for _, v := range seed.Users {
		if _, ok := st.users[v.ID]; !ok {
			st.users[v.ID] = v
		}
	}
	for _, v := range seed.Products {
		if _, ok := st.products[v.ID]; !ok {
			st.products[v.ID] = v
		}
	}
	for _, v := range seed.StockEntries {
		key := stockKey{v.StoreID, v.ProductID}
		if _, ok := st.stock[key]; !ok {
			st.stock[key] = v
		}
	}
	return nil
}

func read[T any](s *Store, fn func(q *querier) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&querier{st: s.data})
}

func write(s *Store, fn func(q *querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&querier{st: s.data})
}

func (s *Store) UserExists(ctx context.Context, id int64) (bool, error) {
	return read(s, func(q *querier) (bool, error) { return q.UserExists(ctx, id) })
}

func (s *Store) StoreExists(ctx context.Context, id int) (bool, error) {
	return read(s, func(q *querier) (bool, error) { return q.StoreExists(ctx, id) })
}

func (s *Store) StatusExists(ctx context.Context, id int) (bool, error) {
	return read(s, func(q *querier) (bool, error) { return q.StatusExists(ctx, id) })
}

func (s *Store) GetProductByID(ctx context.Context, id int) (*model.Product, error) {
	return read(s, func(q *querier) (*model.Product, error) { return q.GetProductByID(ctx, id) })
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []int) (map[int]model.Product, error) {
	return read(s, func(q *querier) (map[int]model.Product, error) { return q.GetProductsByIDs(ctx, ids) })
}

func (s *Store) GetExistingStoreIDs(ctx context.Context, ids []int) ([]int, error) {
	return read(s, func(q *querier) ([]int, error) { return q.GetExistingStoreIDs(ctx, ids) })
}

func (s *Store) LockStores(ctx context.Context, ids []int) error {
	return nil
}

func (s *Store) GetStockEntry(ctx context.Context, storeID, productID int) (*model.StoreProduct, error) {
	return read(s, func(q *querier) (*model.StoreProduct, error) { return q.GetStockEntry(ctx, storeID, productID) })
}

func (s *Store) GetStockEntriesForUpdate(ctx context.Context, storeID int, productIDs []int) (map[int]model.StoreProduct, error) {
	return read(s, func(q *querier) (map[int]model.StoreProduct, error) {
		return q.GetStockEntriesForUpdate(ctx, storeID, productIDs)
	})
}

func (s *Store) AdjustQuantity(ctx context.Context, storeID, productID, delta int) (int, error) {
	return read(s, func(q *querier) (int, error) { return q.AdjustQuantity(ctx, storeID, productID, delta) })
}

func (s *Store) SetSalePrice(ctx context.Context, storeID, productID int, price decimal.Decimal) error {
	return write(s, func(q *querier) error { return q.SetSalePrice(ctx, storeID, productID, price) })
}

func (s *Store) CreateStockEntry(ctx context.Context, entry *model.StoreProduct) error {
	return write(s, func(q *querier) error { return q.CreateStockEntry(ctx, entry) })
}

func (s *Store) CreateOrder(ctx context.Context, order *model.Order) error {
	return write(s, func(q *querier) error { return q.CreateOrder(ctx, order) })
}

func (s *Store) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	return read(s, func(q *querier) (*model.Order, error) { return q.GetOrderByID(ctx, id) })
}

func (s *Store) GetOrderForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	return read(s, func(q *querier) (*model.Order, error) { return q.GetOrderForUpdate(ctx, id) })
}

func (s *Store) GetOrderIDByDetailID(ctx context.Context, detailID int64) (int64, error) {
	return read(s, func(q *querier) (int64, error) { return q.GetOrderIDByDetailID(ctx, detailID) })
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	return read(s, func(q *querier) ([]model.Order, error) { return q.ListOrdersByCustomer(ctx, customerID) })
}

func (s *Store) UpdateOrderDetailQuantity(ctx context.Context, detailID int64, quantity int) error {
	return write(s, func(q *querier) error { return q.UpdateOrderDetailQuantity(ctx, detailID, quantity) })
}

func (s *Store) DeleteOrderDetail(ctx context.Context, detailID int64) error {
	return write(s, func(q *querier) error { return q.DeleteOrderDetail(ctx, detailID) })
}

func (s *Store) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal, updatedAt time.Time) error {
	return write(s, func(q *querier) error { return q.UpdateOrderTotal(ctx, orderID, total, updatedAt) })
}

func (s *Store) UpdateOrderStatus(ctx context.Context, orderID int64, statusID int, updatedAt time.Time) error {
	return write(s, func(q *querier) error { return q.UpdateOrderStatus(ctx, orderID, statusID, updatedAt) })
}

func (s *Store) CreatePromotion(ctx context.Context, promotion *model.Promotion) error {
	return write(s, func(q *querier) error { return q.CreatePromotion(ctx, promotion) })
}

func (s *Store) GetPromotionByID(ctx context.Context, id int) (*model.Promotion, error) {
	return read(s, func(q *querier) (*model.Promotion, error) { return q.GetPromotionByID(ctx, id) })
}

func (s *Store) GetPromotionForUpdate(ctx context.Context, id int) (*model.Promotion, error) {
	return read(s, func(q *querier) (*model.Promotion, error) { return q.GetPromotionForUpdate(ctx, id) })
}

func (s *Store) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	return read(s, func(q *querier) ([]model.Promotion, error) { return q.ListPromotions(ctx) })
}

func (s *Store) PromotionNameExists(ctx context.Context, name string, excludeID int) (bool, error) {
	return read(s, func(q *querier) (bool, error) { return q.PromotionNameExists(ctx, name, excludeID) })
}

func (s *Store) ListActivePromotions(ctx context.Context, storeIDs []int, excludeID, activeStatusID int, now time.Time) ([]model.Promotion, error) {
	return read(s, func(q *querier) ([]model.Promotion, error) {
		return q.ListActivePromotions(ctx, storeIDs, excludeID, activeStatusID, now)
	})
}

func (s *Store) UpdatePromotion(ctx context.Context, promotion *model.Promotion) error {
	return write(s, func(q *querier) error { return q.UpdatePromotion(ctx, promotion) })
}

func (s *Store) UpdatePromotionStatus(ctx context.Context, id, statusID int, updatedAt time.Time) error {
	return write(s, func(q *querier) error { return q.UpdatePromotionStatus(ctx, id, statusID, updatedAt) })
}

func (s *Store) DeletePromotion(ctx context.Context, id int) error {
	return write(s, func(q *querier) error { return q.DeletePromotion(ctx, id) })
}

func (s *Store) CreateNotification(ctx context.Context, notification *model.Notification) error {
	return write(s, func(q *querier) error { return q.CreateNotification(ctx, notification) })
}

// Notifications 依 id 排序回傳已寫入的通知
func (s *Store) Notifications() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]model.Notification, 0, len(s.data.notifications))
	for _, id := range sortedKeys(s.data.notifications) {
		result = append(result, s.data.notifications[id])
	}
	return result
}

var _ db.Store = (*Store)(nil)
