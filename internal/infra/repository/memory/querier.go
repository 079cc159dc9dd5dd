package memory

import (
	"context"
	"sort"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/shopspring/decimal"
)

// querier 直接操作某一份 state，呼叫端負責持有鎖
type querier struct {
	st *state
}

func (q *querier) UserExists(ctx context.Context, id int64) (bool, error) {
	_, ok := q.st.users[id]
	return ok, nil
}

func (q *querier) StoreExists(ctx context.Context, id int) (bool, error) {
	_, ok := q.st.stores[id]
	return ok, nil
}

func (q *querier) StatusExists(ctx context.Context, id int) (bool, error) {
	_, ok := q.st.statuses[id]
	return ok, nil
}

func (q *querier) GetProductByID(ctx context.Context, id int) (*model.Product, error) {
	p, ok := q.st.products[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &p, nil
}

func (q *querier) GetProductsByIDs(ctx context.Context, ids []int) (map[int]model.Product, error) {
	result := make(map[int]model.Product, len(ids))
	for _, id := range ids {
		if p, ok := q.st.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (q *querier) GetExistingStoreIDs(ctx context.Context, ids []int) ([]int, error) {
	found := []int{}
	for _, id := range ids {
		if _, ok := q.st.stores[id]; ok {
			found = append(found, id)
		}
	}
	sort.Ints(found)
	return found, nil
}

func (q *querier) LockStores(ctx context.Context, ids []int) error {
	return nil
}

func (q *querier) GetStockEntry(ctx context.Context, storeID, productID int) (*model.StoreProduct, error) {
	e, ok := q.st.stock[stockKey{storeID, productID}]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &e, nil
}

func (q *querier) GetStockEntriesForUpdate(ctx context.Context, storeID int, productIDs []int) (map[int]model.StoreProduct, error) {
	result := make(map[int]model.StoreProduct, len(productIDs))
	for _, id := range productIDs {
		if e, ok := q.st.stock[stockKey{storeID, id}]; ok {
			result[id] = e
		}
	}
	return result, nil
}

func (q *querier) AdjustQuantity(ctx context.Context, storeID, productID, delta int) (int, error) {
	key := stockKey{storeID, productID}
	e, ok := q.st.stock[key]
	if !ok {
		return 0, db.ErrNotFound
	}
	if e.Quantity+delta < 0 {
		return 0, db.ErrStockNotEnough
	}
	e.Quantity += delta
	q.st.stock[key] = e
	return e.Quantity, nil
}

func (q *querier) SetSalePrice(ctx context.Context, storeID, productID int, price decimal.Decimal) error {
	key := stockKey{storeID, productID}
	e, ok := q.st.stock[key]
	if !ok {
		return db.ErrNotFound
	}
	e.SalePrice = price
	q.st.stock[key] = e
	return nil
}

func (q *querier) CreateStockEntry(ctx context.Context, entry *model.StoreProduct) error {
	q.st.stock[stockKey{entry.StoreID, entry.ProductID}] = *entry
	return nil
}

func (q *querier) CreateOrder(ctx context.Context, order *model.Order) error {
	q.st.orderSeq++
	order.ID = q.st.orderSeq
	for i := range order.OrderDetails {
		q.st.detailSeq++
		order.OrderDetails[i].ID = q.st.detailSeq
		order.OrderDetails[i].OrderID = order.ID
	}
	q.st.orders[order.ID] = order.Clone()
	return nil
}

func (q *querier) GetOrderByID(ctx context.Context, id int64) (*model.Order, error) {
	o, ok := q.st.orders[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return o.Clone(), nil
}

func (q *querier) GetOrderForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	return q.GetOrderByID(ctx, id)
}

func (q *querier) findDetail(detailID int64) (*model.Order, int, bool) {
	for _, o := range q.st.orders {
		if i, ok := o.DetailByID(detailID); ok {
			return o, i, true
		}
	}
	return nil, -1, false
}

func (q *querier) GetOrderIDByDetailID(ctx context.Context, detailID int64) (int64, error) {
	o, _, ok := q.findDetail(detailID)
	if !ok {
		return 0, db.ErrNotFound
	}
	return o.ID, nil
}

func (q *querier) ListOrdersByCustomer(ctx context.Context, customerID int64) ([]model.Order, error) {
	orders := []model.Order{}
	for _, id := range sortedKeys(q.st.orders) {
		if o := q.st.orders[id]; o.CustomerID == customerID {
			orders = append(orders, *o.Clone())
		}
	}
	return orders, nil
}

func (q *querier) UpdateOrderDetailQuantity(ctx context.Context, detailID int64, quantity int) error {
	if o, i, ok := q.findDetail(detailID); ok {
		o.OrderDetails[i].Quantity = quantity
	}
	return nil
}

func (q *querier) DeleteOrderDetail(ctx context.Context, detailID int64) error {
	if o, i, ok := q.findDetail(detailID); ok {
		o.OrderDetails = append(o.OrderDetails[:i], o.OrderDetails[i+1:]...)
	}
	return nil
}

func (q *querier) UpdateOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal, updatedAt time.Time) error {
	if o, ok := q.st.orders[orderID]; ok {
		o.TotalAmount = total
		o.UpdatedAt = &updatedAt
	}
	return nil
}

func (q *querier) UpdateOrderStatus(ctx context.Context, orderID int64, statusID int, updatedAt time.Time) error {
	if o, ok := q.st.orders[orderID]; ok {
		o.StatusID = statusID
		o.UpdatedAt = &updatedAt
	}
	return nil
}

func (q *querier) CreatePromotion(ctx context.Context, promotion *model.Promotion) error {
	q.st.promotionSeq++
	promotion.ID = q.st.promotionSeq
	for i := range promotion.Products {
		promotion.Products[i].PromotionID = promotion.ID
	}
	for i := range promotion.Stores {
		promotion.Stores[i].PromotionID = promotion.ID
	}
	q.st.promotions[promotion.ID] = promotion.Clone()
	return nil
}

func (q *querier) GetPromotionByID(ctx context.Context, id int) (*model.Promotion, error) {
	p, ok := q.st.promotions[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p.Clone(), nil
}

func (q *querier) GetPromotionForUpdate(ctx context.Context, id int) (*model.Promotion, error) {
	return q.GetPromotionByID(ctx, id)
}

func (q *querier) ListPromotions(ctx context.Context) ([]model.Promotion, error) {
	promotions := []model.Promotion{}
	for _, id := range sortedKeys(q.st.promotions) {
		promotions = append(promotions, *q.st.promotions[id].Clone())
	}
	return promotions, nil
}

func (q *querier) PromotionNameExists(ctx context.Context, name string, excludeID int) (bool, error) {
	for id, p := range q.st.promotions {
		if id != excludeID && p.Name == name {
			return true, nil
		}
	}
	return false, nil
}

func (q *querier) ListActivePromotions(ctx context.Context, storeIDs []int, excludeID, activeStatusID int, now time.Time) ([]model.Promotion, error) {
	wanted := make(map[int]struct{}, len(storeIDs))
	for _, id := range storeIDs {
		wanted[id] = struct{}{}
	}

	var result []model.Promotion
	for _, id := range sortedKeys(q.st.promotions) {
		p := q.st.promotions[id]
		if id == excludeID || p.StatusID != activeStatusID || !p.InWindow(now) {
			continue
		}
		for _, s := range p.Stores {
			if _, ok := wanted[s.StoreID]; ok {
				result = append(result, *p.Clone())
				break
			}
		}
	}
	return result, nil
}

func (q *querier) UpdatePromotion(ctx context.Context, promotion *model.Promotion) error {
	if _, ok := q.st.promotions[promotion.ID]; !ok {
		return nil
	}
	for i := range promotion.Products {
		promotion.Products[i].PromotionID = promotion.ID
	}
	for i := range promotion.Stores {
		promotion.Stores[i].PromotionID = promotion.ID
	}
	q.st.promotions[promotion.ID] = promotion.Clone()
	return nil
}

func (q *querier) UpdatePromotionStatus(ctx context.Context, id, statusID int, updatedAt time.Time) error {
	if p, ok := q.st.promotions[id]; ok {
		p.StatusID = statusID
		p.UpdatedAt = &updatedAt
	}
	return nil
}

func (q *querier) DeletePromotion(ctx context.Context, id int) error {
	if _, ok := q.st.promotions[id]; !ok {
		return db.ErrNotFound
	}
	delete(q.st.promotions, id)
	return nil
}

func (q *querier) CreateNotification(ctx context.Context, notification *model.Notification) error {
	q.st.notificationSeq++
	notification.ID = q.st.notificationSeq
	q.st.notifications[notification.ID] = *notification
	return nil
}

var _ db.Querier = (*querier)(nil)
