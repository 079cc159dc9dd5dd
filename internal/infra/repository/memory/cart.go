package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/redis_repo"
	"github.com/shopspring/decimal"
)

// CartRepo 記憶體版購物車，行為與 redis_repo.CartRepo 相同
type CartRepo struct {
	mu     sync.Mutex
	seq    int64
	carts  map[int64]*model.Cart
	nowFun func() time.Time
}

func NewCartRepo() *CartRepo {
	return &CartRepo{
		carts:  map[int64]*model.Cart{},
		nowFun: time.Now,
	}
}

func (r *CartRepo) Get(ctx context.Context, customerID int64) (*model.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[customerID]
	if !ok {
		return nil, fmt.Errorf("%w: customer %d", redis_repo.ErrCartNotFound, customerID)
	}
	c := *cart
	c.Items = append([]model.CartItem(nil), cart.Items...)
	return &c, nil
}

// AddItem 同商品只保留一筆明細，合併與上限檢查在同一把鎖內
func (r *CartRepo) AddItem(ctx context.Context, customerID int64, productID, quantity, maxQuantity int, unitPrice decimal.Decimal) (*model.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[customerID]
	merged := quantity
	var existing *model.CartItem
	if ok {
		if existing, ok = cart.ItemByProduct(productID); ok {
			merged += existing.Quantity
		}
	}
	if merged > maxQuantity {
		return nil, fmt.Errorf("%w: product %d would hold %d, only %d available", redis_repo.ErrExceedsAvailable, productID, merged, maxQuantity)
	}

	if cart == nil {
		cart = &model.Cart{CustomerID: customerID, CreatedAt: r.nowFun().UTC()}
		r.carts[customerID] = cart
	}
	if existing == nil {
		r.seq++
		cart.Items = append(cart.Items, model.CartItem{ID: r.seq, ProductID: productID})
		existing = &cart.Items[len(cart.Items)-1]
	}
	existing.Quantity = merged
	existing.UnitPrice = unitPrice
	out := *existing
	return &out, nil
}

func (r *CartRepo) SetQuantity(ctx context.Context, customerID, itemID int64, quantity int) (*model.CartItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart, ok := r.carts[customerID]; ok {
		if item, ok := cart.ItemByID(itemID); ok {
			item.Quantity = quantity
			out := *item
			return &out, nil
		}
	}
	return nil, fmt.Errorf("%w: item %d", redis_repo.ErrCartItemNotFound, itemID)
}

func (r *CartRepo) DeleteItem(ctx context.Context, customerID int64, itemID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[customerID]
	if !ok {
		return nil
	}
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			break
		}
	}
	return nil
}

func (r *CartRepo) Clear(ctx context.Context, customerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, customerID)
	return nil
}

var _ redis_repo.ICartRepository = (*CartRepo)(nil)
