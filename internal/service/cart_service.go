package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/redis_repo"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/RoyceAzure/lab/retail/internal/pkg/tracing"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CartService 購物車只做庫存檢查，不保留庫存
// 兩個客戶可同時把最後一件放進購物車，由建立訂單時決定誰成功
type CartService struct {
	store    db.Store
	carts    redis_repo.ICartRepository
	ledger   *StockLedger
	settings Settings
	options
}

func NewCartService(store db.Store, carts redis_repo.ICartRepository, ledger *StockLedger, settings Settings, opts ...Option) *CartService {
	return &CartService{
		store:    store,
		carts:    carts,
		ledger:   ledger,
		settings: settings,
		options:  buildOptions(opts),
	}
}

// GetCart 沒有購物車時回傳空購物車
func (s *CartService) GetCart(ctx context.Context, customerID int64) (cart *model.Cart, err error) {
	ctx, span := tracing.Start(ctx, "CartService.GetCart")
	defer tracing.End(span, &err)

	cart, err = s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	cart.Recalculate()
	return cart, nil
}

func (s *CartService) load(ctx context.Context, customerID int64) (*model.Cart, error) {
	cart, err := s.carts.Get(ctx, customerID)
	if errors.Is(err, redis_repo.ErrCartNotFound) {
		return &model.Cart{CustomerID: customerID, Items: []model.CartItem{}, Total: decimal.Zero}, nil
	}
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// AddItem 加入商品，已存在則合併數量並以目前售價更新單價
func (s *CartService) AddItem(ctx context.Context, customerID int64, productID, quantity int) (cart *model.Cart, err error) {
	ctx, span := tracing.Start(ctx, "CartService.AddItem")
	defer tracing.End(span, &err)

	if quantity <= 0 {
		return nil, apperr.New(apperr.ErrValidation, "quantity must be greater than 0")
	}

	ok, err := s.store.UserExists(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "customer %d does not exist", customerID)
	}
	product, err := s.store.GetProductByID(ctx, productID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.New(apperr.ErrProductNotFound, "product %d does not exist", productID)
	}
	if err != nil {
		return nil, err
	}
	if product.StatusID != s.settings.Status.Active {
		return nil, apperr.New(apperr.ErrProductUnavailable, "product %d is not available for sale", productID)
	}

	entry, err := s.ledger.Entry(ctx, s.store, s.settings.WarehouseStoreID, productID)
	if err != nil {
		return nil, err
	}

	// 合併與上限檢查由購物車儲存原子完成，同商品併發加入不會產生兩筆明細
	item, err := s.carts.AddItem(ctx, customerID, productID, quantity, entry.Quantity, entry.SalePrice)
	if errors.Is(err, redis_repo.ErrExceedsAvailable) {
		s.metrics.StockRejected("cart_add_item")
		return nil, apperr.Wrap(apperr.ErrInsufficientStock, err, "product %d: only %d available", productID, entry.Quantity)
	}
	if err != nil {
		return nil, err
	}

	log.Debug().Int64("customer_id", customerID).Int("product_id", productID).Int("quantity", item.Quantity).Msg("cart item saved")
	return s.GetCart(ctx, customerID)
}

// UpdateQuantity 重新檢查庫存，單價維持加入時的快照
func (s *CartService) UpdateQuantity(ctx context.Context, customerID, cartItemID int64, quantity int) (cart *model.Cart, err error) {
	ctx, span := tracing.Start(ctx, "CartService.UpdateQuantity")
	defer tracing.End(span, &err)

	if quantity <= 0 {
		return nil, apperr.New(apperr.ErrValidation, "quantity must be greater than 0")
	}

	cart, err = s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	item, ok := cart.ItemByID(cartItemID)
	if !ok {
		return nil, apperr.New(apperr.ErrNotFound, "cart item %d does not exist", cartItemID)
	}

	entry, err := s.ledger.Entry(ctx, s.store, s.settings.WarehouseStoreID, item.ProductID)
	if err != nil {
		return nil, err
	}
	if quantity > entry.Quantity {
		s.metrics.StockRejected("cart_update_quantity")
		return nil, apperr.New(apperr.ErrInsufficientStock, "product %d: requested %d, only %d available", item.ProductID, quantity, entry.Quantity)
	}

	_, err = s.carts.SetQuantity(ctx, customerID, cartItemID, quantity)
	if errors.Is(err, redis_repo.ErrCartItemNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "cart item %d does not exist", cartItemID)
	}
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

func (s *CartService) RemoveItem(ctx context.Context, customerID, cartItemID int64) (err error) {
	ctx, span := tracing.Start(ctx, "CartService.RemoveItem")
	defer tracing.End(span, &err)

	return s.carts.DeleteItem(ctx, customerID, cartItemID)
}

func (s *CartService) ClearCart(ctx context.Context, customerID int64) (err error) {
	ctx, span := tracing.Start(ctx, "CartService.ClearCart")
	defer tracing.End(span, &err)

	return s.carts.Clear(ctx, customerID)
}
