package service

import (
	"context"
	"errors"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/RoyceAzure/lab/retail/internal/pkg/tracing"
	"github.com/rs/zerolog/log"
)

const sideEffectTimeout = 5 * time.Second

// OrderEventPublisher 訂單提交後的事件出口
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event *model.OrderEvent) error
}

type CreateOrderRequest struct {
	CustomerID    int64                `json:"customer_id" validate:"required,gt=0"`
	StoreID       *int                 `json:"store_id" validate:"omitempty,gt=0"`
	OrderType     model.OrderType      `json:"order_type" validate:"required"`
	PaymentMethod model.PaymentMethod  `json:"payment_method" validate:"required"`
	Details       []OrderDetailRequest `json:"details" validate:"required,min=1,dive"`
}

type OrderDetailRequest struct {
	ProductID int `json:"product_id" validate:"required,gt=0"`
	Quantity  int `json:"quantity" validate:"required,gt=0"`
}

type OrderService struct {
	store    db.Store
	ledger   *StockLedger
	settings Settings
	events   OrderEventPublisher
	options
}

func NewOrderService(store db.Store, ledger *StockLedger, settings Settings, events OrderEventPublisher, opts ...Option) *OrderService {
	return &OrderService{
		store:    store,
		ledger:   ledger,
		settings: settings,
		events:   events,
		options:  buildOptions(opts),
	}
}

func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (order *model.Order, err error) {
	ctx, span := tracing.Start(ctx, "OrderService.GetOrder")
	defer tracing.End(span, &err)

	order, err = s.store.GetOrderByID(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.New(apperr.ErrNotFound, "order %d does not exist", orderID)
	}
	return order, err
}

func (s *OrderService) ListOrdersByCustomer(ctx context.Context, customerID int64) (orders []model.Order, err error) {
	ctx, span := tracing.Start(ctx, "OrderService.ListOrdersByCustomer")
	defer tracing.End(span, &err)

	return s.store.ListOrdersByCustomer(ctx, customerID)
}

// resolveTarget 決定出貨門市與初始狀態
func (s *OrderService) resolveTarget(req CreateOrderRequest) (int, int, error) {
	switch req.OrderType {
	case model.OrderTypeOffline:
		if req.StoreID == nil {
			return 0, 0, apperr.New(apperr.ErrValidation, "offline orders require a store id")
		}
		return *req.StoreID, s.settings.Status.PaymentSuccess, nil
	case model.OrderTypeOnline:
		if req.StoreID != nil && *req.StoreID != s.settings.WarehouseStoreID {
			return 0, 0, apperr.New(apperr.ErrValidation, "online orders are fulfilled from warehouse store %d, got store %d", s.settings.WarehouseStoreID, *req.StoreID)
		}
		return s.settings.WarehouseStoreID, s.settings.Status.PendingConfirmation, nil
	default:
		return 0, 0, apperr.New(apperr.ErrValidation, "unknown order type %q", req.OrderType)
	}
}

// CreateOrder 在單一交易內扣庫存、快照售價並寫入訂單
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest, actingUserID int64) (order *model.Order, err error) {
	ctx, span := tracing.Start(ctx, "OrderService.CreateOrder")
	defer tracing.End(span, &err)

	if err := validateStruct(req); err != nil {
		return nil, err
	}
	if !req.OrderType.Valid() {
		return nil, apperr.New(apperr.ErrValidation, "unknown order type %q", req.OrderType)
	}
	if !req.PaymentMethod.Valid() {
		return nil, apperr.New(apperr.ErrValidation, "unknown payment method %q", req.PaymentMethod)
	}
	storeID, statusID, err := s.resolveTarget(req)
	if err != nil {
		return nil, err
	}

	productIDs := make([]int, 0, len(req.Details))
	seen := make(map[int]struct{}, len(req.Details))
	for _, d := range req.Details {
		if _, dup := seen[d.ProductID]; dup {
			return nil, apperr.New(apperr.ErrDuplicateLineItem, "product %d appears more than once", d.ProductID)
		}
		seen[d.ProductID] = struct{}{}
		productIDs = append(productIDs, d.ProductID)
	}

	now := s.utcNow()
	order = &model.Order{
		OrderNumber:   s.codes.OrderNumber(now),
		CustomerID:    req.CustomerID,
		StoreID:       &storeID,
		OrderType:     req.OrderType,
		PaymentMethod: req.PaymentMethod,
		StatusID:      statusID,
		BaseModel:     model.BaseModel{CreatedAt: now},
	}
	if actingUserID > 0 {
		order.CreatedBy = &actingUserID
	}

	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		ok, err := q.UserExists(ctx, req.CustomerID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrNotFound, "customer %d does not exist", req.CustomerID)
		}
		if req.OrderType == model.OrderTypeOffline {
			ok, err := q.StoreExists(ctx, storeID)
			if err != nil {
				return err
			}
			if !ok {
				return apperr.New(apperr.ErrNotFound, "store %d does not exist", storeID)
			}
		}

		products, err := q.GetProductsByIDs(ctx, productIDs)
		if err != nil {
			return err
		}
		for _, id := range productIDs {
			if _, ok := products[id]; !ok {
				return apperr.New(apperr.ErrProductNotFound, "product %d does not exist", id)
			}
		}

		entries, err := s.ledger.LockEntries(ctx, q, storeID, productIDs)
		if err != nil {
			return err
		}
		for _, id := range productIDs {
			if _, ok := entries[id]; !ok {
				return apperr.New(apperr.ErrNotAvailableInStore, "product %d is not stocked in store %d", id, storeID)
			}
		}

		details := make([]model.OrderDetail, 0, len(req.Details))
		for _, d := range req.Details {
			entry := entries[d.ProductID]
			if entry.Quantity < d.Quantity {
				return apperr.New(apperr.ErrInsufficientStock, "product %d: requested %d, only %d available in store %d", d.ProductID, d.Quantity, entry.Quantity, storeID)
			}
			if _, err := s.ledger.Adjust(ctx, q, storeID, d.ProductID, -d.Quantity); err != nil {
				return err
			}
			details = append(details, model.OrderDetail{
				ProductID: d.ProductID,
				Quantity:  d.Quantity,
				UnitPrice: entry.SalePrice,
			})
		}
		order.OrderDetails = details
		order.RecalculateTotal()
		return q.CreateOrder(ctx, order)
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) {
			s.metrics.StockRejected("create_order")
		}
		return nil, err
	}

	s.metrics.OrderCreated(string(order.OrderType))
	log.Info().
		Int64("order_id", order.ID).
		Str("order_number", order.OrderNumber).
		Int("store_id", storeID).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order created")
	s.publish(ctx, model.OrderEventCreated, order)
	return order, nil
}

// lockOrderOfDetail 由明細找到訂單並鎖定
func (s *OrderService) lockOrderOfDetail(ctx context.Context, q db.Querier, detailID int64) (*model.Order, int, error) {
	orderID, err := q.GetOrderIDByDetailID(ctx, detailID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, -1, apperr.New(apperr.ErrNotFound, "order detail %d does not exist", detailID)
	}
	if err != nil {
		return nil, -1, err
	}
	order, err := q.GetOrderForUpdate(ctx, orderID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, -1, apperr.New(apperr.ErrNotFound, "order %d does not exist", orderID)
	}
	if err != nil {
		return nil, -1, err
	}
	// 上鎖前明細可能已被刪除
	idx, ok := order.DetailByID(detailID)
	if !ok {
		return nil, -1, apperr.New(apperr.ErrNotFound, "order detail %d does not exist", detailID)
	}
	if order.StatusID != s.settings.Status.PendingConfirmation {
		return nil, -1, apperr.New(apperr.ErrInvalidOrderState, "order %s is not pending confirmation", order.OrderNumber)
	}
	return order, idx, nil
}

func (s *OrderService) storeOf(order *model.Order) int {
	if order.StoreID != nil {
		return *order.StoreID
	}
	return s.settings.WarehouseStoreID
}

// UpdateOrderDetail 修改待確認訂單的明細數量，差額回寫庫存
func (s *OrderService) UpdateOrderDetail(ctx context.Context, detailID int64, quantity int) (order *model.Order, err error) {
	ctx, span := tracing.Start(ctx, "OrderService.UpdateOrderDetail")
	defer tracing.End(span, &err)

	if quantity <= 0 {
		return nil, apperr.New(apperr.ErrValidation, "quantity must be greater than 0")
	}

	now := s.utcNow()
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		locked, idx, err := s.lockOrderOfDetail(ctx, q, detailID)
		if err != nil {
			return err
		}
		detail := &locked.OrderDetails[idx]
		if delta := quantity - detail.Quantity; delta != 0 {
			if _, err := s.ledger.Adjust(ctx, q, s.storeOf(locked), detail.ProductID, -delta); err != nil {
				return err
			}
			if err := q.UpdateOrderDetailQuantity(ctx, detailID, quantity); err != nil {
				return err
			}
			detail.Quantity = quantity
		}

		total := locked.RecalculateTotal()
		locked.UpdatedAt = &now
		if err := q.UpdateOrderTotal(ctx, locked.ID, total, now); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrInsufficientStock) {
			s.metrics.StockRejected("update_order_detail")
		}
		return nil, err
	}
	return order, nil
}

// DeleteOrderDetail 刪除待確認訂單的明細並歸還庫存
// 庫存列已不存在時略過歸還
func (s *OrderService) DeleteOrderDetail(ctx context.Context, detailID int64) (order *model.Order, err error) {
	ctx, span := tracing.Start(ctx, "OrderService.DeleteOrderDetail")
	defer tracing.End(span, &err)

	now := s.utcNow()
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		locked, idx, err := s.lockOrderOfDetail(ctx, q, detailID)
		if err != nil {
			return err
		}
		detail := locked.OrderDetails[idx]
		storeID := s.storeOf(locked)
		if _, err := s.ledger.Adjust(ctx, q, storeID, detail.ProductID, detail.Quantity); err != nil {
			if !errors.Is(err, apperr.ErrNotAvailableInStore) {
				return err
			}
			log.Warn().Int64("order_id", locked.ID).Int("store_id", storeID).Int("product_id", detail.ProductID).Msg("stock entry missing, give-back skipped")
		}
		if err := q.DeleteOrderDetail(ctx, detailID); err != nil {
			return err
		}

		locked.OrderDetails = append(locked.OrderDetails[:idx], locked.OrderDetails[idx+1:]...)
		total := locked.RecalculateTotal()
		locked.UpdatedAt = &now
		if err := q.UpdateOrderTotal(ctx, locked.ID, total, now); err != nil {
			return err
		}
		order = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus 設定訂單狀態
// 相同狀態為 no-op；進入取消狀態時歸還每一行庫存，取消後不可再變更
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int64, statusID int) (order *model.Order, err error) {
	ctx, span := tracing.Start(ctx, "OrderService.UpdateOrderStatus")
	defer tracing.End(span, &err)

	cancelled := s.settings.Status.Cancelled
	changed := false
	now := s.utcNow()
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		locked, err := q.GetOrderForUpdate(ctx, orderID)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.New(apperr.ErrNotFound, "order %d does not exist", orderID)
		}
		if err != nil {
			return err
		}
		ok, err := q.StatusExists(ctx, statusID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrNotFound, "status %d does not exist", statusID)
		}
		if len(locked.OrderDetails) == 0 {
			return apperr.New(apperr.ErrEmptyOrder, "order %s has no lines", locked.OrderNumber)
		}

		order = locked
		if locked.StatusID == statusID {
			return nil
		}
		if locked.StatusID == cancelled {
			return apperr.New(apperr.ErrInvalidOrderState, "order %s is cancelled", locked.OrderNumber)
		}

		if statusID == cancelled {
			storeID := s.storeOf(locked)
			for _, d := range locked.OrderDetails {
				if _, err := s.ledger.Adjust(ctx, q, storeID, d.ProductID, d.Quantity); err != nil {
					if !errors.Is(err, apperr.ErrNotAvailableInStore) {
						return err
					}
					log.Warn().Int64("order_id", locked.ID).Int("product_id", d.ProductID).Msg("stock entry missing, restore skipped")
				}
			}
		}

		if err := q.UpdateOrderStatus(ctx, locked.ID, statusID, now); err != nil {
			return err
		}
		locked.StatusID = statusID
		locked.UpdatedAt = &now
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		if statusID == cancelled {
			s.metrics.OrderCancelled()
		}
		s.publish(ctx, model.OrderEventStatusChanged, order)
	}
	return order, nil
}

// publish 提交後送出事件，失敗只記錄
func (s *OrderService) publish(ctx context.Context, eventType string, order *model.Order) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	event := &model.OrderEvent{
		Type:        eventType,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		StoreID:     s.storeOf(order),
		StatusID:    order.StatusID,
		TotalAmount: order.TotalAmount,
		OccurredAt:  s.utcNow(),
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.metrics.SideEffectFailed("order_event")
		log.Warn().Err(err).Int64("order_id", order.ID).Str("event_type", eventType).Msg("publish order event failed")
	}
}
