package service

import (
	"sync"
	"testing"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

type OrderServiceTestSuite struct {
	serviceSuite
	svc *OrderService
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func (s *OrderServiceTestSuite) SetupTest() {
	s.serviceSuite.SetupTest()
	s.svc = NewOrderService(s.store, s.ledger, s.settings, s.events, s.opts...)
}

func intPtr(v int) *int { return &v }

func (s *OrderServiceTestSuite) onlineOrder(details ...OrderDetailRequest) CreateOrderRequest {
	return CreateOrderRequest{
		CustomerID:    customerID,
		OrderType:     model.OrderTypeOnline,
		PaymentMethod: model.PaymentMethodTransfer,
		Details:       details,
	}
}

func (s *OrderServiceTestSuite) assertTotalMatchesLines(order *model.Order) {
	stored, err := s.svc.GetOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	sum := model.Order{OrderDetails: stored.OrderDetails}
	s.Equal(sum.RecalculateTotal().StringFixed(2), stored.TotalAmount.StringFixed(2))
}

func (s *OrderServiceTestSuite) TestCreateOnlineOrder() {
	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(
		OrderDetailRequest{ProductID: productRunner, Quantity: 2},
		OrderDetailRequest{ProductID: productSocks, Quantity: 3},
	), 0)
	s.Require().NoError(err)

	s.Equal(s.settings.Status.PendingConfirmation, order.StatusID)
	s.Require().NotNil(order.StoreID)
	s.Equal(storeWarehouse, *order.StoreID)
	s.Nil(order.CreatedBy)
	s.Equal("OD-20250601120000000-test01", order.OrderNumber)
	s.Equal("259.97", order.TotalAmount.StringFixed(2))
	s.Equal(3, s.quantity(storeWarehouse, productRunner))
	s.Equal(17, s.quantity(storeWarehouse, productSocks))
	s.assertTotalMatchesLines(order)

	s.Equal([]string{model.OrderEventCreated}, s.events.types())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OrdersCreated.WithLabelValues("Online")))
}

func (s *OrderServiceTestSuite) TestCreateOfflineOrder() {
	order, err := s.svc.CreateOrder(s.ctx, CreateOrderRequest{
		CustomerID:    customerID,
		StoreID:       intPtr(storeTaipei),
		OrderType:     model.OrderTypeOffline,
		PaymentMethod: model.PaymentMethodCash,
		Details:       []OrderDetailRequest{{ProductID: productJacket, Quantity: 2}},
	}, staffID)
	s.Require().NoError(err)

	s.Equal(s.settings.Status.PaymentSuccess, order.StatusID)
	s.Equal(storeTaipei, *order.StoreID)
	s.Require().NotNil(order.CreatedBy)
	s.Equal(staffID, *order.CreatedBy)
	s.Equal(0, s.quantity(storeTaipei, productJacket))
	s.Equal(10, s.quantity(storeWarehouse, productJacket))
}

func (s *OrderServiceTestSuite) TestSnapshotsSalePrice() {
	s.Require().NoError(s.ledger.SetSalePrice(s.ctx, s.store, storeWarehouse, productRunner, money("80")))

	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(OrderDetailRequest{ProductID: productRunner, Quantity: 1}), 0)
	s.Require().NoError(err)
	s.Require().NoError(s.ledger.SetSalePrice(s.ctx, s.store, storeWarehouse, productRunner, money("100")))

	stored, err := s.svc.GetOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Equal("80.00", stored.OrderDetails[0].UnitPrice.StringFixed(2))
	s.Equal("80.00", stored.TotalAmount.StringFixed(2))
}

func (s *OrderServiceTestSuite) TestStoreRules() {
	_, err := s.svc.CreateOrder(s.ctx, CreateOrderRequest{
		CustomerID:    customerID,
		OrderType:     model.OrderTypeOffline,
		PaymentMethod: model.PaymentMethodCash,
		Details:       []OrderDetailRequest{{ProductID: productRunner, Quantity: 1}},
	}, staffID)
	s.ErrorIs(err, apperr.ErrValidation)

	req := s.onlineOrder(OrderDetailRequest{ProductID: productRunner, Quantity: 1})
	req.StoreID = intPtr(storeTaipei)
	_, err = s.svc.CreateOrder(s.ctx, req, 0)
	s.ErrorIs(err, apperr.ErrValidation)

	req.StoreID = intPtr(storeWarehouse)
	_, err = s.svc.CreateOrder(s.ctx, req, 0)
	s.NoError(err)
}

func (s *OrderServiceTestSuite) TestRejectsInvalidRequests() {
	cases := []struct {
		name string
		req  CreateOrderRequest
		want error
	}{
		{
			name: "unknown order type",
			req:  CreateOrderRequest{CustomerID: customerID, OrderType: "Drone", PaymentMethod: model.PaymentMethodCash, Details: []OrderDetailRequest{{ProductID: productRunner, Quantity: 1}}},
			want: apperr.ErrValidation,
		},
		{
			name: "unknown payment method",
			req:  CreateOrderRequest{CustomerID: customerID, OrderType: model.OrderTypeOnline, PaymentMethod: "Shells", Details: []OrderDetailRequest{{ProductID: productRunner, Quantity: 1}}},
			want: apperr.ErrValidation,
		},
		{
			name: "no lines",
			req:  s.onlineOrder(),
			want: apperr.ErrValidation,
		},
		{
			name: "non-positive quantity",
			req:  s.onlineOrder(OrderDetailRequest{ProductID: productRunner, Quantity: 0}),
			want: apperr.ErrValidation,
		},
		{
			name: "duplicate product",
			req:  s.onlineOrder(OrderDetailRequest{ProductID: productRunner, Quantity: 1}, OrderDetailRequest{ProductID: productRunner, Quantity: 2}),
			want: apperr.ErrDuplicateLineItem,
		},
		{
			name: "unknown customer",
			req:  CreateOrderRequest{CustomerID: 7777, OrderType: model.OrderTypeOnline, PaymentMethod: model.PaymentMethodCash, Details: []OrderDetailRequest{{ProductID: productRunner, Quantity: 1}}},
			want: apperr.ErrNotFound,
		},
		{
			name: "unknown product",
			req:  s.onlineOrder(OrderDetailRequest{ProductID: productNotExist, Quantity: 1}),
			want: apperr.ErrProductNotFound,
		},
		{
			name: "product not stocked",
			req:  s.onlineOrder(OrderDetailRequest{ProductID: productNoStock, Quantity: 1}),
			want: apperr.ErrNotAvailableInStore,
		},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.svc.CreateOrder(s.ctx, tc.req, 0)
			s.ErrorIs(err, tc.want)
		})
	}

	_, err := s.svc.CreateOrder(s.ctx, CreateOrderRequest{
		CustomerID:    customerID,
		StoreID:       intPtr(404),
		OrderType:     model.OrderTypeOffline,
		PaymentMethod: model.PaymentMethodCash,
		Details:       []OrderDetailRequest{{ProductID: productRunner, Quantity: 1}},
	}, staffID)
	s.Equal(apperr.NotFound, apperr.KindOf(err))
	s.Empty(s.events.types())
}

func (s *OrderServiceTestSuite) TestAllOrNothingOnInsufficientStock() {
	_, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(
		OrderDetailRequest{ProductID: productRunner, Quantity: 1},
		OrderDetailRequest{ProductID: productJacket, Quantity: 11},
		OrderDetailRequest{ProductID: productSocks, Quantity: 1},
	), 0)
	s.Require().ErrorIs(err, apperr.ErrInsufficientStock)
	s.Equal(apperr.Conflict, apperr.KindOf(err))

	s.Equal(5, s.quantity(storeWarehouse, productRunner))
	s.Equal(10, s.quantity(storeWarehouse, productJacket))
	s.Equal(20, s.quantity(storeWarehouse, productSocks))

	orders, err := s.svc.ListOrdersByCustomer(s.ctx, customerID)
	s.Require().NoError(err)
	s.Empty(orders)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StockRejections.WithLabelValues("create_order")))
}

func (s *OrderServiceTestSuite) TestConcurrentOrdersForLastUnits() {
	const workers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.svc.CreateOrder(s.ctx, CreateOrderRequest{
				CustomerID:    customerID,
				StoreID:       intPtr(storeTainan),
				OrderType:     model.OrderTypeOffline,
				PaymentMethod: model.PaymentMethodCash,
				Details:       []OrderDetailRequest{{ProductID: productRunner, Quantity: 1}},
			}, staffID)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	s.Equal(0, s.quantity(storeTainan, productRunner))
}

func (s *OrderServiceTestSuite) TestOrderNumbersAreUnique() {
	seen := map[string]struct{}{}
	for i := 0; i < 3; i++ {
		order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(OrderDetailRequest{ProductID: productSocks, Quantity: 1}), 0)
		s.Require().NoError(err)
		_, dup := seen[order.OrderNumber]
		s.False(dup)
		seen[order.OrderNumber] = struct{}{}
	}
}

func (s *OrderServiceTestSuite) TestUpdateOrderDetail() {
	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(
		OrderDetailRequest{ProductID: productRunner, Quantity: 2},
		OrderDetailRequest{ProductID: productJacket, Quantity: 1},
	), 0)
	s.Require().NoError(err)
	detailID := order.OrderDetails[0].ID

	updated, err := s.svc.UpdateOrderDetail(s.ctx, detailID, 5)
	s.Require().NoError(err)
	s.Equal(0, s.quantity(storeWarehouse, productRunner))
	s.Equal("750.00", updated.TotalAmount.StringFixed(2))
	s.NotNil(updated.UpdatedAt)
	s.assertTotalMatchesLines(order)

	_, err = s.svc.UpdateOrderDetail(s.ctx, detailID, 6)
	s.ErrorIs(err, apperr.ErrInsufficientStock)
	s.Equal(0, s.quantity(storeWarehouse, productRunner))

	updated, err = s.svc.UpdateOrderDetail(s.ctx, detailID, 1)
	s.Require().NoError(err)
	s.Equal(4, s.quantity(storeWarehouse, productRunner))
	s.Equal("350.00", updated.TotalAmount.StringFixed(2))
	s.assertTotalMatchesLines(order)

	_, err = s.svc.UpdateOrderDetail(s.ctx, detailID, 0)
	s.ErrorIs(err, apperr.ErrValidation)
	_, err = s.svc.UpdateOrderDetail(s.ctx, 9999, 1)
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestDetailEditsRequirePendingOrder() {
	order, err := s.svc.CreateOrder(s.ctx, CreateOrderRequest{
		CustomerID:    customerID,
		StoreID:       intPtr(storeTaipei),
		OrderType:     model.OrderTypeOffline,
		PaymentMethod: model.PaymentMethodCash,
		Details:       []OrderDetailRequest{{ProductID: productRunner, Quantity: 1}},
	}, staffID)
	s.Require().NoError(err)
	detailID := order.OrderDetails[0].ID

	_, err = s.svc.UpdateOrderDetail(s.ctx, detailID, 2)
	s.ErrorIs(err, apperr.ErrInvalidOrderState)
	s.Equal(apperr.InvalidState, apperr.KindOf(err))
	_, err = s.svc.DeleteOrderDetail(s.ctx, detailID)
	s.ErrorIs(err, apperr.ErrInvalidOrderState)
	s.Equal(3, s.quantity(storeTaipei, productRunner))
}

func (s *OrderServiceTestSuite) TestDeleteOrderDetail() {
	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(
		OrderDetailRequest{ProductID: productRunner, Quantity: 2},
		OrderDetailRequest{ProductID: productSocks, Quantity: 4},
	), 0)
	s.Require().NoError(err)

	updated, err := s.svc.DeleteOrderDetail(s.ctx, order.OrderDetails[0].ID)
	s.Require().NoError(err)
	s.Len(updated.OrderDetails, 1)
	s.Equal(5, s.quantity(storeWarehouse, productRunner))
	s.Equal("79.96", updated.TotalAmount.StringFixed(2))
	s.assertTotalMatchesLines(order)

	_, err = s.svc.DeleteOrderDetail(s.ctx, order.OrderDetails[0].ID)
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestCancelRestoresStockExactlyOnce() {
	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(
		OrderDetailRequest{ProductID: productRunner, Quantity: 2},
		OrderDetailRequest{ProductID: productJacket, Quantity: 3},
	), 0)
	s.Require().NoError(err)
	s.Equal(3, s.quantity(storeWarehouse, productRunner))
	s.Equal(7, s.quantity(storeWarehouse, productJacket))

	cancelled, err := s.svc.UpdateOrderStatus(s.ctx, order.ID, s.settings.Status.Cancelled)
	s.Require().NoError(err)
	s.Equal(s.settings.Status.Cancelled, cancelled.StatusID)
	s.Equal(5, s.quantity(storeWarehouse, productRunner))
	s.Equal(10, s.quantity(storeWarehouse, productJacket))

	_, err = s.svc.UpdateOrderStatus(s.ctx, order.ID, s.settings.Status.Cancelled)
	s.Require().NoError(err)
	s.Equal(5, s.quantity(storeWarehouse, productRunner))
	s.Equal(10, s.quantity(storeWarehouse, productJacket))

	_, err = s.svc.UpdateOrderStatus(s.ctx, order.ID, s.settings.Status.Confirmed)
	s.ErrorIs(err, apperr.ErrInvalidOrderState)

	s.Equal([]string{model.OrderEventCreated, model.OrderEventStatusChanged}, s.events.types())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.OrderCancellations))
}

func (s *OrderServiceTestSuite) TestStatusChangeWithoutCancelKeepsStock() {
	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(OrderDetailRequest{ProductID: productRunner, Quantity: 2}), 0)
	s.Require().NoError(err)

	confirmed, err := s.svc.UpdateOrderStatus(s.ctx, order.ID, s.settings.Status.Confirmed)
	s.Require().NoError(err)
	s.Equal(s.settings.Status.Confirmed, confirmed.StatusID)
	s.Equal(3, s.quantity(storeWarehouse, productRunner))

	_, err = s.svc.UpdateOrderDetail(s.ctx, order.OrderDetails[0].ID, 1)
	s.ErrorIs(err, apperr.ErrInvalidOrderState)
}

func (s *OrderServiceTestSuite) TestUpdateOrderStatusErrors() {
	_, err := s.svc.UpdateOrderStatus(s.ctx, 12345, s.settings.Status.Confirmed)
	s.ErrorIs(err, apperr.ErrNotFound)

	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(OrderDetailRequest{ProductID: productRunner, Quantity: 1}), 0)
	s.Require().NoError(err)
	_, err = s.svc.UpdateOrderStatus(s.ctx, order.ID, 77)
	s.ErrorIs(err, apperr.ErrNotFound)

	_, err = s.svc.DeleteOrderDetail(s.ctx, order.OrderDetails[0].ID)
	s.Require().NoError(err)
	_, err = s.svc.UpdateOrderStatus(s.ctx, order.ID, s.settings.Status.Cancelled)
	s.ErrorIs(err, apperr.ErrEmptyOrder)
}

func (s *OrderServiceTestSuite) TestEventFailureDoesNotFailOrder() {
	s.events.fails = true

	order, err := s.svc.CreateOrder(s.ctx, s.onlineOrder(OrderDetailRequest{ProductID: productRunner, Quantity: 1}), 0)
	s.Require().NoError(err)
	s.NotZero(order.ID)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.SideEffectFailures.WithLabelValues("order_event")))
}
