package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/memory"
	"github.com/RoyceAzure/lab/retail/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	storeWarehouse = 1
	storeTaipei    = 2
	storeTainan    = 3

	customerID int64 = 42
	staffID    int64 = 100

	productRunner   = 7
	productJacket   = 8
	productSocks    = 9
	productRetired  = 10
	productNoStock  = 11
	productNotExist = 999
)

var errBoom = errors.New("boom")

// fakeClock 可手動推進的時鐘
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordedNotification struct {
	Title   string
	Message string
	Type    string
}

type fakeNotifier struct {
	mu    sync.Mutex
	sent  []recordedNotification
	fails bool
}

func (n *fakeNotifier) Create(ctx context.Context, title, message, notificationType string) (int64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fails {
		return 0, errBoom
	}
	n.sent = append(n.sent, recordedNotification{Title: title, Message: message, Type: notificationType})
	return int64(len(n.sent)), nil
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, s := range n.sent {
		out = append(out, s.Title)
	}
	return out
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []model.OrderEvent
	fails  bool
}

func (p *fakeEventPublisher) PublishOrderEvent(ctx context.Context, event *model.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fails {
		return errBoom
	}
	p.events = append(p.events, *event)
	return nil
}

func (p *fakeEventPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testSeed() *model.Seed {
	return &model.Seed{
		Statuses: []model.Status{
			{ID: 1, Code: "ACTIVE", Name: "Active"},
			{ID: 2, Code: "INACTIVE", Name: "Inactive"},
			{ID: 3, Code: "PAYMENT_SUCCESS", Name: "Payment success"},
			{ID: 4, Code: "PENDING_CONFIRMATION", Name: "Pending confirmation"},
			{ID: 5, Code: "CONFIRMED", Name: "Confirmed"},
			{ID: 6, Code: "CANCELLED", Name: "Cancelled"},
		},
		Stores: []model.Store{
			{ID: storeWarehouse, Name: "Warehouse", StatusID: 1},
			{ID: storeTaipei, Name: "Taipei", StatusID: 1},
			{ID: storeTainan, Name: "Tainan", StatusID: 1},
		},
		Users: []model.User{
			{ID: customerID, FullName: "Customer"},
			{ID: staffID, FullName: "Staff"},
		},
		Products: []model.Product{
			{ID: productRunner, SKU: "RUN-7", Name: "Runner", OriginalPrice: money("100"), CostPrice: money("60"), StatusID: 1},
			{ID: productJacket, SKU: "JKT-8", Name: "Jacket", OriginalPrice: money("250"), CostPrice: money("120"), StatusID: 1},
			{ID: productSocks, SKU: "SCK-9", Name: "Socks", OriginalPrice: money("19.99"), CostPrice: money("5"), StatusID: 1},
			{ID: productRetired, SKU: "OLD-10", Name: "Retired", OriginalPrice: money("10"), CostPrice: money("5"), StatusID: 2},
			{ID: productNoStock, SKU: "NEW-11", Name: "Unstocked", OriginalPrice: money("30"), CostPrice: money("10"), StatusID: 1},
		},
		StockEntries: []model.StoreProduct{
			{StoreID: storeWarehouse, ProductID: productRunner, Quantity: 5, SalePrice: money("100")},
			{StoreID: storeWarehouse, ProductID: productJacket, Quantity: 10, SalePrice: money("250")},
			{StoreID: storeWarehouse, ProductID: productSocks, Quantity: 20, SalePrice: money("19.99")},
			{StoreID: storeWarehouse, ProductID: productRetired, Quantity: 5, SalePrice: money("10")},
			{StoreID: storeTaipei, ProductID: productRunner, Quantity: 4, SalePrice: money("100")},
			{StoreID: storeTaipei, ProductID: productJacket, Quantity: 2, SalePrice: money("250")},
			{StoreID: storeTaipei, ProductID: productSocks, Quantity: 6, SalePrice: money("19.99")},
			{StoreID: storeTainan, ProductID: productRunner, Quantity: 1, SalePrice: money("100")},
		},
	}
}

// serviceSuite 每個測試一份新的記憶體資料
type serviceSuite struct {
	suite.Suite
	ctx      context.Context
	store    *memory.Store
	carts    *memory.CartRepo
	ledger   *StockLedger
	clock    *fakeClock
	metrics  *metrics.Metrics
	settings Settings
	notifier *fakeNotifier
	events   *fakeEventPublisher
	opts     []Option
}

func (s *serviceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = memory.NewStore()
	s.Require().NoError(s.store.Seed(s.ctx, testSeed()))
	s.carts = memory.NewCartRepo()
	s.ledger = NewStockLedger()
	s.clock = &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.settings = DefaultSettings()
	s.notifier = &fakeNotifier{}
	s.events = &fakeEventPublisher{}
	s.opts = []Option{
		WithClock(s.clock.Now),
		WithMetrics(s.metrics),
		WithCodeGenerator(NewCodeGeneratorWithNode("test01")),
	}
}

func (s *serviceSuite) stock(storeID, productID int) *model.StoreProduct {
	entry, err := s.store.GetStockEntry(s.ctx, storeID, productID)
	s.Require().NoError(err)
	return entry
}

func (s *serviceSuite) quantity(storeID, productID int) int {
	return s.stock(storeID, productID).Quantity
}

func (s *serviceSuite) salePrice(storeID, productID int) string {
	return s.stock(storeID, productID).SalePrice.StringFixed(2)
}
