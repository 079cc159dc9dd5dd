package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/redis_repo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Seed(context.Background(), &model.Seed{
		Stores:       []model.Store{{ID: 1, Name: "Warehouse"}},
		Products:     []model.Product{{ID: 7, SKU: "SKU-7", Name: "Runner", OriginalPrice: decimal.NewFromInt(100)}},
		StockEntries: []model.StoreProduct{{StoreID: 1, ProductID: 7, Quantity: 3, SalePrice: decimal.NewFromInt(100)}},
	}))
	return s
}

func TestExecTxDiscardsSnapshotOnError(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	boom := errors.New("boom")

	err := s.ExecTx(ctx, func(q db.Querier) error {
		if _, err := q.AdjustQuantity(ctx, 1, 7, -3); err != nil {
			return err
		}
		order := &model.Order{OrderNumber: "OD-1", OrderDetails: []model.OrderDetail{{ProductID: 7, Quantity: 3}}}
		if err := q.CreateOrder(ctx, order); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	entry, err := s.GetStockEntry(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Quantity)
	_, err = s.GetOrderByID(ctx, 1)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestAdjustQuantityNeverNegative(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.ExecTx(ctx, func(q db.Querier) error {
				_, err := q.AdjustQuantity(ctx, 1, 7, -1)
				return err
			})
			if err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, ok)
	entry, err := s.GetStockEntry(ctx, 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, entry.Quantity)

	_, err = s.AdjustQuantity(ctx, 1, 8, 1)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestReturnedOrdersAreCopies(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	order := &model.Order{CustomerID: 42, OrderDetails: []model.OrderDetail{{ProductID: 7, Quantity: 1}}}
	require.NoError(t, s.CreateOrder(ctx, order))

	got, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	got.OrderDetails[0].Quantity = 99

	again, err := s.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.OrderDetails[0].Quantity)
}

func TestListActivePromotionsFiltersWindowAndStatus(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	active := &model.Promotion{Name: "A", StartDate: now.Add(-time.Hour), EndDate: now.Add(time.Hour), StatusID: 1, Stores: []model.PromotionStore{{StoreID: 1}}}
	future := &model.Promotion{Name: "B", StartDate: now.Add(time.Hour), EndDate: now.Add(2 * time.Hour), StatusID: 2, Stores: []model.PromotionStore{{StoreID: 1}}}
	require.NoError(t, s.CreatePromotion(ctx, active))
	require.NoError(t, s.CreatePromotion(ctx, future))

	got, err := s.ListActivePromotions(ctx, []int{1}, 0, 1, now)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Name)

	got, err = s.ListActivePromotions(ctx, []int{1}, active.ID, 1, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCartRepo(t *testing.T) {
	ctx := context.Background()
	r := NewCartRepo()

	_, err := r.Get(ctx, 42)
	assert.ErrorIs(t, err, redis_repo.ErrCartNotFound)

	item, err := r.AddItem(ctx, 42, 7, 2, 5, decimal.NewFromInt(10))
	require.NoError(t, err)
	merged, err := r.AddItem(ctx, 42, 7, 2, 5, decimal.NewFromInt(8))
	require.NoError(t, err)
	assert.Equal(t, item.ID, merged.ID)
	assert.Equal(t, 4, merged.Quantity)

	_, err = r.AddItem(ctx, 42, 7, 2, 5, decimal.NewFromInt(8))
	assert.ErrorIs(t, err, redis_repo.ErrExceedsAvailable)

	_, err = r.SetQuantity(ctx, 42, item.ID, 1)
	require.NoError(t, err)
	_, err = r.SetQuantity(ctx, 42, 999, 1)
	assert.ErrorIs(t, err, redis_repo.ErrCartItemNotFound)

	cart, err := r.Get(ctx, 42)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
	assert.True(t, cart.Items[0].UnitPrice.Equal(decimal.NewFromInt(8)))

	require.NoError(t, r.DeleteItem(ctx, 42, item.ID))
	require.NoError(t, r.DeleteItem(ctx, 99, item.ID))
	require.NoError(t, r.Clear(ctx, 42))
	require.NoError(t, r.Clear(ctx, 42))
}

func TestCartRepoRejectedAddCreatesNoCart(t *testing.T) {
	ctx := context.Background()
	r := NewCartRepo()

	_, err := r.AddItem(ctx, 42, 7, 6, 5, decimal.NewFromInt(10))
	assert.ErrorIs(t, err, redis_repo.ErrExceedsAvailable)
	_, err = r.Get(ctx, 42)
	assert.ErrorIs(t, err, redis_repo.ErrCartNotFound)
}
