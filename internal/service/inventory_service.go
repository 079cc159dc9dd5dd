package service

import (
	"context"
	"errors"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/RoyceAzure/lab/retail/internal/pkg/tracing"
	"github.com/rs/zerolog/log"
)

// InventoryService 進貨入庫與庫存查詢
type InventoryService struct {
	store    db.Store
	ledger   *StockLedger
	settings Settings
	options
}

func NewInventoryService(store db.Store, ledger *StockLedger, settings Settings, opts ...Option) *InventoryService {
	return &InventoryService{
		store:    store,
		ledger:   ledger,
		settings: settings,
		options:  buildOptions(opts),
	}
}

func (s *InventoryService) GetEntry(ctx context.Context, storeID, productID int) (entry *model.StoreProduct, err error) {
	ctx, span := tracing.Start(ctx, "InventoryService.GetEntry")
	defer tracing.End(span, &err)

	return s.ledger.Entry(ctx, s.store, storeID, productID)
}

// Receive 入庫：庫存列不存在時以目前應有售價建立，否則累加數量
func (s *InventoryService) Receive(ctx context.Context, storeID, productID, quantity int) (entry *model.StoreProduct, err error) {
	ctx, span := tracing.Start(ctx, "InventoryService.Receive")
	defer tracing.End(span, &err)

	if quantity <= 0 {
		return nil, apperr.New(apperr.ErrValidation, "received quantity must be greater than 0")
	}

	now := s.utcNow()
	err = s.store.ExecTx(ctx, func(q db.Querier) error {
		ok, err := q.StoreExists(ctx, storeID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.New(apperr.ErrNotFound, "store %d does not exist", storeID)
		}
		product, err := q.GetProductByID(ctx, productID)
		if errors.Is(err, db.ErrNotFound) {
			return apperr.New(apperr.ErrProductNotFound, "product %d does not exist", productID)
		}
		if err != nil {
			return err
		}

		if _, err := s.ledger.Adjust(ctx, q, storeID, productID, quantity); err == nil {
			entry, err = s.ledger.Entry(ctx, q, storeID, productID)
			return err
		} else if !errors.Is(err, apperr.ErrNotAvailableInStore) {
			return err
		}

		writer := priceWriter{ledger: s.ledger, statusID: s.settings.Status.Active}
		created, err := writer.currentPrice(ctx, q, storeID, product, now)
		if err != nil {
			return err
		}
		created.Quantity = quantity
		if err := q.CreateStockEntry(ctx, &created); err != nil {
			return err
		}
		entry = &created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("store_id", storeID).Int("product_id", productID).Int("quantity", quantity).Int("on_hand", entry.Quantity).Msg("stock received")
	return entry, nil
}
