package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/RoyceAzure/lab/retail/internal/infra/repository/db"
	"github.com/RoyceAzure/lab/retail/internal/pkg/apperr"
	"github.com/shopspring/decimal"
)

// pricePair 一個 (store, product) 組合
type pricePair struct {
	storeID   int
	productID int
}

// pairsOf 促銷的門市 × 商品
func pairsOf(p *model.Promotion) []pricePair {
	pairs := make([]pricePair, 0, len(p.Stores)*len(p.Products))
	for _, s := range p.Stores {
		for _, pp := range p.Products {
			pairs = append(pairs, pricePair{storeID: s.StoreID, productID: pp.ProductID})
		}
	}
	return pairs
}

// subtractPairs 回傳在 a 但不在 b 的組合
func subtractPairs(a, b []pricePair) []pricePair {
	keep := make(map[pricePair]struct{}, len(b))
	for _, p := range b {
		keep[p] = struct{}{}
	}
	var out []pricePair
	for _, p := range a {
		if _, ok := keep[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// priceWriter 負責把促銷決策寫進庫存帳售價
type priceWriter struct {
	ledger   *StockLedger
	statusID int
}

// apply 將促銷折扣套到所有組合，一律從原價計算
func (w priceWriter) apply(ctx context.Context, q db.Querier, p *model.Promotion, products map[int]model.Product) (int, error) {
	written := 0
	for _, s := range p.Stores {
		for _, pp := range p.Products {
			product, ok := products[pp.ProductID]
			if !ok {
				continue
			}
			price := model.DiscountedPrice(product.OriginalPrice, pp.DiscountPercent)
			ok, err := w.write(ctx, q, s.StoreID, pp.ProductID, price)
			if err != nil {
				return written, err
			}
			if ok {
				written++
			}
		}
	}
	return written, nil
}

// restore 重新決定組合的售價：其他生效中促銷的折扣價，否則原價
func (w priceWriter) restore(ctx context.Context, q db.Querier, pairs []pricePair, excludeID int, now time.Time) (int, error) {
	if len(pairs) == 0 {
		return 0, nil
	}

	storeSet := map[int]struct{}{}
	productSet := map[int]struct{}{}
	for _, p := range pairs {
		storeSet[p.storeID] = struct{}{}
		productSet[p.productID] = struct{}{}
	}
	storeIDs := setToSortedSlice(storeSet)
	productIDs := setToSortedSlice(productSet)

	others, err := q.ListActivePromotions(ctx, storeIDs, excludeID, w.statusID, now)
	if err != nil {
		return 0, err
	}
	byStore := map[int]*model.Promotion{}
	for i := range others {
		for _, s := range others[i].Stores {
			if _, taken := byStore[s.StoreID]; !taken {
				byStore[s.StoreID] = &others[i]
			}
		}
	}

	products, err := q.GetProductsByIDs(ctx, productIDs)
	if err != nil {
		return 0, err
	}

	written := 0
	for _, pair := range pairs {
		product, ok := products[pair.productID]
		if !ok {
			continue
		}
		price := product.OriginalPrice
		if other, ok := byStore[pair.storeID]; ok {
			if pct, ok := other.Discount(pair.productID); ok {
				price = model.DiscountedPrice(product.OriginalPrice, pct)
			}
		}
		ok, err := w.write(ctx, q, pair.storeID, pair.productID, price)
		if err != nil {
			return written, err
		}
		if ok {
			written++
		}
	}
	return written, nil
}

// write 門市未進貨該商品時略過，不計入寫入數
func (w priceWriter) write(ctx context.Context, q db.Querier, storeID, productID int, price decimal.Decimal) (bool, error) {
	err := w.ledger.SetSalePrice(ctx, q, storeID, productID, price)
	if errors.Is(err, apperr.ErrNotAvailableInStore) {
		return false, nil
	}
	return err == nil, err
}

// currentPrice 新建庫存列時使用的售價
func (w priceWriter) currentPrice(ctx context.Context, q db.Querier, storeID int, product *model.Product, now time.Time) (model.StoreProduct, error) {
	entry := model.StoreProduct{StoreID: storeID, ProductID: product.ID, SalePrice: product.OriginalPrice}
	others, err := q.ListActivePromotions(ctx, []int{storeID}, 0, w.statusID, now)
	if err != nil {
		return entry, err
	}
	for i := range others {
		if pct, ok := others[i].Discount(product.ID); ok {
			entry.SalePrice = model.DiscountedPrice(product.OriginalPrice, pct)
			break
		}
	}
	return entry, nil
}

func setToSortedSlice(set map[int]struct{}) []int {
	out := make([]int, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}
