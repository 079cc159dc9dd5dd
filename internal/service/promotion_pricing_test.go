package service

import (
	"testing"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountedPrice(t *testing.T) {
	tests := []struct {
		name     string
		original string
		percent  string
		want     string
	}{
		{name: "whole percent", original: "100", percent: "20", want: "80.00"},
		{name: "cents", original: "19.99", percent: "15", want: "16.99"},
		{name: "half rounds to even", original: "0.25", percent: "50", want: "0.12"},
		{name: "free", original: "250", percent: "100", want: "0.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := model.DiscountedPrice(money(tt.original), money(tt.percent))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestDiscountedPriceDoesNotCompound(t *testing.T) {
	once := model.DiscountedPrice(money("100"), money("10"))
	again := model.DiscountedPrice(money("100"), money("10"))
	assert.True(t, once.Equal(again))
}

func TestInWindowIsInclusive(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)
	p := &model.Promotion{StartDate: start, EndDate: end}

	assert.True(t, p.InWindow(start))
	assert.True(t, p.InWindow(end))
	assert.False(t, p.InWindow(start.Add(-time.Second)))
	assert.False(t, p.InWindow(end.Add(time.Second)))
}

func TestPairsOfAndSubtract(t *testing.T) {
	prev := &model.Promotion{
		Stores:   []model.PromotionStore{{StoreID: storeTaipei}, {StoreID: storeTainan}},
		Products: []model.PromotionProduct{{ProductID: productRunner}, {ProductID: productJacket}},
	}
	next := &model.Promotion{
		Stores:   []model.PromotionStore{{StoreID: storeTaipei}},
		Products: []model.PromotionProduct{{ProductID: productRunner}},
	}

	require.Len(t, pairsOf(prev), 4)
	removed := subtractPairs(pairsOf(prev), pairsOf(next))
	assert.ElementsMatch(t, []pricePair{
		{storeID: storeTaipei, productID: productJacket},
		{storeID: storeTainan, productID: productRunner},
		{storeID: storeTainan, productID: productJacket},
	}, removed)
	assert.Empty(t, subtractPairs(pairsOf(next), pairsOf(prev)))
}
