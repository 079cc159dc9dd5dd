package memory

import (
	"sort"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
)

type stockKey struct {
	storeID   int
	productID int
}

// state 所有資料表的快照，交易時整份複製
type state struct {
	statuses      map[int]model.Status
	stores        map[int]model.Store
	users         map[int64]model.User
	products      map[int]model.Product
	stock         map[stockKey]model.StoreProduct
	orders        map[int64]*model.Order
	promotions    map[int]*model.Promotion
	notifications map[int64]model.Notification

	orderSeq        int64
	detailSeq       int64
	promotionSeq    int
	notificationSeq int64
}

func newState() *state {
	return &state{
		statuses:      map[int]model.Status{},
		stores:        map[int]model.Store{},
		users:         map[int64]model.User{},
		products:      map[int]model.Product{},
		stock:         map[stockKey]model.StoreProduct{},
		orders:        map[int64]*model.Order{},
		promotions:    map[int]*model.Promotion{},
		notifications: map[int64]model.Notification{},
	}
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func (s *state) clone() *state {
	c := &state{
		statuses:        copyMap(s.statuses),
		stores:          copyMap(s.stores),
		users:           copyMap(s.users),
		products:        copyMap(s.products),
		stock:           copyMap(s.stock),
		orders:          make(map[int64]*model.Order, len(s.orders)),
		promotions:      make(map[int]*model.Promotion, len(s.promotions)),
		notifications:   copyMap(s.notifications),
		orderSeq:        s.orderSeq,
		detailSeq:       s.detailSeq,
		promotionSeq:    s.promotionSeq,
		notificationSeq: s.notificationSeq,
	}
	for id, o := range s.orders {
		c.orders[id] = o.Clone()
	}
	for id, p := range s.promotions {
		c.promotions[id] = p.Clone()
	}
	return c
}

func sortedKeys[K int | int64, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
