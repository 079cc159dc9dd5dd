package redis_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/RoyceAzure/lab/retail/internal/domain/model"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	// ErrExceedsAvailable 合併後數量超過可用庫存，購物車不變
	ErrExceedsAvailable = errors.New("cart quantity exceeds available stock")
)

// ICartRepository 購物車儲存，一個客戶一台購物車，每個商品最多一筆明細
type ICartRepository interface {
	Get(ctx context.Context, customerID int64) (*model.Cart, error)
	// AddItem 原子地合併同商品數量，合併後超過 maxQuantity 時回傳 ErrExceedsAvailable
	AddItem(ctx context.Context, customerID int64, productID, quantity, maxQuantity int, unitPrice decimal.Decimal) (*model.CartItem, error)
	// SetQuantity 覆蓋數量，單價維持原快照
	SetQuantity(ctx context.Context, customerID, itemID int64, quantity int) (*model.CartItem, error)
	DeleteItem(ctx context.Context, customerID int64, itemID int64) error
	Clear(ctx context.Context, customerID int64) error
}

const cartItemSeqKey = "cart:item:seq"

// 購物車階段 只會寫入到redis
type CartRepo struct {
	CartCache *redis.Client
}

func NewCartRepo(cartCache *redis.Client) *CartRepo {
	return &CartRepo{CartCache: cartCache}
}

// items hash 以商品 id 為 field
func generateCartItemKey(customerID int64) string {
	return fmt.Sprintf("cart:%d:items", customerID)
}

func generateCartMetaKey(customerID int64) string {
	return fmt.Sprintf("cart:%d:meta", customerID)
}

// ids hash: 明細 id -> 商品 id
func generateCartIndexKey(customerID int64) string {
	return fmt.Sprintf("cart:%d:ids", customerID)
}

type cartItemRecord struct {
	ID        int64           `json:"id"`
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (rec cartItemRecord) toItem() *model.CartItem {
	return &model.CartItem{ID: rec.ID, ProductID: rec.ProductID, Quantity: rec.Quantity, UnitPrice: rec.UnitPrice}
}

// 合併與庫存上限檢查在同一個腳本內完成
// 回傳 {0, record} 或 {-2, 合併後數量}
var addItemScript = redis.NewScript(`
	local raw = redis.call('HGET', KEYS[2], ARGV[3])
	local id
	local qty = tonumber(ARGV[4])
	if raw then
		local rec = cjson.decode(raw)
		id = rec.id
		qty = qty + rec.quantity
	end
	if qty > tonumber(ARGV[5]) then
		return {-2, qty}
	end
	if not id then
		id = redis.call('INCR', KEYS[4])
		redis.call('HSET', KEYS[3], id, ARGV[3])
	end
	redis.call('HSETNX', KEYS[1], 'customer_id', ARGV[1])
	redis.call('HSETNX', KEYS[1], 'created_at', ARGV[2])
	local out = cjson.encode({id = id, product_id = tonumber(ARGV[3]), quantity = qty, unit_price = ARGV[6]})
	redis.call('HSET', KEYS[2], ARGV[3], out)
	return {0, out}
`)

var setQuantityScript = redis.NewScript(`
	local pid = redis.call('HGET', KEYS[1], ARGV[1])
	if not pid then
		return false
	end
	local raw = redis.call('HGET', KEYS[2], pid)
	if not raw then
		return false
	end
	local rec = cjson.decode(raw)
	rec.quantity = tonumber(ARGV[2])
	local out = cjson.encode(rec)
	redis.call('HSET', KEYS[2], pid, out)
	return out
`)

var deleteItemScript = redis.NewScript(`
	local pid = redis.call('HGET', KEYS[1], ARGV[1])
	if pid then
		redis.call('HDEL', KEYS[2], pid)
		redis.call('HDEL', KEYS[1], ARGV[1])
	end
	return 1
`)

// Get 區域性取購物車資訊，明細依 id 排序
func (r *CartRepo) Get(ctx context.Context, customerID int64) (*model.Cart, error) {
	metaKey := generateCartMetaKey(customerID)
	itemsKey := generateCartItemKey(customerID)

	// 獲取元資料
	createdAt, err := r.CartCache.HGet(ctx, metaKey, "created_at").Int64()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: customer %d", ErrCartNotFound, customerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart meta: %w", err)
	}

	// 獲取商品列表
	items, err := r.CartCache.HGetAll(ctx, itemsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}

	cart := &model.Cart{
		CustomerID: customerID,
		CreatedAt:  time.UnixMilli(createdAt).UTC(),
		Items:      make([]model.CartItem, 0, len(items)),
	}
	for productID, raw := range items {
		rec, err := decodeCartItem(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid cart item for product %s: %w", productID, err)
		}
		cart.Items = append(cart.Items, *rec.toItem())
	}
	sort.Slice(cart.Items, func(i, j int) bool { return cart.Items[i].ID < cart.Items[j].ID })
	return cart, nil
}

func (r *CartRepo) AddItem(ctx context.Context, customerID int64, productID, quantity, maxQuantity int, unitPrice decimal.Decimal) (*model.CartItem, error) {
	keys := []string{
		generateCartMetaKey(customerID),
		generateCartItemKey(customerID),
		generateCartIndexKey(customerID),
		cartItemSeqKey,
	}
	res, err := addItemScript.Run(ctx, r.CartCache, keys,
		customerID,
		time.Now().UnixMilli(),
		productID,
		quantity,
		maxQuantity,
		unitPrice.String(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected add cart item result: %v", res)
	}

	// 處理返回值
	if code, _ := res[0].(int64); code == -2 {
		merged, _ := res[1].(int64)
		return nil, fmt.Errorf("%w: product %d would hold %d, only %d available", ErrExceedsAvailable, productID, merged, maxQuantity)
	}
	raw, ok := res[1].(string)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", res[1])
	}
	rec, err := decodeCartItem(raw)
	if err != nil {
		return nil, err
	}
	return rec.toItem(), nil
}

func (r *CartRepo) SetQuantity(ctx context.Context, customerID, itemID int64, quantity int) (*model.CartItem, error) {
	keys := []string{generateCartIndexKey(customerID), generateCartItemKey(customerID)}
	raw, err := setQuantityScript.Run(ctx, r.CartCache, keys, itemID, quantity).Text()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: item %d", ErrCartItemNotFound, itemID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update cart item: %w", err)
	}
	rec, err := decodeCartItem(raw)
	if err != nil {
		return nil, err
	}
	return rec.toItem(), nil
}

// DeleteItem 從購物車中刪除指定明細，不存在時不視為錯誤
func (r *CartRepo) DeleteItem(ctx context.Context, customerID int64, itemID int64) error {
	keys := []string{generateCartIndexKey(customerID), generateCartItemKey(customerID)}
	if err := deleteItemScript.Run(ctx, r.CartCache, keys, itemID).Err(); err != nil {
		return fmt.Errorf("failed to delete item from cart: %w", err)
	}
	return nil
}

// Clear 清空購物車
func (r *CartRepo) Clear(ctx context.Context, customerID int64) error {
	err := r.CartCache.Del(ctx,
		generateCartItemKey(customerID),
		generateCartMetaKey(customerID),
		generateCartIndexKey(customerID),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// cjson 會把整數編成數字，單價維持字串
func decodeCartItem(raw string) (cartItemRecord, error) {
	var rec cartItemRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return rec, fmt.Errorf("invalid cart item %q: %w", raw, err)
	}
	return rec, nil
}

var _ ICartRepository = (*CartRepo)(nil)
