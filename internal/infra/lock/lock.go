package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrNotObtained 鎖已被其他持有者取得
var ErrNotObtained = errors.New("lock not obtained")

type Lock interface {
	Release(ctx context.Context) error
}

// Locker 取得具有效期限的互斥鎖，取不到時立即回傳 ErrNotObtained
type Locker interface {
	TryObtain(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// RedisLocker 多個服務實例間共用的鎖
type RedisLocker struct {
	client *redislock.Client
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{client: redislock.New(rdb)}
}

func (l *RedisLocker) TryObtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	lk, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrNotObtained
	}
	if err != nil {
		return nil, err
	}
	return lk, nil
}

// LocalLocker 單一行程內的鎖，沒有 redis 時使用
type LocalLocker struct {
	mu      sync.Mutex
	held    map[string]*localLock
	nowFunc func() time.Time
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: map[string]*localLock{}, nowFunc: time.Now}
}

type localLock struct {
	owner   *LocalLocker
	key     string
	expires time.Time
}

func (l *LocalLocker) TryObtain(ctx context.Context, key string, ttl time.Duration) (Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, ErrNotObtained
	}
	lk := &localLock{owner: l, key: key, expires: now.Add(ttl)}
	l.held[key] = lk
	return lk, nil
}

func (lk *localLock) Release(ctx context.Context) error {
	lk.owner.mu.Lock()
	defer lk.owner.mu.Unlock()
	if cur, ok := lk.owner.held[lk.key]; ok && cur == lk {
		delete(lk.owner.held, lk.key)
	}
	return nil
}

var (
	_ Locker = (*RedisLocker)(nil)
	_ Locker = (*LocalLocker)(nil)
)
