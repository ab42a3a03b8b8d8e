package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// 商品詳細のread cache。正のデータはあくまでDB側で、
// チェックアウトの検証には絶対に使わないこと。
type ProductCache struct {
	rdb *redis.Client
}

func NewProductCache(rdb *redis.Client) *ProductCache {
	return &ProductCache{rdb: rdb}
}

func (c *ProductCache) GetDetail(ctx context.Context, productID int64) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, fmt.Sprintf(KeyProductDetail, productID)).Bytes()
	if err != nil {
		//redis.Nilも通信エラーもcache missとして扱う
		return nil, false
	}
	return b, true
}

func (c *ProductCache) SetDetail(ctx context.Context, productID int64, body []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Set(ctx, fmt.Sprintf(KeyProductDetail, productID), body, TTLProductDetail).Err()
}

func (c *ProductCache) Invalidate(ctx context.Context, productID int64) {
	if c == nil || c.rdb == nil {
		return
	}
	_ = c.rdb.Del(ctx, fmt.Sprintf(KeyProductDetail, productID)).Err()
}
