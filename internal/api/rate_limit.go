package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateCounter 是固定窗口限流需要的 Redis 子集。
type RateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// loginWindowKey 按小时切分登录计数窗口。
func loginWindowKey(ip, email string, now time.Time) string {
	return fmt.Sprintf("rate:login:%s:%s:%s", ip, email, now.UTC().Format("2006010215"))
}

// hitWindow 计数并在窗口首次命中时设置过期。
func hitWindow(ctx context.Context, counter RateCounter, key string, window time.Duration) (int64, error) {
	hits, err := counter.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if hits == 1 {
		if err := counter.Expire(ctx, key, window).Err(); err != nil {
			return hits, err
		}
	}
	return hits, nil
}
