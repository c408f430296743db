package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedTokenKeyPrefix = "auth:token:revoked:"

// RevocationStore 在 Redis 中记录已退出登录的令牌 jti，过期时间与令牌一致。
type RevocationStore struct {
	redis redis.UniversalClient
}

// NewRevocationStore 构造 RevocationStore。
func NewRevocationStore(client redis.UniversalClient) *RevocationStore {
	return &RevocationStore{redis: client}
}

// Revoke 吊销令牌直到 expiresAt。
func (s *RevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if tokenID == "" {
		return nil
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.redis.Set(ctx, revokedTokenKeyPrefix+tokenID, "revoked", ttl).Err()
}

// IsRevoked 判断令牌是否已被吊销。
func (s *RevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := s.redis.Get(ctx, revokedTokenKeyPrefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, err
	}
}
