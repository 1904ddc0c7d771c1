package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationList tracks revoked token IDs in Redis. Entries expire with
// the token itself, so the set stays bounded by the token TTL.
type RevocationList struct {
	rdb *redis.Client
}

func NewRevocationList(rdb *redis.Client) *RevocationList {
	return &RevocationList{rdb: rdb}
}

// Revoke marks a token ID as revoked for the given remaining lifetime.
func (l *RevocationList) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return l.rdb.Set(ctx, "revoked:"+tokenID, "1", ttl).Err()
}

// IsRevoked reports whether a token ID has been revoked.
func (l *RevocationList) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	_, err := l.rdb.Get(ctx, "revoked:"+tokenID).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
