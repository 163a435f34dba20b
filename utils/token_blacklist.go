package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const blacklistPrefix = "gymkit:jwt:blacklist:"

// BlacklistToken revokes a JWT until it would have expired anyway.
// Best effort: with Redis down, logout silently degrades to client-side only.
func BlacklistToken(token string, ttl time.Duration) {
	rc := GetRedis()
	if rc == nil || ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = rc.Set(ctx, blacklistPrefix+tokenKey(token), 1, ttl).Err()
}

// IsTokenBlacklisted reports whether the token was revoked by logout.
func IsTokenBlacklisted(token string) bool {
	rc := GetRedis()
	if rc == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := rc.Exists(ctx, blacklistPrefix+tokenKey(token)).Result()
	return err == nil && n > 0
}

func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
