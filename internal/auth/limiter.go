package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles login attempts per email/address pair using a
// fixed redis window. It fails open on redis errors so an unavailable cache
// never locks everyone out.
type LoginLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

// NewLoginLimiter constructs a limiter allowing limit attempts per window.
func NewLoginLimiter(client *redis.Client, limit int64, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, limit: limit, window: window}
}

// Allow reports whether another attempt for the given email and remote
// address is within the window budget.
func (l *LoginLimiter) Allow(ctx context.Context, email, addr string) (bool, error) {
	if l == nil || l.client == nil {
		return true, nil
	}
	key := fmt.Sprintf("login_attempts:%s:%s", strings.ToLower(strings.TrimSpace(email)), addr)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return true, err
		}
	}
	return count <= l.limit, nil
}

// Reset clears the attempt counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email, addr string) {
	if l == nil || l.client == nil {
		return
	}
	key := fmt.Sprintf("login_attempts:%s:%s", strings.ToLower(strings.TrimSpace(email)), addr)
	_ = l.client.Del(ctx, key).Err()
}
