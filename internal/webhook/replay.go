package webhook

import (
	"context"
	"time"

	"callsync/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisReplayGuard claims tokens in Redis with SET NX.
// The TTL must outlive the replay window, otherwise an old token could be replayed
// inside the window after its key expired.
type RedisReplayGuard struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisReplayGuard(rdb *redis.Client, window time.Duration) *RedisReplayGuard {
	if window <= 0 {
		window = DefaultReplayWindow
	}
	return &RedisReplayGuard{rdb: rdb, ttl: 2 * window, prefix: "webhook:token:"}
}

func (g *RedisReplayGuard) Claim(ctx context.Context, token string) (bool, error) {
	return utils.ClaimOnce(ctx, g.rdb, g.prefix+token, g.ttl)
}
