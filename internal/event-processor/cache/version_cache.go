package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// VersionCache guarda no Redis a última versão do feed aplicada por evento.
// Reentregas do Kafka (rebalance, restart) chegam com versão antiga e são descartadas.
type VersionCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewVersionCache(c *redis.Client, ttl time.Duration) *VersionCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &VersionCache{Client: c, TTL: ttl}
}

func key(eventID string) string { return "feed:version:" + eventID }

// só avança; versão menor ou igual à guardada não sobrescreve
var advanceScript = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
if tonumber(ARGV[1]) > cur then
	redis.call("SET", KEYS[1], ARGV[1], "EX", ARGV[2])
	return 1
end
return 0
`)

// Seen indica se uma versão igual ou maior já foi aplicada
func (c *VersionCache) Seen(ctx context.Context, eventID string, version int) (bool, error) {
	v, err := c.Client.Get(ctx, key(eventID)).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v >= version, nil
}

// Mark registra a versão aplicada
func (c *VersionCache) Mark(ctx context.Context, eventID string, version int) error {
	ttl := strconv.Itoa(int(c.TTL / time.Second))
	return advanceScript.Run(ctx, c.Client, []string{key(eventID)}, version, ttl).Err()
}
