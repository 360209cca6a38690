package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ggjyx4/master-material-Glendon/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cardCacheGenerationKey = "material:cards:gen"

// CardCache 卡片列表缓存。写操作递增代数使旧键失效，nil 或未配置 redis 时不缓存
type CardCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCardCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CardCache {
	return &CardCache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *CardCache) enabled() bool {
	return c != nil && c.rdb != nil && c.ttl > 0
}

func (c *CardCache) key(ctx context.Context, statuses []string) (string, error) {
	gen, err := c.rdb.Get(ctx, cardCacheGenerationKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	sorted := append([]string(nil), statuses...)
	sort.Strings(sorted)
	return fmt.Sprintf("material:cards:%d:%s", gen, strings.Join(sorted, "|")), nil
}

// Get 命中返回 true。未命中时返回本次读取的代数键，回填必须使用该键：
// 读库期间发生的写入会递增代数，旧键上的回填不会再被读到
func (c *CardCache) Get(ctx context.Context, statuses []string) ([]MaterialCard, string, bool) {
	if !c.enabled() {
		return nil, "", false
	}
	key, err := c.key(ctx, statuses)
	if err != nil {
		c.logger.Warn("Card cache unavailable", zap.Error(err))
		metrics.CardCacheLookupsTotal.WithLabelValues("error").Inc()
		return nil, "", false
	}
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Card cache read failed", zap.String("key", key), zap.Error(err))
		}
		metrics.CardCacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, key, false
	}
	var cards []MaterialCard
	if err := json.Unmarshal(raw, &cards); err != nil {
		metrics.CardCacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, key, false
	}
	metrics.CardCacheLookupsTotal.WithLabelValues("hit").Inc()
	return cards, key, true
}

// Set 回填 Get 未命中时返回的键，空键不写
func (c *CardCache) Set(ctx context.Context, key string, cards []MaterialCard) {
	if !c.enabled() || key == "" {
		return
	}
	raw, err := json.Marshal(cards)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Card cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate 递增代数
func (c *CardCache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, cardCacheGenerationKey).Err(); err != nil {
		c.logger.Warn("Card cache invalidation failed", zap.Error(err))
	}
}
