package middleware

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
	"golang.org/x/time/rate"
)

type LimitConfig struct {
	Limit int
}

type LimitOption func(*LimitConfig)

func WithLimit(limit int) LimitOption {
	return func(c *LimitConfig) {
		if limit > 0 {
			c.Limit = limit
		}
	}
}

// KeyedLimiter 按 key 维护令牌桶，Limit 代表每分钟允许的数量
type KeyedLimiter struct {
	limiters cmap.ConcurrentMap[string, *rate.Limiter]
}

func NewKeyedLimiter() *KeyedLimiter {
	return &KeyedLimiter{
		limiters: cmap.New[*rate.Limiter](),
	}
}

func (k *KeyedLimiter) Get(key string, opts ...LimitOption) *rate.Limiter {
	if l, exist := k.limiters.Get(key); exist {
		return l
	}

	cfg := &LimitConfig{
		Limit: 60,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	limit := rate.Every(time.Minute / time.Duration(cfg.Limit))
	k.limiters.SetIfAbsent(key, rate.NewLimiter(limit, cfg.Limit*2))
	l, _ := k.limiters.Get(key)
	return l
}
