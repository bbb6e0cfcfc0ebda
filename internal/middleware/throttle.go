package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// UserThrottle 为每个认证用户维护一个令牌桶，限制分享等写操作的频率
type UserThrottle struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perMinute int
	burst     int
	ttl       time.Duration
	now       func() time.Time
}

// NewUserThrottle 创建限流器。perMinute 为每分钟允许的请求数，
// 超过 ttl 没有请求的用户会在 Cleanup 中被移除。
func NewUserThrottle(perMinute, burst int, ttl time.Duration) *UserThrottle {
	if perMinute <= 0 {
		perMinute = 20
	}
	if burst <= 0 {
		burst = 5
	}
	return &UserThrottle{
		visitors:  make(map[string]*visitor),
		perMinute: perMinute,
		burst:     burst,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (t *UserThrottle) limiter(key string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	if v, ok := t.visitors[key]; ok {
		v.lastSeen = t.now()
		return v.limiter
	}
	l := rate.NewLimiter(rate.Limit(float64(t.perMinute)/60.0), t.burst)
	t.visitors[key] = &visitor{limiter: l, lastSeen: t.now()}
	return l
}

// Allow 消耗 key 的一个令牌
func (t *UserThrottle) Allow(key string) bool {
	return t.limiter(key).Allow()
}

// Cleanup 移除长时间不活跃的用户
func (t *UserThrottle) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, v := range t.visitors {
		if t.now().Sub(v.lastSeen) > t.ttl {
			delete(t.visitors, key)
		}
	}
}

// RunCleanup 每分钟清理一次，直到 ctx 取消
func (t *UserThrottle) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.Cleanup()
		}
	}
}

// Throttle 返回按当前用户 email 限流的中间件，必须挂在 Auth 之后
func Throttle(t *UserThrottle) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ContextEmailKey)
		if key == "" {
			key = c.ClientIP()
		}
		if !t.Allow(key) {
			logrus.WithField("email", key).Warn("Throttle: Too many share requests")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please try again later"})
			return
		}
		c.Next()
	}
}
