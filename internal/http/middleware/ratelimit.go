package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"pong_server/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const (
	// cleanupThreshold is the map size at which idle IP entries get pruned.
	cleanupThreshold = 500
	maxIdleAge       = 10 * time.Minute

	redisTimeout = 200 * time.Millisecond
)

var rdb *redis.Client

// InitRedisRateLimiter подключает общий счетчик в Redis. Пустой адрес или
// недоступный Redis: лимит считается в памяти процесса.
func InitRedisRateLimiter(addr, password string, db int) {
	if addr == "" {
		rdb = nil
		logger.Info("rate limiter: in-memory")
		return
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("rate limiter: redis unavailable, using in-memory", "addr", addr, "error", err)
		_ = client.Close()
		rdb = nil
		return
	}
	rdb = client
	logger.Info("rate limiter: redis", "addr", addr)
}

type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter hands out one token bucket per client IP.
type IPRateLimiter struct {
	mu  sync.Mutex
	ips map[string]*ipEntry
	r   rate.Limit
	b   int
}

func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{ips: make(map[string]*ipEntry), r: r, b: b}
}

func (l *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.ips) > cleanupThreshold {
		cutoff := time.Now().Add(-maxIdleAge)
		for k, e := range l.ips {
			if e.lastSeen.Before(cutoff) {
				delete(l.ips, k)
			}
		}
	}

	e, ok := l.ips[ip]
	if !ok {
		e = &ipEntry{limiter: rate.NewLimiter(l.r, l.b)}
		l.ips[ip] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

// RateLimit caps requests per client IP per minute. With Redis the window is
// shared across instances; without it each process counts on its own.
func RateLimit(scope string, perMinute int) gin.HandlerFunc {
	local := NewIPRateLimiter(rate.Limit(float64(perMinute)/60), perMinute)

	return func(c *gin.Context) {
		ip := c.ClientIP()
		allowed, err := allowRedis(c.Request.Context(), scope, ip, perMinute)
		if err != nil {
			if rdb != nil {
				logger.Warn("rate limiter: redis error, falling back", "error", err)
			}
			allowed = local.GetLimiter(ip).Allow()
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

var errNoRedis = errors.New("redis rate limiter not configured")

func allowRedis(ctx context.Context, scope, ip string, perMinute int) (bool, error) {
	if rdb == nil {
		return false, errNoRedis
	}
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	window := time.Now().Unix() / 60
	key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, ip, window)
	n, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		rdb.Expire(ctx, key, time.Minute)
	}
	return n <= int64(perMinute), nil
}

// CORS отражает разрешенный Origin; пустой allowedOrigin пускает любой.
func CORS(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && (allowedOrigin == "" || origin == allowedOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
