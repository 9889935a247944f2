package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"telegram_consult_bot/pkg/logger"
)

// TokenBucket реализует алгоритм Token Bucket
type TokenBucket struct {
	capacity   int
	tokens     int
	refillRate int // токенов в секунду
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket создает новый TokenBucket
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow проверяет, доступен ли токен
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int(elapsed.Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// RateLimiter ограничивает частоту запросов по ключу (IP или chat_id)
type RateLimiter struct {
	limiters   map[string]*TokenBucket
	lastAccess map[string]time.Time
	mu         sync.Mutex
	capacity   int
	refillRate int
	logger     *logger.Logger

	done chan struct{}
}

// NewRateLimiter создает rate limiter: requests запросов за duration на ключ
func NewRateLimiter(requests int, duration time.Duration, log *logger.Logger) *RateLimiter {
	refillRate := int(float64(requests) / duration.Seconds())
	if refillRate == 0 {
		refillRate = 1
	}

	rl := &RateLimiter{
		limiters:   make(map[string]*TokenBucket),
		lastAccess: make(map[string]time.Time),
		capacity:   requests,
		refillRate: refillRate,
		logger:     log,
		done:       make(chan struct{}),
	}

	go rl.cleanupRoutine()

	return rl
}

// Allow проверяет, разрешен ли запрос для данного ключа
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	limiter, ok := rl.limiters[key]
	if !ok {
		limiter = NewTokenBucket(rl.capacity, rl.refillRate)
		rl.limiters[key] = limiter
	}
	rl.lastAccess[key] = time.Now()
	rl.mu.Unlock()

	return limiter.Allow()
}

// AllowChat — вариант Allow для Telegram chat_id
func (rl *RateLimiter) AllowChat(chatID int64) bool {
	return rl.Allow("chat_" + strconv.FormatInt(chatID, 10))
}

// cleanupRoutine периодически удаляет давно не использовавшиеся limiters
func (rl *RateLimiter) cleanupRoutine() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	var cleaned int

	for key, last := range rl.lastAccess {
		if last.Before(cutoff) {
			delete(rl.limiters, key)
			delete(rl.lastAccess, key)
			cleaned++
		}
	}

	if cleaned > 0 && rl.logger != nil {
		rl.logger.Debug("cleaned up rate limiters",
			logger.Int("cleaned", cleaned),
			logger.Int("remaining", len(rl.limiters)),
		)
	}
}

// Close останавливает cleanup routine
func (rl *RateLimiter) Close() {
	close(rl.done)
}

// HTTPRateLimit создает HTTP middleware, ограничивающий запросы по IP
func HTTPRateLimit(limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := realIP(r)

			if !limiter.Allow(key) {
				if limiter.logger != nil {
					limiter.logger.Warn("rate limit exceeded",
						logger.String("ip", key),
					)
				}
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// realIP извлекает клиентский IP с учетом прокси-заголовков
func realIP(r *http.Request) string {
	headers := []string{
		"CF-Connecting-IP",
		"X-Forwarded-For",
		"X-Real-IP",
	}

	for _, header := range headers {
		ip := r.Header.Get(header)
		if ip == "" {
			continue
		}
		// X-Forwarded-For может содержать цепочку адресов
		if header == "X-Forwarded-For" {
			if idx := strings.IndexByte(ip, ','); idx >= 0 {
				ip = ip[:idx]
			}
		}
		return strings.TrimSpace(ip)
	}

	return r.RemoteAddr
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
