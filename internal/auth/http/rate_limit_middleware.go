package http

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	authDomain "github.com/allisson/vaultfs/internal/auth/domain"
	authUseCase "github.com/allisson/vaultfs/internal/auth/usecase"
	apperrors "github.com/allisson/vaultfs/internal/errors"
	"github.com/allisson/vaultfs/internal/httputil"
)

// RateClass configures one logical token bucket class.
//
// Buckets for register/login key on client IP, not user handle, so the
// limiter cannot be used as a username-enumeration oracle. The per-file
// download class appends the file id to the key.
type RateClass struct {
	Name  string
	Limit rate.Limit
	Burst int
}

// Spec'd rate classes. Interval-style limits are expressed as token refill
// rates: "2 per 12h" refills one token every 6h with burst 2, which admits
// the same steady-state traffic.
var (
	ClassRegister       = RateClass{Name: "register", Limit: rate.Every(6 * time.Hour), Burst: 2}
	ClassLogin          = RateClass{Name: "login", Limit: rate.Every(12 * time.Hour / 5), Burst: 5}
	ClassPasswordChange = RateClass{Name: "password_change", Limit: rate.Every(12 * time.Hour), Burst: 2}
	ClassDownload       = RateClass{Name: "download", Limit: rate.Every(8 * time.Hour), Burst: 3}
)

// GeneralClass builds the general protected-route class from configuration.
func GeneralClass(perSec float64, burst int) RateClass {
	return RateClass{Name: "general", Limit: rate.Limit(perSec), Burst: burst}
}

// rateLimiterEntry holds a rate limiter and last access time for cleanup.
type rateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// RateLimiterStore holds per-key token buckets for one class with automatic
// cleanup of stale entries. Buckets are in-process; they reset on restart.
type RateLimiterStore struct {
	class    RateClass
	limiters sync.Map // map[string]*rateLimiterEntry
}

// NewRateLimiterStore creates a store for a class and starts the stale-entry
// cleanup goroutine bound to ctx.
func NewRateLimiterStore(ctx context.Context, class RateClass) *RateLimiterStore {
	store := &RateLimiterStore{class: class}
	go store.cleanupStale(ctx, 5*time.Minute)
	return store
}

// Allow reports whether the bucket for key admits one more request.
func (s *RateLimiterStore) Allow(key string) bool {
	return s.getLimiter(key).Allow()
}

// RetryAfter estimates the delay until the bucket for key refills.
func (s *RateLimiterStore) RetryAfter(key string) time.Duration {
	limiter := s.getLimiter(key)
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return delay
}

// getLimiter retrieves or creates the bucket for a key.
func (s *RateLimiterStore) getLimiter(key string) *rate.Limiter {
	if val, ok := s.limiters.Load(key); ok {
		entry := val.(*rateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = time.Now()
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &rateLimiterEntry{
		limiter:    rate.NewLimiter(s.class.Limit, s.class.Burst),
		lastAccess: time.Now(),
	}
	actual, _ := s.limiters.LoadOrStore(key, entry)
	return actual.(*rateLimiterEntry).limiter
}

// cleanupStale removes buckets that have been idle long enough to be full
// again, preventing unbounded memory growth.
func (s *RateLimiterStore) cleanupStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// A bucket idle past its full refill window behaves like a fresh one.
	idleWindow := time.Duration(float64(s.class.Burst)/float64(s.class.Limit)) * time.Second
	if idleWindow < time.Hour {
		idleWindow = time.Hour
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			threshold := time.Now().Add(-idleWindow)
			s.limiters.Range(func(key, value interface{}) bool {
				entry := value.(*rateLimiterEntry)
				entry.mu.Lock()
				shouldDelete := entry.lastAccess.Before(threshold)
				entry.mu.Unlock()

				if shouldDelete {
					s.limiters.Delete(key)
				}
				return true
			})
		}
	}
}

// RateLimitMiddleware enforces a class's bucket keyed by client IP.
// keyFn may extend the key (e.g. with the file id for per-file download
// limits); pass nil to key on IP alone. Rejections return 429 with a
// Retry-After header and are recorded as audit events.
func RateLimitMiddleware(
	store *RateLimiterStore,
	keyFn func(c *gin.Context) string,
	auditLog authUseCase.AuditLogUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if keyFn != nil {
			key = key + ":" + keyFn(c)
		}

		if !store.Allow(key) {
			retryAfter := int(store.RetryAfter(key).Seconds())

			logger.Debug("rate limit exceeded",
				slog.String("class", store.class.Name),
				slog.String("key", key),
				slog.Int("retry_after", retryAfter))

			if auditLog != nil {
				auditLog.Record(c.Request.Context(), authUseCase.AuditEvent{
					Action:       authDomain.ActionRateLimited,
					IP:           c.ClientIP(),
					UserAgent:    c.Request.UserAgent(),
					ResourceType: "rate_class",
					ResourceID:   store.class.Name,
					Status:       authDomain.StatusFailure,
				})
			}

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			httputil.HandleErrorGin(c, apperrors.ErrRateLimited, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
