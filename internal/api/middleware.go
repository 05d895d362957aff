package api

import (
	"strings"
	"sync"
	"time"

	"github.com/Anishkbansal/quantumbalance-sub001/internal/apperr"
	"github.com/Anishkbansal/quantumbalance-sub001/internal/utils"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	localUserID    = "user_id"
	localRequestID = "request_id"
)

func JWTAuth(v *Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		hdr := c.Get("Authorization")
		if hdr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "code": "UNAUTHENTICATED", "message": "missing authorization"})
		}
		parts := strings.SplitN(hdr, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "code": "UNAUTHENTICATED", "message": "invalid authorization"})
		}
		sub, err := v.VerifyToken(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"status": "error", "code": "UNAUTHENTICATED", "message": "invalid token"})
		}
		c.Locals(localUserID, sub)
		return c.Next()
	}
}

func userID(c *fiber.Ctx) string {
	id, _ := c.Locals(localUserID).(string)
	return id
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(localRequestID).(string)
	return id
}

// UserRateLimiter applies a token bucket per authenticated user.
type UserRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.SugaredLogger
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

func NewUserRateLimiter(perMinute, burst int, log *zap.SugaredLogger) *UserRateLimiter {
	if burst <= 0 {
		burst = 5
	}
	l := &UserRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: burst,
		log:   log,
		stop:  make(chan struct{}),
	}
	go l.cleanupVisitors()
	return l
}

func (l *UserRateLimiter) getLimiter(key string) *rate.Limiter {
	v, _ := l.visitors.LoadOrStore(key, &visitor{limiter: rate.NewLimiter(l.rps, l.burst)})
	vi := v.(*visitor)
	vi.mu.Lock()
	vi.lastSeen = time.Now()
	vi.mu.Unlock()
	return vi.limiter
}

func (l *UserRateLimiter) cleanupVisitors() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-t.C:
			cutoff := time.Now().Add(-5 * time.Minute)
			l.visitors.Range(func(k, v interface{}) bool {
				vi := v.(*visitor)
				vi.mu.Lock()
				stale := vi.lastSeen.Before(cutoff)
				vi.mu.Unlock()
				if stale {
					l.visitors.Delete(k)
				}
				return true
			})
		}
	}
}

func (l *UserRateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *UserRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := userID(c)
		if key == "" {
			key = c.IP()
		}
		if !l.getLimiter(key).Allow() {
			l.log.Warnw("rate limit exceeded", "request_id", requestID(c), "user", key, "path", c.Path())
			return utils.JSONError(c, apperr.ErrRateLimited)
		}
		return c.Next()
	}
}
