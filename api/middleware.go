package api

import (
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/killallgit/route-planner-api/api/types"
	"github.com/killallgit/route-planner-api/pkg/config"
	apperrors "github.com/killallgit/route-planner-api/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	limiterCleanupInterval = 5 * time.Minute
	limiterIdleTimeout     = 10 * time.Minute
)

// CORS builds the CORS middleware from the security settings
func CORS(sec config.SecurityConfig) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods: sec.CORSMethods,
		AllowHeaders: sec.CORSHeaders,
		MaxAge:       24 * time.Hour,
	}
	if len(cfg.AllowMethods) == 0 {
		cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}
	}
	if len(cfg.AllowHeaders) == 0 {
		cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	}

	origins := sec.CORSOrigins
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

// RequestSizeLimit caps request bodies at 1 MB
func RequestSizeLimit() gin.HandlerFunc {
	return RequestSizeLimitWithSize(1024 * 1024)
}

func RequestSizeLimitWithSize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodPost ||
			c.Request.Method == http.MethodPut ||
			c.Request.Method == http.MethodPatch {
			if c.Request.ContentLength > maxBytes {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
					Status:  types.StatusError,
					Message: "Request body too large",
					Error:   string(apperrors.ErrCodeValidation),
				})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}

// clientLimiter holds a rate limiter and its last accessed time
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// RateLimiter keeps one token bucket per endpoint group and client IP
type RateLimiter struct {
	limiters sync.Map
	stop     chan struct{}
	start    sync.Once
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter; its cleanup loop starts with the
// first middleware
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{stop: make(chan struct{})}
}

// PerClientRateLimit limits each client IP to limit.RPS requests per second
// with limit.Burst allowance. Buckets are separate per name.
func (rl *RateLimiter) PerClientRateLimit(name string, limit config.EndpointLimit) gin.HandlerFunc {
	rl.start.Do(func() {
		go rl.cleanup(limiterCleanupInterval, limiterIdleTimeout)
	})

	rps, burst := limit.RPS, limit.Burst
	if rps <= 0 {
		rps = 10
	}
	if burst <= 0 {
		burst = rps
	}

	return func(c *gin.Context) {
		key := name + "|" + c.ClientIP()

		v, ok := rl.limiters.Load(key)
		if !ok {
			fresh := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			v, _ = rl.limiters.LoadOrStore(key, fresh)
		}
		cl := v.(*clientLimiter)
		cl.lastSeen.Store(time.Now().UnixNano())

		if !cl.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "Rate limit exceeded. Please slow down your requests.",
				Error:   string(apperrors.ErrCodeAPIRateLimit),
			})
			return
		}
		c.Next()
	}
}

// Stop ends the cleanup loop
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanup(interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.evictIdle(time.Now(), idle)
		case <-rl.stop:
			return
		}
	}
}

func (rl *RateLimiter) evictIdle(now time.Time, idle time.Duration) {
	rl.limiters.Range(func(key, value any) bool {
		cl := value.(*clientLimiter)
		if now.Sub(time.Unix(0, cl.lastSeen.Load())) > idle {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// RequestLogger logs one line per request
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			log.Error("request", attrs...)
		case status >= http.StatusBadRequest:
			log.Warn("request", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}

// Recovery turns panics into a 500 and logs them
func Recovery(log *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic recovered", "panic", recovered, "path", c.Request.URL.Path)
		c.AbortWithStatusJSON(http.StatusInternalServerError, types.ErrorResponse{
			Status:  types.StatusError,
			Message: "Internal server error",
			Error:   string(apperrors.ErrCodeInternal),
		})
	})
}
