package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"backtest-core/internal/monitor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const limiterIdleTTL = 5 * time.Minute

type ipLimiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter hands out one token bucket per client IP and forgets IPs that
// have been idle for limiterIdleTTL.
type ipLimiter struct {
	mu        sync.Mutex
	rps       rate.Limit
	burst     int
	entries   map[string]*ipLimiterEntry
	lastSweep time.Time
}

func newIPLimiter(rps float64, burst int) *ipLimiter {
	return &ipLimiter{
		rps:     rate.Limit(rps),
		burst:   burst,
		entries: make(map[string]*ipLimiterEntry),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastSweep) > limiterIdleTTL {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[ip]
	if !ok {
		e = &ipLimiterEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.entries[ip] = e
	}
	e.lastSeen = now
	return e.limiter.Allow()
}

// CORSMiddleware handles Cross-Origin Resource Sharing
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequestIDMiddleware adds unique request ID for tracking
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("RequestID", requestID)
		c.Writer.Header().Set("X-Request-ID", requestID)
		c.Next()
	}
}

// RateLimitMiddleware rejects clients that exceed their per-IP budget.
func RateLimitMiddleware(l *ipLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !l.allow(ip) {
			log.Printf("[RATE_LIMIT] IP %s exceeded rate limit", ip)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":  "RATE_LIMITED",
				"error": "too many requests, please slow down",
			})
			return
		}
		c.Next()
	}
}

// TimeoutMiddleware puts a deadline on the request context. Handlers that
// stop early because of it get a 408 if they have not written a response.
func TimeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			log.Printf("[TIMEOUT] Request timeout: %s %s", c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{
				"code":  "REQUEST_TIMEOUT",
				"error": "request took too long to process",
			})
		}
	}
}

// RequestLogger logs all API requests with timing and status; optionally records metrics.
func RequestLogger(metrics *monitor.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		if metrics != nil {
			metrics.ObserveRequest(latency, status)
		}

		subject := CurrentSubject(c)
		if subject == "" {
			subject = "-"
		}
		log.Printf("[API] %s | %s %s | %d | %v | %s | %s",
			shortID(c.GetString("RequestID")),
			method,
			path,
			status,
			latency,
			c.ClientIP(),
			subject,
		)
	}
}

func shortID(id string) string {
	switch {
	case id == "":
		return "unknown"
	case len(id) > 8:
		return id[:8]
	default:
		return id
	}
}
