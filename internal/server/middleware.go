package server

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hyperdeck/bridge/internal/safety"
)

// AuthMiddleware gates /api behind the two accepted credentials.
func AuthMiddleware(auth *AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authentication required",
			})
			return
		}

		// API key first, session token second
		if auth.ValidateAPIKey(token) {
			c.Set("auth_method", "api_key")
			c.Next()
			return
		}

		claims, err := auth.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid credentials",
			})
			return
		}

		c.Set("auth_method", "session")
		c.Set("auth_scope", claims.Scope)
		c.Next()
	}
}

// maxTrackedClients bounds the per-client window map; idle clients are
// evicted once the bound is reached.
const maxTrackedClients = 1024

type clientWindow struct {
	limiter  *safety.Limiter
	lastSeen time.Time
}

// RateLimiter gives each client its own sliding window, using the same
// window mechanics as the command-level safety limiter.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
	max     int
	window  time.Duration
}

// NewRateLimiter creates a per-client limiter with a one second window.
func NewRateLimiter(requestsPerSecond int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*clientWindow),
		max:     requestsPerSecond,
		window:  time.Second,
	}
}

// Allow records one request for key and reports whether it fits in the
// client's window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cw, ok := rl.clients[key]
	if !ok {
		if len(rl.clients) >= maxTrackedClients {
			rl.evictIdle()
		}
		cw = &clientWindow{limiter: safety.NewLimiter(rl.max, rl.window)}
		rl.clients[key] = cw
	}
	cw.lastSeen = time.Now()
	return cw.limiter.Allow()
}

// evictIdle drops clients that have been quiet for a full window.
// Caller holds the lock.
func (rl *RateLimiter) evictIdle() {
	cutoff := time.Now().Add(-rl.window)
	for key, cw := range rl.clients {
		if cw.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}

// RateLimitMiddleware rejects clients that exceed their window.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

// LoggerMiddleware writes one line per request. Invoke and send
// requests include the channel so the access log lines up with the
// safety filter's verdict log.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		authMethod := c.GetString("auth_method")
		if authMethod == "" {
			authMethod = "none"
		}

		suffix := ""
		if channel := c.Param("channel"); channel != "" {
			suffix = " channel=" + channel
		}

		log.Printf("[http] %s %s status=%d latency=%s client=%s auth=%s%s",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(),
			time.Since(start).Round(time.Millisecond), c.ClientIP(), authMethod, suffix)
	}
}

// RecoveryMiddleware is the last line against panics crossing the HTTP
// boundary; handler and bridge failures are expected to arrive as
// error values, never as panics.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[http] panic on %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
			}
		}()
		c.Next()
	}
}

// CORSMiddleware admits the dashboard origin. The route surface is
// GET/POST/PUT only, and credentials are never combined with the
// wildcard origin.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = true
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case allowAll:
			c.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
