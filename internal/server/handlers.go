package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hyperdeck/bridge/config"
	"github.com/hyperdeck/bridge/internal/bridge"
	"github.com/hyperdeck/bridge/internal/cache"
	"github.com/hyperdeck/bridge/internal/channels"
	"github.com/hyperdeck/bridge/internal/hyperv"
	"github.com/hyperdeck/bridge/internal/tasks"
)

// Handlers holds all HTTP handlers
type Handlers struct {
	cfg     *config.Config
	bridge  *bridge.Bridge
	tracker *tasks.Tracker
	cache   *cache.QueryCache
}

// NewHandlers creates a new handlers instance. Cached query results
// are invalidated whenever a state-changing operation succeeds, so a
// vm:start is never followed by a stale vm:list.
func NewHandlers(cfg *config.Config, b *bridge.Bridge, tracker *tasks.Tracker) *Handlers {
	h := &Handlers{
		cfg:     cfg,
		bridge:  b,
		tracker: tracker,
		cache:   cache.New(),
	}
	b.Subscribe("vm:state-changed", func(any) {
		h.cache.Invalidate("vm:list", "switch:list")
	})
	return h
}

// invokeRequest is the body shape for POST /api/invoke/:channel
type invokeRequest struct {
	Args []any `json:"args"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"agent":   "hyperdeck-bridge",
		"version": "1.0.0",
	})
}

// ListChannels handles GET /api/channels
func (h *Handlers) ListChannels(c *gin.Context) {
	cat := h.bridge.Catalogue()
	c.JSON(http.StatusOK, gin.H{
		"invoke":  cat.List(channels.Invoke),
		"send":    cat.List(channels.Send),
		"receive": cat.List(channels.Receive),
	})
}

// InvokeChannel handles POST /api/invoke/:channel
func (h *Handlers) InvokeChannel(c *gin.Context) {
	channel := c.Param("channel")

	var req invokeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	// Short-TTL cache for the argument-less queries a dashboard
	// polls. A hit still passes the whitelist; only the handler call
	// is skipped.
	useCache := len(req.Args) == 0 && cache.Cacheable(channel) &&
		h.bridge.Catalogue().IsAllowed(channel, channels.Invoke)
	if useCache {
		if cached, found := h.cache.Get(channel); found {
			c.JSON(http.StatusOK, gin.H{"result": cached})
			return
		}
	}

	result, err := h.bridge.Invoke(c.Request.Context(), channel, req.Args...)
	if err != nil {
		status, msg := mapInvokeError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	if useCache {
		h.cache.Set(channel, result)
	}

	c.JSON(http.StatusOK, gin.H{"result": result})
}

// mapInvokeError converts bridge-layer failures to HTTP status codes.
// Safety rejections stay deliberately vague; the detail is in the log.
func mapInvokeError(err error) (int, string) {
	switch {
	case errors.Is(err, bridge.ErrChannelNotAllowed):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, bridge.ErrNoHandler):
		return http.StatusNotImplemented, err.Error()
	case errors.Is(err, bridge.ErrInvalidArgs), errors.Is(err, hyperv.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, hyperv.ErrBlocked):
		return http.StatusForbidden, hyperv.ErrBlocked.Error()
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// SendChannel handles POST /api/send/:channel. Fire-and-forget: the
// bridge drops unlisted channels internally, so this always accepts.
func (h *Handlers) SendChannel(c *gin.Context) {
	channel := c.Param("channel")

	var req invokeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	h.bridge.Send(channel, req.Args...)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}

// Task handlers

// ListTasks handles GET /api/tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	list := h.tracker.List()
	c.JSON(http.StatusOK, gin.H{
		"tasks": list,
		"total": len(list),
	})
}

// CancelTask handles POST /api/tasks/:id/cancel
func (h *Handlers) CancelTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return
	}

	// Unknown or terminal ids are a no-op.
	h.tracker.Cancel(id)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ClearCompletedTasks handles POST /api/tasks/clear-completed
func (h *Handlers) ClearCompletedTasks(c *gin.Context) {
	h.tracker.ClearCompleted()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
