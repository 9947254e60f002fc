package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	walletkit "github.com/x402-foundation/walletkit"
)

// NewEngine creates a gin engine serving the wallet routes for client.
func NewEngine(client *walletkit.WalletClient, opts ...Option) *gin.Engine {
	h := NewHandler(client, opts...)

	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), RequestLogger(h.logger))
	h.RegisterGin(engine)
	return engine
}

// RegisterGin mounts the routes on r.
func (h *Handler) RegisterGin(r gin.IRoutes) {
	r.GET(PathHealth, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET(PathMetrics, gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	r.GET(PathWallets, func(c *gin.Context) {
		c.JSON(h.Status())
	})

	r.POST(PathConnect, func(c *gin.Context) {
		c.JSON(h.Connect(c.Request.Context(), c.Param("type")))
	})

	r.POST(PathTransactions, func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
			return
		}
		c.JSON(h.Submit(c.Request.Context(), body))
	})
}

// RequestID reuses the caller's X-Request-ID or assigns a new one, and
// echoes it on the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger logs each request once it completes.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", c.GetString("request_id"))
	}
}
