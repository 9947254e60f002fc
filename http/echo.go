package http

import (
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	walletkit "github.com/x402-foundation/walletkit"
)

// RegisterEcho mounts the wallet routes for client on e.
func RegisterEcho(e *echo.Echo, client *walletkit.WalletClient, opts ...Option) *Handler {
	h := NewHandler(client, opts...)
	e.Use(echoRequestID)
	h.RegisterEcho(e)
	return h
}

// RegisterEcho mounts the routes on e without adding middleware.
func (h *Handler) RegisterEcho(e *echo.Echo) {
	e.GET(PathHealth, func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET(PathMetrics, echo.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	e.GET(PathWallets, func(c echo.Context) error {
		status, body := h.Status()
		return c.JSON(status, body)
	})

	e.POST(PathConnect, func(c echo.Context) error {
		status, body := h.Connect(c.Request().Context(), c.Param("type"))
		return c.JSON(status, body)
	})

	e.POST(PathTransactions, func(c echo.Context) error {
		raw, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_request"})
		}
		status, body := h.Submit(c.Request().Context(), raw)
		return c.JSON(status, body)
	})
}

func echoRequestID(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Response().Header().Set(RequestIDHeader, id)
		return next(c)
	}
}
