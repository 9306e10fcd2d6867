package handlers

import (
	"github.com/umardraz9/mlmpk-sub009/internal/config"
	"github.com/umardraz9/mlmpk-sub009/internal/core/services"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	hub *services.EventHub
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(hub *services.EventHub) *HealthHandler {
	return &HealthHandler{hub: hub}
}

// Root handles root endpoint
// @Summary Root endpoint
// @Description Returns API status
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	mode := ""
	if config.AppConfig != nil {
		mode = config.AppConfig.AppMode
	}

	return c.JSON(fiber.Map{
		"status":  "running",
		"message": "🚀 MLM-PK Earnings API v1.0 is running",
		"mode":    mode,
		"docs":    "/swagger/index.html",
	})
}

// HealthCheck handles health check
// @Summary Health check
// @Description Check API and database health
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	code := fiber.StatusOK
	status := "ok"
	dbStatus := "healthy"
	if err := config.HealthCheck(); err != nil {
		code = fiber.StatusServiceUnavailable
		status = "degraded"
		dbStatus = "unhealthy"
	}

	streams := 0
	if h.hub != nil {
		streams = h.hub.ClientCount()
	}

	return c.Status(code).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"api":      "healthy",
			"database": dbStatus,
		},
		"sse_clients": streams,
	})
}
