package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"cart-service/internal/cartstore"
	"cart-service/internal/models"
	"cart-service/internal/sanitize"
	"cart-service/internal/store"
	"cart-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	cleaner *sanitize.Cleaner
	storage cartstore.CartStorage
	store   *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(cleaner *sanitize.Cleaner, storage cartstore.CartStorage, st *store.Store) *Handler {
	return &Handler{
		cleaner: cleaner,
		storage: storage,
		store:   st,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/carts/:id", h.getCart)
		v1.POST("/carts/:id/cleanup", h.cleanupCart)
		v1.POST("/carts/:id/reset", h.resetCart)
		v1.GET("/carts/:id/reports", h.getCleanupReports)
		v1.POST("/validate", h.validatePayload)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// getCart returns the stored cart items plus a corruption check
func (h *Handler) getCart(c *gin.Context) {
	cartID := c.Param("id")

	raw, version, err := h.storage.ReadRaw(c.Request.Context(), cartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read cart",
			"details": err.Error(),
		})
		return
	}

	if len(raw) == 0 {
		c.JSON(http.StatusOK, gin.H{
			"cart_id": cartID,
			"items":   []models.CartItem{},
			"version": version,
			"corrupt": false,
		})
		return
	}

	var decoded interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"cart_id": cartID,
			"items":   []models.CartItem{},
			"version": version,
			"corrupt": true,
			"hint":    "cart data is unparseable, run cleanup",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart_id": cartID,
		"items":   decoded,
		"version": version,
		"corrupt": sanitize.DetectExtremeCorruption(decoded),
	})
}

// cleanupCart runs a cleanup pass and returns its summary
func (h *Handler) cleanupCart(c *gin.Context) {
	cartID := c.Param("id")

	summary := h.cleaner.Run(c.Request.Context(), cartID, models.TriggerAPI)

	status := http.StatusOK
	if summary.Outcome == models.OutcomeFailed {
		status = http.StatusInternalServerError
	}
	c.JSON(status, summary)
}

// resetCart wipes all cart state for a cart
func (h *Handler) resetCart(c *gin.Context) {
	cartID := c.Param("id")

	result := h.cleaner.EmergencyReset(c.Request.Context(), cartID)
	c.JSON(http.StatusOK, result)
}

// getCleanupReports returns cleanup history for a cart
func (h *Handler) getCleanupReports(c *gin.Context) {
	cartID := c.Param("id")

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	reports, err := h.store.GetCleanupReportsByCartID(c.Request.Context(), cartID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load cleanup reports",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cart_id": cartID,
		"reports": reports,
	})
}

// validatePayload dry-runs validation over a posted item list without
// touching storage
func (h *Handler) validatePayload(c *gin.Context) {
	var payload []interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Request body must be a JSON array of cart items",
			"details": err.Error(),
		})
		return
	}

	type itemReport struct {
		Index  int              `json:"index"`
		Valid  bool             `json:"valid"`
		Item   *models.CartItem `json:"item,omitempty"`
		Issues []models.Issue   `json:"issues,omitempty"`
	}

	reports := make([]itemReport, 0, len(payload))
	for i, raw := range payload {
		item, res := sanitize.ValidateItem(raw)
		report := itemReport{Index: i, Valid: res.Valid, Issues: res.Issues}
		if res.Valid {
			report.Item = &item
		}
		reports = append(reports, report)
	}

	c.JSON(http.StatusOK, gin.H{
		"corrupt": sanitize.DetectExtremeCorruption(payload),
		"items":   reports,
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
