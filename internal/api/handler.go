package api

import (
	"net/http"
	"strconv"
	"time"

	"storefront-orders/internal/models"
	"storefront-orders/internal/service"
	"storefront-orders/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	orderService  *service.OrderService
	statusService *service.StatusService
	reportService *service.ReportService
}

// NewHandler creates a new HTTP handler
func NewHandler(orderService *service.OrderService, statusService *service.StatusService, reportService *service.ReportService) *Handler {
	return &Handler{
		orderService:  orderService,
		statusService: statusService,
		reportService: reportService,
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
		v1.POST("/orders", h.submitOrder)
		v1.GET("/orders", h.listOrders)
		v1.GET("/orders/:id", h.getOrder)
		v1.PATCH("/orders/:id/status", h.updateStatus)
		v1.GET("/reports/sales", h.salesReport)
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

// submitOrder handles the placement request from the payment collaborator
func (h *Handler) submitOrder(c *gin.Context) {
	var req service.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"errorCode": models.CodeValidation,
			"message":   err.Error(),
		})
		return
	}

	resp, err := h.orderService.SubmitOrder(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	// A duplicate is not a failure: resolve to the winner's order.
	status := http.StatusCreated
	if resp.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"success": true,
		"orderId": resp.OrderID,
		"status":  resp.Status,
	})
}

// updateStatus handles an admin status update
func (h *Handler) updateStatus(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"errorCode": models.CodeValidation,
			"message":   "invalid order id",
		})
		return
	}

	var req struct {
		NewStatus models.Status `json:"new_status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"errorCode": models.CodeValidation,
			"message":   err.Error(),
		})
		return
	}

	actor := service.ActorAdmin
	if req.NewStatus == models.StatusCancelledByUser {
		actor = service.ActorUser
	}

	order, err := h.statusService.UpdateStatus(c.Request.Context(), orderID, req.NewStatus, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orderId": order.ID,
		"status":  order.Status,
	})
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"errorCode": models.CodeValidation,
			"message":   "invalid order id",
		})
		return
	}

	order, err := h.statusService.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"order":   order,
	})
}

// listOrders handles a user's order list
func (h *Handler) listOrders(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"errorCode": models.CodeValidation,
			"message":   "invalid user_id",
		})
		return
	}

	orders, err := h.statusService.ListOrders(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orders":  orders,
	})
}

// salesReport handles the reporting query. Timestamps resolve at this
// boundary; nothing internal leaks.
func (h *Handler) salesReport(c *gin.Context) {
	from, errFrom := time.Parse(time.RFC3339, c.Query("from"))
	to, errTo := time.Parse(time.RFC3339, c.Query("to"))
	if errFrom != nil || errTo != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"errorCode": models.CodeValidation,
			"message":   "from and to must be RFC3339 timestamps",
		})
		return
	}

	report, err := h.reportService.SalesReport(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"report":  report,
	})
}

// respondError maps the error taxonomy to HTTP codes. The message of a
// persistence error is already opaque; everything else is safe verbatim.
func respondError(c *gin.Context, err error) {
	code := models.ErrorCode(err)

	status := http.StatusInternalServerError
	switch code {
	case models.CodeValidation:
		status = http.StatusBadRequest
	case models.CodeProductNotFound, models.CodeOrderNotFound:
		status = http.StatusNotFound
	case models.CodeInsufficientStock, models.CodeTransactionConflict:
		status = http.StatusConflict
	case models.CodeInvalidTransition:
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, gin.H{
		"success":   false,
		"errorCode": code,
		"message":   err.Error(),
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
