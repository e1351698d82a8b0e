package http

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rodge1109/restaurantordering/internal/domain"
	"github.com/rodge1109/restaurantordering/internal/infra/paymongo"
	"github.com/rodge1109/restaurantordering/internal/services"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	orders        *services.OrderService
	catalog       *services.CatalogService
	webhookSecret string
	jwtSecret     string
	log           *slog.Logger
}

type Options struct {
	// WebhookSecret enables Paymongo-Signature verification when set.
	WebhookSecret string
	// JWTSecret enables the /admin routes when set.
	JWTSecret string
}

func NewHandler(o *services.OrderService, c *services.CatalogService, opts Options, log *slog.Logger) *Handler {
	return &Handler{
		orders:        o,
		catalog:       c,
		webhookSecret: opts.WebhookSecret,
		jwtSecret:     opts.JWTSecret,
		log:           log.With("component", "http"),
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.POST("/orders", h.CreateOrder)
	r.POST("/api/orders", h.CreateOrder)
	r.GET("/products", h.ListProducts)
	r.POST("/webhooks/paymongo", h.PayMongoWebhook)
	r.GET("/payments/:sourceId/status", h.PaymentStatus)

	if h.jwtSecret == "" {
		h.log.Warn("admin routes disabled: no jwt secret configured")
		return
	}
	admin := r.Group("/admin", RequireAdmin(h.jwtSecret))
	admin.GET("/orders.csv", h.ExportOrders)
	admin.GET("/orders/:orderNumber", h.GetOrder)
	admin.POST("/orders/:orderNumber/sync-payment", h.SyncPayment)
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "reconcile": h.orders.Stats()})
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order: " + err.Error()})
		return
	}

	res, err := h.orders.Submit(c.Request.Context(), req.ToDomain())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newCreateOrderResponse(res))
}

func (h *Handler) ListProducts(c *gin.Context) {
	if h.catalog == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "catalog not configured"})
		return
	}
	products, err := h.catalog.Products(c.Request.Context())
	if err != nil {
		h.log.Error("catalog fetch failed", "err", err)
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "catalog unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "products": products})
}

func (h *Handler) PayMongoWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "webhook body too large"})
		return
	}

	if h.webhookSecret != "" {
		if err := paymongo.VerifySignature(c.GetHeader("Paymongo-Signature"), body, h.webhookSecret); err != nil {
			h.log.Warn("webhook rejected", "err", err)
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}
	}

	evt, err := domain.ParseWebhookEvent(body)
	if err != nil {
		h.writeError(c, err)
		return
	}

	res, err := h.orders.Reconcile(c.Request.Context(), evt)
	if err != nil {
		// Non-2xx makes the gateway redeliver.
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, WebhookResponse{Success: true, Message: webhookMessage(res), Outcome: res.Outcome})
}

func webhookMessage(r services.ReconcileResult) string {
	switch r.Outcome {
	case services.OutcomeApplied:
		return fmt.Sprintf("order %s updated to %s", r.OrderNumber, r.Status)
	case services.OutcomeDuplicate:
		return "already processed"
	case services.OutcomeIgnored:
		return "event ignored"
	default:
		return "no matching order: " + r.Reason
	}
}

func (h *Handler) PaymentStatus(c *gin.Context) {
	src, err := h.orders.CheckPaymentStatus(c.Request.Context(), c.Param("sourceId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, PaymentStatusResponse{
		Success: true,
		Status:  src.Status,
		Amount:  src.Amount.InexactFloat64(),
	})
}

func (h *Handler) GetOrder(c *gin.Context) {
	o, err := h.orders.GetOrder(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": o})
}

func (h *Handler) SyncPayment(c *gin.Context) {
	res, err := h.orders.SyncPayment(c.Request.Context(), c.Param("orderNumber"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"outcome":   res.Outcome,
		"status":    res.Status,
		"smsStatus": res.SMSStatus,
		"reason":    res.Reason,
	})
}

func (h *Handler) ExportOrders(c *gin.Context) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="orders-%s.csv"`, time.Now().UTC().Format("20060102")))
	c.Status(http.StatusOK)
	if err := h.orders.ExportOrders(c.Request.Context(), c.Writer); err != nil {
		// Headers are already out; the truncated body is all we can signal.
		h.log.Error("export failed", "err", err)
	}
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, domain.ErrInvalidOrder), errors.Is(err, domain.ErrInvalidWebhook):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrOrderNotFound):
		status, msg = http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrPaymentNotRequired):
		status, msg = http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrPaymentGateway):
		status, msg = http.StatusBadGateway, "payment gateway error: "+err.Error()
	case errors.Is(err, domain.ErrStoreNotConfigured):
		status, msg = http.StatusServiceUnavailable, "order store not configured"
	case errors.Is(err, domain.ErrStorage):
		msg = "order store error"
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "status", status, "err", err)
	}
	c.JSON(status, ErrorResponse{Error: msg})
}
