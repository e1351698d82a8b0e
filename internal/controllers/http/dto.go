package http

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/rodge1109/restaurantordering/internal/domain"
	"github.com/rodge1109/restaurantordering/internal/services"
)

// CreateOrderRequest is the storefront checkout body. Amounts may arrive as
// JSON numbers or numeric strings; items may be a pre-formatted string or
// any JSON value, which is stored as its JSON text.
type CreateOrderRequest struct {
	FullName         string          `json:"fullName" binding:"required"`
	Email            string          `json:"email"`
	Phone            string          `json:"phone"`
	Address          string          `json:"address"`
	City             string          `json:"city"`
	Barangay         string          `json:"barangay"`
	PaymentMethod    string          `json:"paymentMethod" binding:"required"`
	PaymentReference string          `json:"paymentReference"`
	Items            json.RawMessage `json:"items"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee"`
	Tax              decimal.Decimal `json:"tax"`
	Total            decimal.Decimal `json:"total"`
}

func (r CreateOrderRequest) ToDomain() domain.OrderRequest {
	return domain.OrderRequest{
		FullName:         r.FullName,
		Email:            r.Email,
		Phone:            r.Phone,
		Address:          r.Address,
		City:             r.City,
		Barangay:         r.Barangay,
		PaymentMethod:    r.PaymentMethod,
		PaymentReference: r.PaymentReference,
		Items:            itemsText(r.Items),
		Subtotal:         r.Subtotal,
		DeliveryFee:      r.DeliveryFee,
		Tax:              r.Tax,
		Total:            r.Total,
	}
}

func itemsText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

type CreateOrderResponse struct {
	Success         bool   `json:"success"`
	OrderNumber     string `json:"orderNumber"`
	SMSStatus       string `json:"smsStatus"`
	PaymentURL      string `json:"paymentUrl,omitempty"`
	SourceID        string `json:"sourceId,omitempty"`
	RequiresPayment bool   `json:"requiresPayment,omitempty"`
}

func newCreateOrderResponse(r *services.SubmitResult) CreateOrderResponse {
	return CreateOrderResponse{
		Success:         true,
		OrderNumber:     r.OrderNumber,
		SMSStatus:       r.SMSStatus,
		PaymentURL:      r.PaymentURL,
		SourceID:        r.SourceID,
		RequiresPayment: r.RequiresPayment,
	}
}

type WebhookResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Outcome services.Outcome `json:"outcome"`
}

type PaymentStatusResponse struct {
	Success bool                `json:"success"`
	Status  domain.SourceStatus `json:"status"`
	Amount  float64             `json:"amount"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
