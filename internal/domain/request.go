package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderRequest is a checkout submitted by the storefront. Amounts are
// computed upstream and trusted as given.
type OrderRequest struct {
	FullName         string
	Email            string
	Phone            string
	Address          string
	City             string
	Barangay         string
	PaymentMethod    string
	PaymentReference string
	Items            string
	Subtotal         decimal.Decimal
	DeliveryFee      decimal.Decimal
	Tax              decimal.Decimal
	Total            decimal.Decimal
}

func (r OrderRequest) Validate() error {
	if strings.TrimSpace(r.FullName) == "" {
		return fmt.Errorf("%w: fullName is required", ErrInvalidOrder)
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return fmt.Errorf("%w: paymentMethod is required", ErrInvalidOrder)
	}
	for name, v := range map[string]decimal.Decimal{
		"subtotal":    r.Subtotal,
		"deliveryFee": r.DeliveryFee,
		"tax":         r.Tax,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%w: %s cannot be negative", ErrInvalidOrder, name)
		}
	}
	if !r.Total.IsPositive() {
		return fmt.Errorf("%w: total must be positive", ErrInvalidOrder)
	}
	return nil
}

// SourceRequest asks the payment gateway for a wallet checkout.
type SourceRequest struct {
	Amount      decimal.Decimal
	OrderNumber string
	Name        string
	Email       string
	Phone       string
}

// NotificationResult is the outcome of a single best-effort SMS.
type NotificationResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Response  string `json:"response,omitempty"`
	Error     string `json:"error,omitempty"`
}
