package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending         OrderStatus = "Pending"
	StatusAwaitingPayment OrderStatus = "AwaitingPayment"
	StatusPaid            OrderStatus = "Paid"
	StatusPaymentFailed   OrderStatus = "PaymentFailed"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusPaymentFailed
}

// CanTransitionTo encodes the lifecycle: only AwaitingPayment orders are
// settled by the payment gateway, and terminal states never move again.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != StatusAwaitingPayment {
		return false
	}
	return next == StatusPaid || next == StatusPaymentFailed
}

type PaymentMethod string

const (
	MethodCard  PaymentMethod = "card"
	MethodCash  PaymentMethod = "cash"
	MethodGCash PaymentMethod = "gcash"
	MethodOther PaymentMethod = "other"
)

// NoPaymentReference is stored when the client supplied no reference.
const NoPaymentReference = "N/A"

func ParsePaymentMethod(raw string) PaymentMethod {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "gcash":
		return MethodGCash
	case "cash", "cod", "cash_on_delivery":
		return MethodCash
	case "card", "credit", "debit", "credit_card", "debit_card":
		return MethodCard
	default:
		return MethodOther
	}
}

// SettlesExternally is true for wallet methods that need a gateway payment
// source before the order can be fulfilled.
func (m PaymentMethod) SettlesExternally() bool {
	return m == MethodGCash
}

type Order struct {
	ID               uint64          `json:"-" gorm:"primaryKey;autoIncrement"`
	OrderNumber      string          `json:"orderNumber" gorm:"size:64;not null;uniqueIndex"`
	FullName         string          `json:"fullName" gorm:"size:255"`
	Email            string          `json:"email" gorm:"size:255"`
	Phone            string          `json:"phone" gorm:"size:64"`
	Address          string          `json:"address" gorm:"size:512"`
	City             string          `json:"city" gorm:"size:128"`
	Barangay         string          `json:"barangay" gorm:"size:128"`
	PaymentMethod    string          `json:"paymentMethod" gorm:"size:32"`
	PaymentReference string          `json:"paymentReference" gorm:"size:128"`
	Items            string          `json:"items" gorm:"type:text"`
	Subtotal         decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null;default:0"`
	DeliveryFee      decimal.Decimal `json:"deliveryFee" gorm:"type:decimal(12,2);not null;default:0"`
	Tax              decimal.Decimal `json:"tax" gorm:"type:decimal(12,2);not null;default:0"`
	Total            decimal.Decimal `json:"total" gorm:"type:decimal(12,2);not null;default:0"`
	Status           OrderStatus     `json:"status" gorm:"size:32;not null;index"`
	CreatedAt        time.Time       `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (o *Order) Method() PaymentMethod {
	return ParsePaymentMethod(o.PaymentMethod)
}

// SheetColumns is the persisted row layout. Spreadsheet consumers depend on
// this order; append new columns at the end only.
var SheetColumns = []string{
	"timestamp", "orderNumber", "fullName", "email", "phone", "address", "city",
	"barangay", "paymentMethod", "paymentReference", "items", "subtotal",
	"deliveryFee", "tax", "total", "status",
}

func (o *Order) SheetRow() []string {
	return []string{
		o.CreatedAt.Format(time.RFC3339),
		o.OrderNumber,
		o.FullName,
		o.Email,
		o.Phone,
		o.Address,
		o.City,
		o.Barangay,
		o.PaymentMethod,
		o.PaymentReference,
		o.Items,
		o.Subtotal.StringFixed(2),
		o.DeliveryFee.StringFixed(2),
		o.Tax.StringFixed(2),
		o.Total.StringFixed(2),
		string(o.Status),
	}
}
