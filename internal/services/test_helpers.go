package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rodge1109/restaurantordering/internal/domain"
)

func CreateMockOrderRequest(method string) domain.OrderRequest {
	return domain.OrderRequest{
		FullName:      TestFullName,
		Email:         "juan@example.com",
		Phone:         TestPhone,
		Address:       "12 Rizal St",
		City:          "Quezon City",
		Barangay:      "Bagumbayan",
		PaymentMethod: method,
		Items:         "Margherita Pizza (x1) - Php 250.00",
		Subtotal:      decimal.RequireFromString("200.00"),
		DeliveryFee:   decimal.RequireFromString("34.00"),
		Tax:           decimal.RequireFromString("16.00"),
		Total:         decimal.RequireFromString(TestTotal),
	}
}

func CreateMockOrder(orderNumber string, status domain.OrderStatus, method, paymentRef string) *domain.Order {
	return &domain.Order{
		ID:               1,
		OrderNumber:      orderNumber,
		FullName:         TestFullName,
		Phone:            TestPhone,
		Address:          "12 Rizal St",
		City:             "Quezon City",
		PaymentMethod:    method,
		PaymentReference: paymentRef,
		Total:            decimal.RequireFromString(TestTotal),
		Status:           status,
		CreatedAt:        time.Now(),
	}
}

func CreateMockSource(id string) *domain.PaymentSource {
	return &domain.PaymentSource{
		ID:          id,
		Amount:      decimal.RequireFromString(TestTotal),
		Currency:    "PHP",
		CheckoutURL: "https://pm.link/checkout/" + id,
		Status:      domain.SourcePending,
	}
}

const (
	TestFullName    = "Juan Dela Cruz"
	TestPhone       = "09171234567"
	TestTotal       = "250.00"
	TestSourceID    = "src_test_123"
	TestOrderNumber = "ORD-1700000000000"
)
