package services

import (
	"fmt"
	"strings"

	"github.com/rodge1109/restaurantordering/internal/domain"
)

const (
	SMSSent    = "sent"
	SMSFailed  = "failed"
	SMSNotSent = "not_sent"
	// SMSPending marks a confirmation deferred until payment settles.
	SMSPending = "pending"
)

const deliveryETA = "25-30 mins"

func confirmationMessage(restaurant string, o *domain.Order) string {
	return fmt.Sprintf("Hi %s! Your order %s has been confirmed. Total: Php %s. Payment: %s. We'll deliver to %s in %s. Thank you for ordering from %s!",
		o.FullName, o.OrderNumber, o.Total.StringFixed(2), o.PaymentMethod, deliveryAddress(o), deliveryETA, restaurant)
}

func paymentReceivedMessage(restaurant string, o *domain.Order) string {
	return fmt.Sprintf("Hi %s! We received your GCash payment of Php %s for order %s. We'll deliver to %s in %s. Thank you for ordering from %s!",
		o.FullName, o.Total.StringFixed(2), o.OrderNumber, deliveryAddress(o), deliveryETA, restaurant)
}

// SMSTestMessage is sent by the operator probe.
func SMSTestMessage(restaurant string) string {
	return restaurant + " Test: SMS integration is working! This is a test message."
}

func deliveryAddress(o *domain.Order) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{o.Address, o.Barangay, o.City} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
