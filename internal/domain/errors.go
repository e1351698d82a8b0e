package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidOrder       = errors.New("invalid order request")
	ErrInvalidWebhook     = errors.New("invalid webhook payload")
	ErrOrderNotFound      = errors.New("order not found")
	ErrStoreNotConfigured = errors.New("order store not configured")
	ErrStorage            = errors.New("order store error")
	ErrPaymentGateway     = errors.New("payment gateway error")
	ErrSMSGateway         = errors.New("sms gateway error")
	ErrPaymentNotRequired = errors.New("order has no external payment")
)

const (
	GatewayPayMongo  = "paymongo"
	GatewaySemaphore = "semaphore"
)

// GatewayError is returned by third-party adapters for non-2xx responses,
// transport failures and timeouts.
type GatewayError struct {
	Gateway    string
	StatusCode int
	Body       string
	Err        error
}

func (e *GatewayError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d: %s", e.Gateway, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Gateway, e.Err)
	default:
		return e.Gateway + ": request failed"
	}
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Is(target error) bool {
	switch target {
	case ErrPaymentGateway:
		return e.Gateway == GatewayPayMongo
	case ErrSMSGateway:
		return e.Gateway == GatewaySemaphore
	}
	return false
}
