package domain

import "time"

const (
	RoutingOrderCreated              = "order.created"
	RoutingOrderPaid                 = "order.paid"
	RoutingOrderPaymentFailed        = "order.payment_failed"
	RoutingOrderReconciliationMissed = "order.reconciliation_missed"
)

type OrderCreatedEvent struct {
	OrderNumber   string      `json:"orderNumber"`
	PaymentMethod string      `json:"paymentMethod"`
	Total         string      `json:"total"`
	Status        OrderStatus `json:"status"`
	SMSStatus     string      `json:"smsStatus"`
	CreatedAt     time.Time   `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderNumber      string      `json:"orderNumber"`
	Status           OrderStatus `json:"status"`
	PaymentReference string      `json:"paymentReference"`
	Trigger          string      `json:"trigger"`
	SMSStatus        string      `json:"smsStatus,omitempty"`
	ChangedAt        time.Time   `json:"changedAt"`
}

type ReconciliationMissedEvent struct {
	EventID     string    `json:"eventId,omitempty"`
	EventType   EventType `json:"eventType"`
	SourceID    string    `json:"sourceId"`
	OrderNumber string    `json:"orderNumber"`
	Reason      string    `json:"reason"`
	ObservedAt  time.Time `json:"observedAt"`
}

func (e OrderCreatedEvent) EventKey() string { return e.OrderNumber }
func (e OrderStatusChangedEvent) EventKey() string { return e.OrderNumber }
func (e ReconciliationMissedEvent) EventKey() string { return e.SourceID }
