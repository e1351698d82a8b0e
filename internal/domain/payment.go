package domain

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

type SourceStatus string

const (
	SourcePending    SourceStatus = "pending"
	SourceChargeable SourceStatus = "chargeable"
	SourcePaid       SourceStatus = "paid"
	SourceFailed     SourceStatus = "failed"
	SourceExpired    SourceStatus = "expired"
	SourceCancelled  SourceStatus = "cancelled"
)

// PaymentSource is the gateway-side object backing a wallet checkout.
type PaymentSource struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	CheckoutURL string          `json:"checkoutUrl"`
	Status      SourceStatus    `json:"status"`
	OrderNumber string          `json:"orderNumber"`
}

var sourceIDPattern = regexp.MustCompile(`^src_[A-Za-z0-9_]+$`)

// ValidSourceID reports whether id has the shape of a PayMongo source token.
func ValidSourceID(id string) bool {
	return sourceIDPattern.MatchString(id)
}

type EventType string

const (
	EventSourceChargeable EventType = "source.chargeable"
	EventSourceFailed     EventType = "source.failed"
	EventSourceExpired    EventType = "source.expired"
	EventSourceCancelled  EventType = "source.cancelled"
)

// TargetStatus maps a gateway event onto the order status it settles to.
// ok is false for event types the lifecycle does not act on.
func (t EventType) TargetStatus() (status OrderStatus, ok bool) {
	switch t {
	case EventSourceChargeable:
		return StatusPaid, true
	case EventSourceFailed, EventSourceExpired, EventSourceCancelled:
		return StatusPaymentFailed, true
	}
	return "", false
}

// TargetStatus for a polled source status; used by manual reconciliation.
func (s SourceStatus) TargetStatus() (status OrderStatus, ok bool) {
	switch s {
	case SourceChargeable, SourcePaid:
		return StatusPaid, true
	case SourceFailed, SourceExpired, SourceCancelled:
		return StatusPaymentFailed, true
	}
	return "", false
}

// WebhookEvent is a parsed inbound gateway notification.
type WebhookEvent struct {
	ID           string
	Type         EventType
	SourceID     string
	SourceStatus SourceStatus
	OrderNumber  string
}

// DedupeKey identifies a delivery for replay detection. Events without an id
// fall back to type, source and order number, which are stable across
// redeliveries.
func (e WebhookEvent) DedupeKey() string {
	if e.ID != "" {
		return e.ID
	}
	return string(e.Type) + ":" + e.SourceID + ":" + e.OrderNumber
}

type webhookResource struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes webhookAttributes `json:"attributes"`
}

type webhookAttributes struct {
	Type     string           `json:"type"`
	Status   string           `json:"status"`
	Metadata map[string]any   `json:"metadata"`
	Data     *webhookResource `json:"data"`
}

type webhookPayload struct {
	ID   string           `json:"id"`
	Type string           `json:"type"`
	Data *webhookResource `json:"data"`
}

// ParseWebhookEvent accepts both the flat form {type, data:{id, attributes}}
// and PayMongo's event envelope {data:{type:"event", attributes:{type, data}}}.
func ParseWebhookEvent(body []byte) (WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrInvalidWebhook, err)
	}
	if p.Data == nil {
		return WebhookEvent{}, fmt.Errorf("%w: missing data", ErrInvalidWebhook)
	}

	eventID, eventType, source := p.ID, p.Type, p.Data
	if eventType == "" && p.Data.Type == "event" && p.Data.Attributes.Data != nil {
		eventID = p.Data.ID
		eventType = p.Data.Attributes.Type
		source = p.Data.Attributes.Data
	}
	if eventType == "" {
		return WebhookEvent{}, fmt.Errorf("%w: missing type", ErrInvalidWebhook)
	}

	return WebhookEvent{
		ID:           eventID,
		Type:         EventType(eventType),
		SourceID:     source.ID,
		SourceStatus: SourceStatus(source.Attributes.Status),
		OrderNumber:  metadataString(source.Attributes.Metadata, "order_number"),
	}, nil
}

func metadataString(md map[string]any, key string) string {
	v, ok := md[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
