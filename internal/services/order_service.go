package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rodge1109/restaurantordering/internal/domain"
	"github.com/rodge1109/restaurantordering/internal/infra"
	"github.com/rodge1109/restaurantordering/internal/repository"
)

const (
	defaultRestaurant = "Kuchefnero"
	defaultDedupeTTL  = 24 * time.Hour
	publishTimeout    = 5 * time.Second
	exportPageSize    = 500
)

type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeMissed    Outcome = "missed"
	OutcomeIgnored   Outcome = "ignored"
)

type SubmitResult struct {
	OrderNumber     string
	Status          domain.OrderStatus
	SMSStatus       string
	PaymentURL      string
	SourceID        string
	RequiresPayment bool
}

type ReconcileResult struct {
	Outcome     Outcome
	OrderNumber string
	Status      domain.OrderStatus
	SMSStatus   string
	Reason      string
}

// Stats counts reconciliation outcomes since start.
type Stats struct {
	Applied   int64 `json:"applied"`
	Duplicate int64 `json:"duplicate"`
	Missed    int64 `json:"missed"`
	Ignored   int64 `json:"ignored"`
}

// OrderService owns the order lifecycle. It is the only writer of order
// status and payment reference.
type OrderService struct {
	repo      repository.OrderRepository
	payments  infra.PaymentGateway
	notifier  infra.Notifier
	publisher infra.EventPublisher
	deduper   infra.Deduper
	numbers   *domain.OrderNumberGenerator
	log       *slog.Logger

	restaurant string
	dedupeTTL  time.Duration

	wg       sync.WaitGroup
	outcomes [4]atomic.Int64
}

// NewOrderService wires the lifecycle. payments may be nil when wallet
// payments are disabled; GCash orders then fail with a payment error.
func NewOrderService(r repository.OrderRepository, p infra.PaymentGateway, n infra.Notifier, pub infra.EventPublisher, log *slog.Logger) *OrderService {
	return &OrderService{
		repo:       r,
		payments:   p,
		notifier:   n,
		publisher:  pub,
		numbers:    domain.NewOrderNumberGenerator(),
		log:        log.With("component", "order_service"),
		restaurant: defaultRestaurant,
		dedupeTTL:  defaultDedupeTTL,
	}
}

func (s *OrderService) SetDeduper(d infra.Deduper, ttl time.Duration) {
	s.deduper = d
	if ttl > 0 {
		s.dedupeTTL = ttl
	}
}

func (s *OrderService) SetRestaurantName(name string) {
	if name = strings.TrimSpace(name); name != "" {
		s.restaurant = name
	}
}

func (s *OrderService) Submit(ctx context.Context, req domain.OrderRequest) (*SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	order := &domain.Order{
		OrderNumber:      s.numbers.Next(),
		FullName:         strings.TrimSpace(req.FullName),
		Email:            strings.TrimSpace(req.Email),
		Phone:            strings.TrimSpace(req.Phone),
		Address:          strings.TrimSpace(req.Address),
		City:             strings.TrimSpace(req.City),
		Barangay:         strings.TrimSpace(req.Barangay),
		PaymentMethod:    strings.TrimSpace(req.PaymentMethod),
		PaymentReference: strings.TrimSpace(req.PaymentReference),
		Items:            req.Items,
		Subtotal:         req.Subtotal,
		DeliveryFee:      req.DeliveryFee,
		Tax:              req.Tax,
		Total:            req.Total,
		Status:           domain.StatusPending,
		CreatedAt:        time.Now().UTC(),
	}
	if order.PaymentReference == "" {
		order.PaymentReference = domain.NoPaymentReference
	}
	log := s.log.With("order_number", order.OrderNumber, "payment_method", order.PaymentMethod)

	res := &SubmitResult{OrderNumber: order.OrderNumber}
	storeCtx := ctx

	if order.Method().SettlesExternally() {
		if s.payments == nil {
			return nil, &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: errors.New("gcash payments are not enabled")}
		}
		src, err := s.payments.CreateSource(ctx, domain.SourceRequest{
			Amount:      order.Total,
			OrderNumber: order.OrderNumber,
			Name:        order.FullName,
			Email:       order.Email,
			Phone:       order.Phone,
		})
		if err != nil {
			log.Error("create payment source failed", "err", err)
			return nil, err
		}
		order.Status = domain.StatusAwaitingPayment
		order.PaymentReference = src.ID
		res.PaymentURL = src.CheckoutURL
		res.SourceID = src.ID
		res.RequiresPayment = true

		// The source exists at the gateway now; the row must be written even if
		// the client goes away.
		storeCtx = context.WithoutCancel(ctx)
	}

	if err := s.repo.Append(storeCtx, order); err != nil {
		log.Error("append order failed", "err", err, "source_id", res.SourceID)
		return nil, err
	}
	res.Status = order.Status

	switch {
	case order.Status == domain.StatusAwaitingPayment:
		res.SMSStatus = SMSPending
	case order.Phone == "":
		res.SMSStatus = SMSNotSent
	default:
		res.SMSStatus = s.notify(ctx, log, order.Phone, confirmationMessage(s.restaurant, order))
	}

	log.Info("order submitted", "status", order.Status, "sms_status", res.SMSStatus, "total", order.Total.StringFixed(2))
	s.publish(domain.RoutingOrderCreated, domain.OrderCreatedEvent{
		OrderNumber:   order.OrderNumber,
		PaymentMethod: order.PaymentMethod,
		Total:         order.Total.StringFixed(2),
		Status:        order.Status,
		SMSStatus:     res.SMSStatus,
		CreatedAt:     order.CreatedAt,
	})
	return res, nil
}

// Reconcile applies a gateway webhook. Replays, unknown orders and orders
// that already settled are acknowledged without a state change.
func (s *OrderService) Reconcile(ctx context.Context, evt domain.WebhookEvent) (ReconcileResult, error) {
	log := s.log.With("event_id", evt.ID, "event_type", evt.Type, "source_id", evt.SourceID, "order_number", evt.OrderNumber)

	target, ok := evt.Type.TargetStatus()
	if !ok {
		log.Info("webhook type ignored")
		return s.record(ReconcileResult{Outcome: OutcomeIgnored, OrderNumber: evt.OrderNumber, Reason: "unhandled event type " + string(evt.Type)}), nil
	}
	if evt.OrderNumber == "" {
		return s.miss(log, evt, ReconcileResult{Reason: "missing order_number metadata"}), nil
	}

	claimKey := "webhook:" + evt.DedupeKey()
	claimed := false
	if s.deduper != nil {
		ok, err := s.deduper.Claim(ctx, claimKey, s.dedupeTTL)
		switch {
		case err != nil:
			log.Warn("dedupe claim failed, continuing", "err", err)
		case !ok:
			log.Info("webhook replay skipped")
			return s.record(ReconcileResult{Outcome: OutcomeDuplicate, OrderNumber: evt.OrderNumber, Reason: "event already processed"}), nil
		default:
			claimed = true
		}
	}

	res, err := s.settle(ctx, log, evt.OrderNumber, evt.SourceID, target, "webhook")
	if err != nil {
		if claimed {
			if rerr := s.deduper.Release(context.WithoutCancel(ctx), claimKey); rerr != nil {
				log.Warn("dedupe release failed", "err", rerr)
			}
		}
		return ReconcileResult{}, err
	}
	if res.Outcome == OutcomeMissed {
		return s.miss(log, evt, res), nil
	}
	return s.record(res), nil
}

// SyncPayment polls the gateway for an order's source and applies the same
// transition a webhook would.
func (s *OrderService) SyncPayment(ctx context.Context, orderNumber string) (ReconcileResult, error) {
	order, err := s.GetOrder(ctx, orderNumber)
	if err != nil {
		return ReconcileResult{}, err
	}
	if !order.Method().SettlesExternally() {
		return ReconcileResult{}, fmt.Errorf("%w: %s is a %s order", domain.ErrPaymentNotRequired, orderNumber, order.PaymentMethod)
	}
	src, err := s.CheckPaymentStatus(ctx, order.PaymentReference)
	if err != nil {
		return ReconcileResult{}, err
	}

	log := s.log.With("order_number", orderNumber, "source_id", src.ID, "source_status", src.Status)
	target, ok := src.Status.TargetStatus()
	if !ok {
		log.Info("payment not settled yet")
		return s.record(ReconcileResult{Outcome: OutcomeIgnored, OrderNumber: orderNumber, Status: order.Status, Reason: "source is " + string(src.Status)}), nil
	}

	res, err := s.settle(ctx, log, orderNumber, order.PaymentReference, target, "sync")
	if err != nil {
		return ReconcileResult{}, err
	}
	if res.Outcome == OutcomeMissed {
		log.Warn("sync found nothing to apply", "reason", res.Reason)
	}
	return s.record(res), nil
}

func (s *OrderService) settle(ctx context.Context, log *slog.Logger, orderNumber, sourceID string, target domain.OrderStatus, trigger string) (ReconcileResult, error) {
	res := ReconcileResult{OrderNumber: orderNumber}

	order, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return res, err
	}
	if order == nil {
		res.Outcome, res.Reason = OutcomeMissed, "order not found"
		return res, nil
	}
	res.Status = order.Status

	if sourceID != "" && order.PaymentReference != sourceID {
		res.Outcome, res.Reason = OutcomeMissed, "source id does not match order payment reference"
		return res, nil
	}
	if order.Status != domain.StatusAwaitingPayment {
		if order.Status == target {
			res.Outcome, res.Reason = OutcomeDuplicate, "order already "+string(target)
		} else {
			res.Outcome, res.Reason = OutcomeMissed, "order is "+string(order.Status)
		}
		return res, nil
	}

	updated, err := s.repo.UpdateStatus(ctx, orderNumber, domain.StatusAwaitingPayment, target, sourceID)
	if err != nil {
		return res, err
	}
	if !updated {
		// Another delivery won the transition.
		res.Outcome, res.Reason = OutcomeDuplicate, "transition already applied"
		return res, nil
	}

	order.Status = target
	if sourceID != "" {
		order.PaymentReference = sourceID
	}
	res.Outcome, res.Status = OutcomeApplied, target

	routing := domain.RoutingOrderPaymentFailed
	if target == domain.StatusPaid {
		routing = domain.RoutingOrderPaid
		if order.Phone != "" {
			res.SMSStatus = s.notify(ctx, log, order.Phone, paymentReceivedMessage(s.restaurant, order))
		} else {
			res.SMSStatus = SMSNotSent
		}
	}

	log.Info("order settled", "status", target, "trigger", trigger, "sms_status", res.SMSStatus)
	s.publish(routing, domain.OrderStatusChangedEvent{
		OrderNumber:      order.OrderNumber,
		Status:           target,
		PaymentReference: order.PaymentReference,
		Trigger:          trigger,
		SMSStatus:        res.SMSStatus,
		ChangedAt:        time.Now().UTC(),
	})
	return res, nil
}

func (s *OrderService) miss(log *slog.Logger, evt domain.WebhookEvent, res ReconcileResult) ReconcileResult {
	res.Outcome = OutcomeMissed
	res.OrderNumber = evt.OrderNumber
	log.Warn("reconciliation miss", "reason", res.Reason)
	s.publish(domain.RoutingOrderReconciliationMissed, domain.ReconciliationMissedEvent{
		EventID:     evt.ID,
		EventType:   evt.Type,
		SourceID:    evt.SourceID,
		OrderNumber: evt.OrderNumber,
		Reason:      res.Reason,
		ObservedAt:  time.Now().UTC(),
	})
	return s.record(res)
}

func (s *OrderService) record(res ReconcileResult) ReconcileResult {
	switch res.Outcome {
	case OutcomeApplied:
		s.outcomes[0].Add(1)
	case OutcomeDuplicate:
		s.outcomes[1].Add(1)
	case OutcomeMissed:
		s.outcomes[2].Add(1)
	case OutcomeIgnored:
		s.outcomes[3].Add(1)
	}
	return res
}

func (s *OrderService) Stats() Stats {
	return Stats{
		Applied:   s.outcomes[0].Load(),
		Duplicate: s.outcomes[1].Load(),
		Missed:    s.outcomes[2].Load(),
		Ignored:   s.outcomes[3].Load(),
	}
}

func (s *OrderService) CheckPaymentStatus(ctx context.Context, sourceID string) (*domain.PaymentSource, error) {
	if s.payments == nil {
		return nil, &domain.GatewayError{Gateway: domain.GatewayPayMongo, Err: errors.New("gcash payments are not enabled")}
	}
	if strings.TrimSpace(sourceID) == "" || sourceID == domain.NoPaymentReference {
		return nil, fmt.Errorf("%w: source id is required", domain.ErrInvalidOrder)
	}
	if !domain.ValidSourceID(sourceID) {
		return nil, fmt.Errorf("%w: malformed source id", domain.ErrInvalidOrder)
	}
	return s.payments.CheckStatus(ctx, sourceID)
}

func (s *OrderService) GetOrder(ctx context.Context, orderNumber string) (*domain.Order, error) {
	o, err := s.repo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// ExportOrders writes every order as CSV in the persisted column order.
func (s *OrderService) ExportOrders(ctx context.Context, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(domain.SheetColumns); err != nil {
		return err
	}
	for offset := 0; ; offset += exportPageSize {
		page, err := s.repo.List(ctx, exportPageSize, offset)
		if err != nil {
			return err
		}
		for i := range page {
			if err := cw.Write(page[i].SheetRow()); err != nil {
				return err
			}
		}
		if len(page) < exportPageSize {
			break
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *OrderService) notify(ctx context.Context, log *slog.Logger, phone, message string) string {
	r := s.notifier.Send(ctx, phone, message)
	if !r.Success {
		log.Warn("sms not delivered", "err", r.Error)
		return SMSFailed
	}
	log.Info("sms sent", "message_id", r.MessageID)
	return SMSSent
}

func (s *OrderService) publish(pattern string, evt any) {
	if s.publisher == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := s.publisher.Publish(ctx, pattern, evt); err != nil {
			s.log.Error("publish event failed", "pattern", pattern, "err", err)
		}
	}()
}

// Wait blocks until in-flight event publishes finish.
func (s *OrderService) Wait() {
	s.wg.Wait()
}
