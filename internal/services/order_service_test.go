package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rodge1109/restaurantordering/internal/domain"
	"github.com/rodge1109/restaurantordering/internal/logger"
	"github.com/rodge1109/restaurantordering/internal/mocks"
)

type serviceMocks struct {
	repo     *mocks.MockOrderRepository
	payments *mocks.MockPaymentGateway
	notifier *mocks.MockNotifier
	pub      *mocks.MockPublisher
}

func newServiceMocks() serviceMocks {
	return serviceMocks{
		repo:     new(mocks.MockOrderRepository),
		payments: new(mocks.MockPaymentGateway),
		notifier: new(mocks.MockNotifier),
		pub:      new(mocks.MockPublisher),
	}
}

func (m serviceMocks) service() *OrderService {
	return NewOrderService(m.repo, m.payments, m.notifier, m.pub, logger.Discard())
}

func (m serviceMocks) assert(t *testing.T) {
	m.repo.AssertExpectations(t)
	m.payments.AssertExpectations(t)
	m.notifier.AssertExpectations(t)
	m.pub.AssertExpectations(t)
}

func TestOrderService_Submit(t *testing.T) {
	tests := []struct {
		name            string
		method          string
		mutate          func(*domain.OrderRequest)
		setupMocks      func(m serviceMocks)
		expectedError   error
		expectedStatus  domain.OrderStatus
		expectedSMS     string
		requiresPayment bool
	}{
		{
			name:   "cash order sends confirmation",
			method: "cash",
			setupMocks: func(m serviceMocks) {
				m.repo.On("Append", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
					return o.Status == domain.StatusPending &&
						o.PaymentReference == domain.NoPaymentReference &&
						strings.HasPrefix(o.OrderNumber, "ORD-") &&
						o.Total.Equal(decimal.RequireFromString(TestTotal))
				})).Return(nil).Once()
				m.notifier.On("Send", mock.Anything, TestPhone, mock.MatchedBy(func(msg string) bool {
					return strings.Contains(msg, "Php 250.00") && strings.Contains(msg, "Payment: cash")
				})).Return(domain.NotificationResult{Success: true, MessageID: "1"}).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderCreated, mock.Anything).Return(nil).Once()
			},
			expectedStatus: domain.StatusPending,
			expectedSMS:    SMSSent,
		},
		{
			name:   "sms failure does not fail the order",
			method: "credit",
			mutate: func(r *domain.OrderRequest) { r.PaymentReference = "4111-ref" },
			setupMocks: func(m serviceMocks) {
				m.repo.On("Append", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
					return o.PaymentReference == "4111-ref"
				})).Return(nil).Once()
				m.notifier.On("Send", mock.Anything, TestPhone, mock.Anything).
					Return(domain.NotificationResult{Error: "semaphore: timeout"}).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderCreated, mock.Anything).Return(nil).Once()
			},
			expectedStatus: domain.StatusPending,
			expectedSMS:    SMSFailed,
		},
		{
			name:   "no phone means no sms attempt",
			method: "cash",
			mutate: func(r *domain.OrderRequest) { r.Phone = "  " },
			setupMocks: func(m serviceMocks) {
				m.repo.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderCreated, mock.Anything).Return(nil).Once()
			},
			expectedStatus: domain.StatusPending,
			expectedSMS:    SMSNotSent,
		},
		{
			name:   "gcash order awaits payment",
			method: "gcash",
			setupMocks: func(m serviceMocks) {
				m.payments.On("CreateSource", mock.Anything, mock.MatchedBy(func(r domain.SourceRequest) bool {
					return strings.HasPrefix(r.OrderNumber, "ORD-") &&
						r.Amount.Equal(decimal.RequireFromString(TestTotal)) &&
						r.Name == TestFullName
				})).Return(CreateMockSource(TestSourceID), nil).Once()
				m.repo.On("Append", mock.Anything, mock.MatchedBy(func(o *domain.Order) bool {
					return o.Status == domain.StatusAwaitingPayment && o.PaymentReference == TestSourceID
				})).Return(nil).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderCreated, mock.Anything).Return(nil).Once()
			},
			expectedStatus:  domain.StatusAwaitingPayment,
			expectedSMS:     SMSPending,
			requiresPayment: true,
		},
		{
			name:   "gateway failure writes nothing",
			method: "gcash",
			setupMocks: func(m serviceMocks) {
				m.payments.On("CreateSource", mock.Anything, mock.Anything).
					Return(nil, &domain.GatewayError{Gateway: domain.GatewayPayMongo, StatusCode: 400, Body: "bad amount"}).Once()
			},
			expectedError: domain.ErrPaymentGateway,
		},
		{
			name:   "storage failure is returned",
			method: "cash",
			setupMocks: func(m serviceMocks) {
				m.repo.On("Append", mock.Anything, mock.Anything).Return(domain.ErrStorage).Once()
			},
			expectedError: domain.ErrStorage,
		},
		{
			name:          "invalid request touches nothing",
			method:        "cash",
			mutate:        func(r *domain.OrderRequest) { r.FullName = "" },
			setupMocks:    func(m serviceMocks) {},
			expectedError: domain.ErrInvalidOrder,
		},
		{
			name:          "zero total is rejected",
			method:        "gcash",
			mutate:        func(r *domain.OrderRequest) { r.Total = decimal.Zero },
			setupMocks:    func(m serviceMocks) {},
			expectedError: domain.ErrInvalidOrder,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newServiceMocks()
			tt.setupMocks(m)
			svc := m.service()

			req := CreateMockOrderRequest(tt.method)
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			result, err := svc.Submit(context.Background(), req)
			svc.Wait()

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedError), "got %v", err)
				assert.Nil(t, result)
				if tt.expectedError == domain.ErrStorage {
					m.repo.AssertNumberOfCalls(t, "Append", 1)
				} else {
					m.repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
				}
			} else {
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(result.OrderNumber, "ORD-"))
				assert.Equal(t, tt.expectedStatus, result.Status)
				assert.Equal(t, tt.expectedSMS, result.SMSStatus)
				assert.Equal(t, tt.requiresPayment, result.RequiresPayment)
				if tt.requiresPayment {
					assert.Equal(t, TestSourceID, result.SourceID)
					assert.Equal(t, "https://pm.link/checkout/"+TestSourceID, result.PaymentURL)
				}
			}
			m.assert(t)
		})
	}
}

func TestOrderService_SubmitGCashDisabled(t *testing.T) {
	m := newServiceMocks()
	svc := NewOrderService(m.repo, nil, m.notifier, m.pub, logger.Discard())

	_, err := svc.Submit(context.Background(), CreateMockOrderRequest("gcash"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPaymentGateway))
	m.repo.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestOrderService_SubmitUniqueOrderNumbers(t *testing.T) {
	m := newServiceMocks()
	m.repo.On("Append", mock.Anything, mock.Anything).Return(nil)
	m.pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := m.service()

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		req := CreateMockOrderRequest("cash")
		req.Phone = ""
		res, err := svc.Submit(context.Background(), req)
		require.NoError(t, err)
		assert.False(t, seen[res.OrderNumber], "duplicate %s", res.OrderNumber)
		seen[res.OrderNumber] = true
	}
	svc.Wait()
}

func chargeable(orderNumber, sourceID string) domain.WebhookEvent {
	return domain.WebhookEvent{
		ID:          "evt_1",
		Type:        domain.EventSourceChargeable,
		SourceID:    sourceID,
		OrderNumber: orderNumber,
	}
}

func TestOrderService_Reconcile(t *testing.T) {
	tests := []struct {
		name            string
		event           domain.WebhookEvent
		setupMocks      func(m serviceMocks)
		expectedOutcome Outcome
		expectedStatus  domain.OrderStatus
		expectedSMS     string
		expectedError   error
	}{
		{
			name:  "chargeable settles to paid and notifies",
			event: chargeable(TestOrderNumber, TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
					Return(CreateMockOrder(TestOrderNumber, domain.StatusAwaitingPayment, "gcash", TestSourceID), nil).Once()
				m.repo.On("UpdateStatus", mock.Anything, TestOrderNumber, domain.StatusAwaitingPayment, domain.StatusPaid, TestSourceID).
					Return(true, nil).Once()
				m.notifier.On("Send", mock.Anything, TestPhone, mock.MatchedBy(func(msg string) bool {
					return strings.Contains(msg, "received your GCash payment")
				})).Return(domain.NotificationResult{Success: true}).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderPaid, mock.Anything).Return(nil).Once()
			},
			expectedOutcome: OutcomeApplied,
			expectedStatus:  domain.StatusPaid,
			expectedSMS:     SMSSent,
		},
		{
			name:  "expired settles to payment failed without sms",
			event: domain.WebhookEvent{Type: domain.EventSourceExpired, SourceID: TestSourceID, OrderNumber: TestOrderNumber},
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
					Return(CreateMockOrder(TestOrderNumber, domain.StatusAwaitingPayment, "gcash", TestSourceID), nil).Once()
				m.repo.On("UpdateStatus", mock.Anything, TestOrderNumber, domain.StatusAwaitingPayment, domain.StatusPaymentFailed, TestSourceID).
					Return(true, nil).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderPaymentFailed, mock.Anything).Return(nil).Once()
			},
			expectedOutcome: OutcomeApplied,
			expectedStatus:  domain.StatusPaymentFailed,
		},
		{
			name:            "unknown type is ignored",
			event:           domain.WebhookEvent{Type: "payment.refunded", SourceID: TestSourceID, OrderNumber: TestOrderNumber},
			setupMocks:      func(m serviceMocks) {},
			expectedOutcome: OutcomeIgnored,
		},
		{
			name:  "unknown order is a miss",
			event: chargeable("ORD-404", TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, "ORD-404").Return(nil, nil).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderReconciliationMissed, mock.MatchedBy(func(e domain.ReconciliationMissedEvent) bool {
					return e.OrderNumber == "ORD-404" && e.Reason == "order not found"
				})).Return(nil).Once()
			},
			expectedOutcome: OutcomeMissed,
		},
		{
			name:  "missing order number is a miss",
			event: chargeable("", TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderReconciliationMissed, mock.Anything).Return(nil).Once()
			},
			expectedOutcome: OutcomeMissed,
		},
		{
			name:  "already paid is a duplicate",
			event: chargeable(TestOrderNumber, TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
					Return(CreateMockOrder(TestOrderNumber, domain.StatusPaid, "gcash", TestSourceID), nil).Once()
			},
			expectedOutcome: OutcomeDuplicate,
			expectedStatus:  domain.StatusPaid,
		},
		{
			name:  "paid order never moves to failed",
			event: domain.WebhookEvent{Type: domain.EventSourceFailed, SourceID: TestSourceID, OrderNumber: TestOrderNumber},
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
					Return(CreateMockOrder(TestOrderNumber, domain.StatusPaid, "gcash", TestSourceID), nil).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderReconciliationMissed, mock.Anything).Return(nil).Once()
			},
			expectedOutcome: OutcomeMissed,
			expectedStatus:  domain.StatusPaid,
		},
		{
			name:  "pending cash order is a miss",
			event: chargeable(TestOrderNumber, TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
					Return(CreateMockOrder(TestOrderNumber, domain.StatusPending, "cash", TestSourceID), nil).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderReconciliationMissed, mock.Anything).Return(nil).Once()
			},
			expectedOutcome: OutcomeMissed,
			expectedStatus:  domain.StatusPending,
		},
		{
			name:  "source id mismatch is a miss",
			event: chargeable(TestOrderNumber, "src_other"),
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
					Return(CreateMockOrder(TestOrderNumber, domain.StatusAwaitingPayment, "gcash", TestSourceID), nil).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderReconciliationMissed, mock.Anything).Return(nil).Once()
			},
			expectedOutcome: OutcomeMissed,
			expectedStatus:  domain.StatusAwaitingPayment,
		},
		{
			name:  "lost compare-and-swap sends nothing",
			event: chargeable(TestOrderNumber, TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
					Return(CreateMockOrder(TestOrderNumber, domain.StatusAwaitingPayment, "gcash", TestSourceID), nil).Once()
				m.repo.On("UpdateStatus", mock.Anything, TestOrderNumber, domain.StatusAwaitingPayment, domain.StatusPaid, TestSourceID).
					Return(false, nil).Once()
			},
			expectedOutcome: OutcomeDuplicate,
			expectedStatus:  domain.StatusAwaitingPayment,
		},
		{
			name:  "storage error is returned",
			event: chargeable(TestOrderNumber, TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).Return(nil, domain.ErrStorage).Once()
			},
			expectedError: domain.ErrStorage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newServiceMocks()
			tt.setupMocks(m)
			svc := m.service()

			res, err := svc.Reconcile(context.Background(), tt.event)
			svc.Wait()

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectedError))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedOutcome, res.Outcome, res.Reason)
				assert.Equal(t, tt.expectedStatus, res.Status)
				assert.Equal(t, tt.expectedSMS, res.SMSStatus)
			}
			if tt.expectedSMS == "" {
				m.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
			}
			m.assert(t)
		})
	}
}

func TestOrderService_ReconcileDedupe(t *testing.T) {
	t.Run("replay is skipped before the store", func(t *testing.T) {
		m := newServiceMocks()
		d := new(mocks.MockDeduper)
		d.On("Claim", mock.Anything, "webhook:evt_1", defaultDedupeTTL).Return(false, nil).Once()

		svc := m.service()
		svc.SetDeduper(d, 0)
		res, err := svc.Reconcile(context.Background(), chargeable(TestOrderNumber, TestSourceID))
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, res.Outcome)
		m.repo.AssertNotCalled(t, "FindByOrderNumber", mock.Anything, mock.Anything)
		d.AssertExpectations(t)
	})

	t.Run("claim is released when the store fails", func(t *testing.T) {
		m := newServiceMocks()
		m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).Return(nil, domain.ErrStorage).Once()
		d := new(mocks.MockDeduper)
		d.On("Claim", mock.Anything, "webhook:evt_1", defaultDedupeTTL).Return(true, nil).Once()
		d.On("Release", mock.Anything, "webhook:evt_1").Return(nil).Once()

		svc := m.service()
		svc.SetDeduper(d, 0)
		_, err := svc.Reconcile(context.Background(), chargeable(TestOrderNumber, TestSourceID))
		require.Error(t, err)
		d.AssertExpectations(t)
		m.assert(t)
	})

	t.Run("dedupe outage falls back to the store", func(t *testing.T) {
		m := newServiceMocks()
		m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).
			Return(CreateMockOrder(TestOrderNumber, domain.StatusPaid, "gcash", TestSourceID), nil).Once()
		d := new(mocks.MockDeduper)
		d.On("Claim", mock.Anything, mock.Anything, mock.Anything).Return(false, errors.New("redis down")).Once()

		svc := m.service()
		svc.SetDeduper(d, 0)
		res, err := svc.Reconcile(context.Background(), chargeable(TestOrderNumber, TestSourceID))
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, res.Outcome)
		d.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
		m.assert(t)
	})
}

func TestOrderService_SyncPayment(t *testing.T) {
	tests := []struct {
		name            string
		sourceStatus    domain.SourceStatus
		order           *domain.Order
		setupMocks      func(m serviceMocks)
		expectedOutcome Outcome
		expectedError   error
	}{
		{
			name:         "paid source settles the order",
			sourceStatus: domain.SourcePaid,
			order:        CreateMockOrder(TestOrderNumber, domain.StatusAwaitingPayment, "gcash", TestSourceID),
			setupMocks: func(m serviceMocks) {
				m.repo.On("UpdateStatus", mock.Anything, TestOrderNumber, domain.StatusAwaitingPayment, domain.StatusPaid, TestSourceID).Return(true, nil).Once()
				m.notifier.On("Send", mock.Anything, TestPhone, mock.Anything).Return(domain.NotificationResult{Success: true}).Once()
				m.pub.On("Publish", mock.Anything, domain.RoutingOrderPaid, mock.MatchedBy(func(e domain.OrderStatusChangedEvent) bool {
					return e.Trigger == "sync"
				})).Return(nil).Once()
			},
			expectedOutcome: OutcomeApplied,
		},
		{
			name:            "pending source changes nothing",
			sourceStatus:    domain.SourcePending,
			order:           CreateMockOrder(TestOrderNumber, domain.StatusAwaitingPayment, "gcash", TestSourceID),
			setupMocks:      func(m serviceMocks) {},
			expectedOutcome: OutcomeIgnored,
		},
		{
			name:          "cash order has nothing to sync",
			order:         CreateMockOrder(TestOrderNumber, domain.StatusPending, "cash", domain.NoPaymentReference),
			setupMocks:    func(m serviceMocks) {},
			expectedError: domain.ErrPaymentNotRequired,
		},
		{
			name:          "unknown order",
			setupMocks:    func(m serviceMocks) {},
			expectedError: domain.ErrOrderNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newServiceMocks()
			if tt.order != nil {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).Return(tt.order, nil)
			} else {
				m.repo.On("FindByOrderNumber", mock.Anything, TestOrderNumber).Return(nil, nil)
			}
			if tt.sourceStatus != "" {
				src := CreateMockSource(TestSourceID)
				src.Status = tt.sourceStatus
				m.payments.On("CheckStatus", mock.Anything, TestSourceID).Return(src, nil).Once()
			}
			tt.setupMocks(m)
			svc := m.service()

			res, err := svc.SyncPayment(context.Background(), TestOrderNumber)
			svc.Wait()

			if tt.expectedError != nil {
				assert.True(t, errors.Is(err, tt.expectedError), "got %v", err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedOutcome, res.Outcome)
			}
			m.assert(t)
		})
	}
}

func TestOrderService_ExportOrders(t *testing.T) {
	m := newServiceMocks()
	first := make([]domain.Order, exportPageSize)
	for i := range first {
		first[i] = *CreateMockOrder("ORD-"+strconv.Itoa(i), domain.StatusPending, "cash", domain.NoPaymentReference)
	}
	last := []domain.Order{*CreateMockOrder("ORD-last", domain.StatusPaid, "gcash", TestSourceID)}
	m.repo.On("List", mock.Anything, exportPageSize, 0).Return(first, nil).Once()
	m.repo.On("List", mock.Anything, exportPageSize, exportPageSize).Return(last, nil).Once()

	var buf bytes.Buffer
	require.NoError(t, m.service().ExportOrders(context.Background(), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, exportPageSize+2)
	assert.Equal(t, domain.SheetColumns, records[0])
	lastRow := records[len(records)-1]
	assert.Equal(t, "ORD-last", lastRow[1])
	assert.Equal(t, TestSourceID, lastRow[9])
	assert.Equal(t, "Paid", lastRow[15])
	m.assert(t)
}

func TestOrderService_GetOrder(t *testing.T) {
	m := newServiceMocks()
	m.repo.On("FindByOrderNumber", mock.Anything, "ORD-1").Return(nil, nil).Once()
	_, err := m.service().GetOrder(context.Background(), "ORD-1")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderService_Stats(t *testing.T) {
	m := newServiceMocks()
	svc := m.service()
	_, _ = svc.Reconcile(context.Background(), domain.WebhookEvent{Type: "checkout_session.payment.paid"})
	_, _ = svc.Reconcile(context.Background(), domain.WebhookEvent{Type: "link.payment.paid"})
	assert.Equal(t, Stats{Ignored: 2}, svc.Stats())
}

func TestMessages(t *testing.T) {
	o := CreateMockOrder(TestOrderNumber, domain.StatusPending, "cash", domain.NoPaymentReference)
	o.Barangay = "Bagumbayan"

	msg := confirmationMessage("Kuchefnero", o)
	assert.Equal(t, "Hi Juan Dela Cruz! Your order ORD-1700000000000 has been confirmed. Total: Php 250.00. Payment: cash. "+
		"We'll deliver to 12 Rizal St, Bagumbayan, Quezon City in 25-30 mins. Thank you for ordering from Kuchefnero!", msg)

	assert.Contains(t, paymentReceivedMessage("Kuchefnero", o), "Php 250.00 for order ORD-1700000000000")
	assert.Equal(t, "Kuchefnero Test: SMS integration is working! This is a test message.", SMSTestMessage("Kuchefnero"))
}
