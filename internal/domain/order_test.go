package domain

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{StatusAwaitingPayment, StatusPaid, true},
		{StatusAwaitingPayment, StatusPaymentFailed, true},
		{StatusAwaitingPayment, StatusPending, false},
		{StatusPending, StatusPaid, false},
		{StatusPending, StatusPaymentFailed, false},
		{StatusPaid, StatusPaymentFailed, false},
		{StatusPaid, StatusPending, false},
		{StatusPaymentFailed, StatusPaid, false},
		{StatusPaymentFailed, StatusAwaitingPayment, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusPaid.IsTerminal())
	assert.True(t, StatusPaymentFailed.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusAwaitingPayment.IsTerminal())
}

func TestParsePaymentMethod(t *testing.T) {
	tests := map[string]PaymentMethod{
		"gcash":   MethodGCash,
		" GCash ": MethodGCash,
		"cash":    MethodCash,
		"COD":     MethodCash,
		"credit":  MethodCard,
		"card":    MethodCard,
		"paypal":  MethodOther,
		"":        MethodOther,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParsePaymentMethod(raw), "raw=%q", raw)
	}
	assert.True(t, MethodGCash.SettlesExternally())
	assert.False(t, MethodCash.SettlesExternally())
	assert.False(t, MethodCard.SettlesExternally())
}

func TestOrder_SheetRow(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	o := &Order{
		OrderNumber:      "ORD-1740825000000",
		FullName:         "Juan Dela Cruz",
		Email:            "juan@example.com",
		Phone:            "09171234567",
		Address:          "12 Rizal St",
		City:             "Quezon City",
		Barangay:         "Bagumbayan",
		PaymentMethod:    "cash",
		PaymentReference: NoPaymentReference,
		Items:            "Margherita Pizza (x1) - Php 250.00",
		Subtotal:         decimal.RequireFromString("200"),
		DeliveryFee:      decimal.RequireFromString("34"),
		Tax:              decimal.RequireFromString("16"),
		Total:            decimal.RequireFromString("250"),
		Status:           StatusPending,
		CreatedAt:        created,
	}

	row := o.SheetRow()
	require.Len(t, row, len(SheetColumns))
	assert.Equal(t, "2025-03-01T10:30:00Z", row[0])
	assert.Equal(t, "ORD-1740825000000", row[1])
	assert.Equal(t, "Bagumbayan", row[7])
	assert.Equal(t, "N/A", row[9])
	assert.Equal(t, "200.00", row[11])
	assert.Equal(t, "250.00", row[14])
	assert.Equal(t, "Pending", row[15])
}

func TestOrderNumberGenerator_SameMillisecond(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := &OrderNumberGenerator{now: func() time.Time { return fixed }}

	assert.Equal(t, "ORD-1700000000000", g.Next())
	assert.Equal(t, "ORD-1700000000001", g.Next())
	assert.Equal(t, "ORD-1700000000002", g.Next())
}

func TestOrderNumberGenerator_Concurrent(t *testing.T) {
	g := NewOrderNumberGenerator()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		seen = make(map[string]struct{})
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := g.Next()
			mu.Lock()
			seen[n] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	for n := range seen {
		assert.True(t, strings.HasPrefix(n, "ORD-"))
	}
}
