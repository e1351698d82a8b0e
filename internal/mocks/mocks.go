package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/rodge1109/restaurantordering/internal/domain"
)

type MockOrderRepository struct {
	mock.Mock
}

type MockPaymentGateway struct {
	mock.Mock
}

type MockNotifier struct {
	mock.Mock
}

type MockPublisher struct {
	mock.Mock
}

type MockDeduper struct {
	mock.Mock
}

type MockCache struct {
	mock.Mock
}

type MockCatalogSource struct {
	mock.Mock
}

func (m *MockOrderRepository) Append(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus, paymentRef string) (bool, error) {
	args := m.Called(ctx, orderNumber, from, to, paymentRef)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *MockPaymentGateway) CreateSource(ctx context.Context, req domain.SourceRequest) (*domain.PaymentSource, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentSource), args.Error(1)
}

func (m *MockPaymentGateway) CheckStatus(ctx context.Context, sourceID string) (*domain.PaymentSource, error) {
	args := m.Called(ctx, sourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentSource), args.Error(1)
}

func (m *MockNotifier) Send(ctx context.Context, phone, message string) domain.NotificationResult {
	args := m.Called(ctx, phone, message)
	return args.Get(0).(domain.NotificationResult)
}

func (m *MockPublisher) Publish(ctx context.Context, pattern string, data any) error {
	args := m.Called(ctx, pattern, data)
	return args.Error(0)
}

func (m *MockDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockDeduper) Release(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCatalogSource) FetchRows(ctx context.Context) ([][]any, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]any), args.Error(1)
}
