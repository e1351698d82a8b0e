package infra

import (
	"context"
	"log/slog"
	"time"

	"github.com/rodge1109/restaurantordering/internal/domain"
	"github.com/rodge1109/restaurantordering/internal/infra/kafka"
	"github.com/rodge1109/restaurantordering/internal/infra/paymongo"
	"github.com/rodge1109/restaurantordering/internal/infra/rabbitmq"
	"github.com/rodge1109/restaurantordering/internal/infra/rediscache"
	"github.com/rodge1109/restaurantordering/internal/infra/semaphore"
	"github.com/rodge1109/restaurantordering/internal/infra/sheets"
)

type PaymentGateway interface {
	CreateSource(ctx context.Context, req domain.SourceRequest) (*domain.PaymentSource, error)
	CheckStatus(ctx context.Context, sourceID string) (*domain.PaymentSource, error)
}

// Notifier never returns an error; failures are reported in the result.
type Notifier interface {
	Send(ctx context.Context, phone, message string) domain.NotificationResult
}

type CatalogSource interface {
	FetchRows(ctx context.Context) ([][]any, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, pattern string, data any) error
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Deduper guards webhook deliveries against replays.
type Deduper interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

var (
	_ PaymentGateway = (*paymongo.Client)(nil)
	_ Notifier       = (*semaphore.Client)(nil)
	_ CatalogSource  = (*sheets.Client)(nil)
	_ EventPublisher = (*rabbitmq.Publisher)(nil)
	_ EventPublisher = (*kafka.Producer)(nil)
	_ EventPublisher = (*LogPublisher)(nil)
	_ Cache          = (*rediscache.Cache)(nil)
	_ Deduper        = (*rediscache.Cache)(nil)
)

// LogPublisher stands in when no broker is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p *LogPublisher) Publish(_ context.Context, pattern string, data any) error {
	p.Log.Info("event", "pattern", pattern, "data", data)
	return nil
}
