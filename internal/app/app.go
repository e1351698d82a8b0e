// Package app wires configuration into the order services. Both the HTTP
// server and the operator CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/rodge1109/restaurantordering/internal/config"
	"github.com/rodge1109/restaurantordering/internal/infra"
	"github.com/rodge1109/restaurantordering/internal/infra/database"
	"github.com/rodge1109/restaurantordering/internal/infra/kafka"
	"github.com/rodge1109/restaurantordering/internal/infra/paymongo"
	"github.com/rodge1109/restaurantordering/internal/infra/rabbitmq"
	"github.com/rodge1109/restaurantordering/internal/infra/rediscache"
	"github.com/rodge1109/restaurantordering/internal/infra/semaphore"
	"github.com/rodge1109/restaurantordering/internal/infra/sheets"
	"github.com/rodge1109/restaurantordering/internal/repository/gormrepo"
	"github.com/rodge1109/restaurantordering/internal/services"
)

type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Orders   *services.OrderService
	Catalog  *services.CatalogService
	Payments *paymongo.Client
	SMS      *semaphore.Client

	closers []func() error
}

func Build(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	a := &App{Config: cfg}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	repo := gormrepo.NewOrderRepository(db, log)

	publisher, err := newPublisher(cfg.Events, log)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := publisher.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	a.SMS = semaphore.NewClient(cfg.SMS, log)
	if !cfg.SMS.Configured() {
		log.Warn("sms api key not configured; notifications will report failed")
	}

	var payments infra.PaymentGateway
	if cfg.PayMongo.Enabled {
		a.Payments = paymongo.NewClient(cfg.PayMongo, log)
		payments = a.Payments
	} else {
		log.Warn("paymongo disabled; gcash orders will be rejected")
	}

	a.Orders = services.NewOrderService(repo, payments, a.SMS, publisher, log)
	a.Orders.SetRestaurantName(cfg.SMS.SenderName)

	if cfg.Catalog.SheetURL != "" {
		a.Catalog = services.NewCatalogService(sheets.NewClient(cfg.Catalog.SheetURL, cfg.Catalog.APIKey, cfg.Catalog.Timeout), cfg.Catalog.CacheTTL, log)
	}

	if cfg.Redis.Addr != "" {
		rdb := rediscache.NewClient(cfg.Redis)
		cache := rediscache.New(rdb, "restaurant:")
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := cache.Ping(pingCtx)
		cancel()
		if err != nil {
			log.Warn("redis unreachable; continuing without cache and webhook dedupe", "addr", cfg.Redis.Addr, "err", err)
			rdb.Close()
		} else {
			a.Orders.SetDeduper(cache, 0)
			if a.Catalog != nil {
				a.Catalog.SetCache(cache)
			}
			a.closers = append(a.closers, rdb.Close)
		}
	}

	return a, nil
}

func newPublisher(cfg config.EventsConfig, log *slog.Logger) (infra.EventPublisher, error) {
	switch cfg.Broker {
	case "rabbitmq":
		p, err := rabbitmq.NewPublisher(cfg.URL, cfg.Exchange, log)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		return p, nil
	case "kafka":
		p, err := kafka.NewProducer(cfg.KafkaBrokerList(), cfg.KafkaTopic, log)
		if err != nil {
			return nil, fmt.Errorf("events: %w", err)
		}
		return p, nil
	default:
		return &infra.LogPublisher{Log: log.With("component", "events")}, nil
	}
}

// Close waits for in-flight event publishes, then releases connections.
func (a *App) Close() error {
	if a.Orders != nil {
		a.Orders.Wait()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
