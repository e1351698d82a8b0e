package repository

import (
	"context"

	"github.com/rodge1109/restaurantordering/internal/domain"
)

// OrderRepository is the order ledger. Rows are never deleted and, after
// Append, only status and payment reference change.
type OrderRepository interface {
	Append(ctx context.Context, order *domain.Order) error
	// FindByOrderNumber returns (nil, nil) when no order matches.
	FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	// UpdateStatus moves an order from one status to another in a single
	// conditional write. It reports false when the order does not exist or is
	// no longer in from. An empty paymentRef leaves the reference unchanged.
	UpdateStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus, paymentRef string) (bool, error)
	List(ctx context.Context, limit, offset int) ([]domain.Order, error)
}
