package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/rodge1109/restaurantordering/internal/domain"
	"github.com/rodge1109/restaurantordering/internal/repository"
)

type orderRepo struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewOrderRepository(db *gorm.DB, log *slog.Logger) repository.OrderRepository {
	return &orderRepo{db: db, log: log}
}

func (r *orderRepo) Append(ctx context.Context, order *domain.Order) error {
	result := r.db.WithContext(ctx).Create(order)
	if result.Error != nil {
		r.log.Error("order append failed", "orderNumber", order.OrderNumber, "err", result.Error)
		return storageErr("append "+order.OrderNumber, result.Error)
	}
	if order.ID == 0 {
		return fmt.Errorf("%w: append %s: no id assigned", domain.ErrStorage, order.OrderNumber)
	}
	return nil
}

func (r *orderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Where("order_number = ?", orderNumber).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, storageErr("find "+orderNumber, err)
	}
	return &o, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderNumber string, from, to domain.OrderStatus, paymentRef string) (bool, error) {
	changes := map[string]any{
		"status":     string(to),
		"updated_at": time.Now(),
	}
	if paymentRef != "" {
		changes["payment_reference"] = paymentRef
	}

	result := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("order_number = ? AND status = ?", orderNumber, string(from)).
		Updates(changes)
	if result.Error != nil {
		r.log.Error("order status update failed", "orderNumber", orderNumber, "to", to, "err", result.Error)
		return false, storageErr("update "+orderNumber, result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *orderRepo) List(ctx context.Context, limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	q := r.db.WithContext(ctx).Order("id ASC").Offset(offset)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, storageErr("list", err)
	}
	return out, nil
}

// storageErr classifies driver errors: a missing table means the store was
// never provisioned, anything else is an ordinary write/read failure.
func storageErr(op string, err error) error {
	if isMissingTable(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrStoreNotConfigured, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStorage, op, err)
}

func isMissingTable(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "doesn't exist") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}
