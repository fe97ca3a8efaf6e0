package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GormStore is the database-backed order store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// AutoMigrate creates or updates the order table.
func (s *GormStore) AutoMigrate() error {
	return s.db.AutoMigrate(&Order{})
}

func (s *GormStore) CreateOrder(ctx context.Context, order *Order) error {
	if order.Status == "" {
		order.Status = string(StatusPending)
	}
	if err := s.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order %s: %w", order.OrderID, err)
	}
	return nil
}

func (s *GormStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderID, err)
	}
	return &order, nil
}

// CheckStatus implements StatusSource. Both keys must match: the
// reference correlates the on-chain transfer, the order id the
// off-chain checkout.
func (s *GormStore) CheckStatus(ctx context.Context, reference, orderID string) (StatusResult, error) {
	var order Order
	err := s.db.WithContext(ctx).
		Where("reference = ? AND order_id = ?", reference, orderID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StatusResult{}, ErrOrderNotFound
	}
	if err != nil {
		return StatusResult{}, fmt.Errorf("check status %s: %w", orderID, err)
	}
	return StatusResult{Status: Status(order.Status), Signature: order.TxSignature}, nil
}

// OpenOrders returns orders still awaiting settlement.
func (s *GormStore) OpenOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := s.db.WithContext(ctx).
		Where("status IN ?", []string{string(StatusPending), string(StatusProcessing)}).
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("open orders: %w", err)
	}
	return orders, nil
}

func (s *GormStore) MarkProcessing(ctx context.Context, reference string) error {
	return s.setStatus(ctx, reference, StatusProcessing, map[string]interface{}{})
}

func (s *GormStore) MarkPaid(ctx context.Context, reference, signature string, blockHeight uint64) error {
	return s.setStatus(ctx, reference, StatusPaid, map[string]interface{}{
		"tx_signature": signature,
		"block_height": blockHeight,
	})
}

func (s *GormStore) MarkFailed(ctx context.Context, reference, reason string) error {
	return s.setStatus(ctx, reference, StatusFailed, map[string]interface{}{
		"last_error": reason,
	})
}

func (s *GormStore) setStatus(ctx context.Context, reference string, status Status, extra map[string]interface{}) error {
	extra["status"] = string(status)
	res := s.db.WithContext(ctx).Model(&Order{}).
		Where("reference = ?", reference).
		Updates(extra)
	if res.Error != nil {
		return fmt.Errorf("mark %s %s: %w", reference, status, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
