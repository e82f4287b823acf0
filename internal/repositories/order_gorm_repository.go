package repositories

import (
	"context"
	"fmt"
	"time"

	"feira/internal/errs"
	"feira/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository. Items
// live in their own table and are always preloaded.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

// GetByID retrieves an order and its items.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translate(err, "get order "+id, "order", id)
	}
	return &order, nil
}

// List retrieves the orders matching filter.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if filter.ConsumerID != "" {
		q = q.Where("consumer_id = ?", filter.ConsumerID)
	}
	if filter.ProducerID != "" {
		q = q.Where("producer_id = ?", filter.ProducerID)
	}
	if filter.LogisticsID != "" {
		q = q.Where("logistics_id = ?", filter.LogisticsID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Unassigned {
		q = q.Where("(logistics_id = '' OR logistics_id IS NULL)")
	}
	if !filter.CreatedAfter.IsZero() {
		q = q.Where("created_at >= ?", filter.CreatedAfter)
	}
	if !filter.CreatedBefore.IsZero() {
		q = q.Where("created_at <= ?", filter.CreatedBefore)
	}
	if filter.OldestFirst {
		q = q.Order("created_at ASC")
	} else {
		q = q.Order("created_at DESC")
	}
	q = q.Order("id")

	orders := make([]models.Order, 0)
	if err := q.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Create inserts the order header and its items.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	order.Version = 1
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return translate(err, "create order", "order", order.ID)
	}
	return nil
}

// Update writes the header only if the stored version matches.
func (r *GORMOrderRepository) Update(ctx context.Context, order *models.Order) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"status":                  string(order.Status),
			"logistics_id":            order.LogisticsID,
			"notes":                   order.Notes,
			"estimated_delivery_time": order.EstimatedDeliveryTime,
			"delivered_at":            order.DeliveredAt,
			"updated_at":              now,
			"version":                 gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return translate(res.Error, "update order "+order.ID, "order", order.ID)
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", order.ID).Count(&n).Error; err != nil {
			return fmt.Errorf("failed to check order %s: %w", order.ID, err)
		}
		if n == 0 {
			return errs.NotFound("order", order.ID)
		}
		return errs.ConcurrentModification("order", order.ID)
	}
	order.UpdatedAt = now
	order.Version++
	return nil
}

// ReferencesProduct reports whether any order line points at productID.
func (r *GORMOrderRepository) ReferencesProduct(ctx context.Context, productID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.OrderItem{}).
		Where("product_id = ?", productID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to check orders for product %s: %w", productID, err)
	}
	return n > 0, nil
}
