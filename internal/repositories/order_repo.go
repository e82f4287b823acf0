package repositories

import (
	"context"
	"time"

	"feira/internal/models"
)

// OrderFilter narrows an order listing. Zero values do not filter.
type OrderFilter struct {
	ConsumerID    string
	ProducerID    string
	LogisticsID   string
	Status        models.OrderStatus
	Unassigned    bool // logisticsId not set
	CreatedAfter  time.Time
	CreatedBefore time.Time
	OldestFirst   bool
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// Create persists a new order with its items and sets ID, timestamps and
	// Version (1).
	Create(ctx context.Context, order *models.Order) error
	// Update writes the order header (status, logistics, notes, delivery
	// timestamps) if the stored version still equals order.Version, then
	// increments order.Version. A stale version fails with
	// errs.ErrConcurrentModification. Items are fixed once placed.
	Update(ctx context.Context, order *models.Order) error
	// ReferencesProduct reports whether any order has a line for productID.
	ReferencesProduct(ctx context.Context, productID string) (bool, error)
}
