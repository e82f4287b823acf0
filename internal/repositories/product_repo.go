package repositories

import (
	"context"

	"feira/internal/models"
)

// ProductSort selects the ordering of a product listing.
type ProductSort int

const (
	// SortNewest orders by creation time, newest first.
	SortNewest ProductSort = iota
	// SortStockDesc orders by stock descending, then newest first.
	SortStockDesc
)

// ProductFilter narrows a product listing. Zero values do not filter.
type ProductFilter struct {
	ProducerID    string
	Category      string
	NameContains  string // case-insensitive substring
	AvailableOnly bool   // isAvailable == true
	InStockOnly   bool   // stock > 0
	Sort          ProductSort
}

// ProductRepository defines the interface for product data access.
//
// Reserve and Release are the only stock mutations that depend on the
// current value; both are single conditional writes.
type ProductRepository interface {
	GetByID(ctx context.Context, id string) (*models.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	// Update writes every editable field except stock, which only changes
	// through Reserve, Release and SetStock.
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error

	// Reserve decrements stock by qty, failing with errs.ErrInsufficientStock
	// when stock < qty. Stock is never observed below zero.
	Reserve(ctx context.Context, id string, qty int) error
	// Release increments stock by qty.
	Release(ctx context.Context, id string, qty int) error
	// SetStock overwrites stock with an absolute, non-negative value.
	SetStock(ctx context.Context, id string, stock int) error
}
