package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"feira/internal/errs"
	"feira/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err, "get product "+id, "product", id)
	}
	return &product, nil
}

// List retrieves the products matching filter.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if filter.ProducerID != "" {
		q = q.Where("producer_id = ?", filter.ProducerID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	if filter.AvailableOnly {
		q = q.Where("is_available = ?", true)
	}
	if filter.InStockOnly {
		q = q.Where("stock > 0")
	}
	if filter.NameContains != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.NameContains)+"%")
	}
	if filter.Sort == SortStockDesc {
		q = q.Order("stock DESC")
	}
	q = q.Order("created_at DESC").Order("id")

	products := make([]models.Product, 0)
	if err := q.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return translate(err, "create product", "product", product.ID)
	}
	return nil
}

// Update writes every editable column of an existing product but stock.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", product.ID).
		Select("name", "description", "category", "price", "unit", "image_url", "is_available", "updated_at").
		Updates(product)
	if res.Error != nil {
		return translate(res.Error, "update product "+product.ID, "product", product.ID)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product", product.ID)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error, "delete product "+id, "product", id)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product", id)
	}
	return nil
}

// Reserve decrements stock with a single conditional UPDATE, so two
// concurrent reservations can never both succeed on the last units.
func (r *GORMProductRepository) Reserve(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "reserve stock for product "+id, "product", id)
	}
	if res.RowsAffected == 0 {
		current, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		return errs.InsufficientStock(current.Name, qty, current.Stock)
	}
	return nil
}

// Release returns qty units to stock.
func (r *GORMProductRepository) Release(ctx context.Context, id string, qty int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "release stock for product "+id, "product", id)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product", id)
	}
	return nil
}

// SetStock overwrites the stock column.
func (r *GORMProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	res := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"stock":      stock,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return translate(res.Error, "set stock for product "+id, "product", id)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("product", id)
	}
	return nil
}
