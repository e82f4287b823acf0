package services

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"feira/internal/errs"
	"feira/internal/models"
	"feira/internal/repositories"

	"go.uber.org/zap"
)

// ProductService is the catalog: consumer-facing listings, producer
// catalog management and the reserve/release inventory primitives.
type ProductService struct {
	store  repositories.Store
	logger *zap.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(store repositories.Store, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		store:  store,
		logger: logger,
	}
}

// ProductInput carries the editable fields of a product. Nil fields are
// left unchanged on update.
type ProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Price       *float64
	Stock       *int
	Unit        *string
	ImageURL    *string
	IsAvailable *bool
}

func (in ProductInput) apply(p *models.Product) {
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = strings.TrimSpace(*in.Description)
	}
	if in.Category != nil {
		p.Category = strings.TrimSpace(*in.Category)
	}
	if in.Price != nil {
		p.Price = *in.Price
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.Unit != nil {
		p.Unit = strings.TrimSpace(*in.Unit)
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if in.IsAvailable != nil {
		p.IsAvailable = *in.IsAvailable
	}
}

// validateProduct enforces the catalog rules on a complete product.
func validateProduct(p models.Product) error {
	var fields []string
	if utf8.RuneCountInString(p.Name) < 2 {
		fields = append(fields, "name: must be at least 2 characters")
	}
	if utf8.RuneCountInString(p.Description) < 10 {
		fields = append(fields, "description: must be at least 10 characters")
	}
	if utf8.RuneCountInString(p.Category) < 2 {
		fields = append(fields, "category: must be at least 2 characters")
	}
	if p.Price <= 0 {
		fields = append(fields, "price: must be greater than 0")
	}
	if p.Stock < 0 {
		fields = append(fields, "stock: must not be negative")
	}
	if len(fields) > 0 {
		return errs.Validation("invalid product", fields...)
	}
	return nil
}

// GetByID returns any product by id.
func (s *ProductService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return s.store.Products().GetByID(ctx, id)
}

// ListAvailable returns listed products (available and in stock), most
// stock first.
func (s *ProductService) ListAvailable(ctx context.Context) ([]models.Product, error) {
	return s.store.Products().List(ctx, repositories.ProductFilter{
		AvailableOnly: true,
		InStockOnly:   true,
		Sort:          repositories.SortStockDesc,
	})
}

// ListByCategory returns the listed products of one category.
func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return s.store.Products().List(ctx, repositories.ProductFilter{
		Category:      strings.TrimSpace(category),
		AvailableOnly: true,
		InStockOnly:   true,
		Sort:          repositories.SortStockDesc,
	})
}

// Search returns listed products whose name contains term, ignoring case.
func (s *ProductService) Search(ctx context.Context, term string) ([]models.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, errs.Validation("search term is required", "q: is required")
	}
	return s.store.Products().List(ctx, repositories.ProductFilter{
		NameContains:  term,
		AvailableOnly: true,
		InStockOnly:   true,
	})
}

// ListByProducer returns every product of a producer, newest first.
func (s *ProductService) ListByProducer(ctx context.Context, producerID string) ([]models.Product, error) {
	return s.store.Products().List(ctx, repositories.ProductFilter{ProducerID: producerID})
}

// Categories returns the sorted distinct categories of listed products.
func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	products, err := s.ListAvailable(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok || p.Category == "" {
			continue
		}
		seen[p.Category] = struct{}{}
		categories = append(categories, p.Category)
	}
	sort.Strings(categories)
	return categories, nil
}

// Create adds a product to the acting producer's catalog. Unit defaults to
// "unidade" and availability to true.
func (s *ProductService) Create(ctx context.Context, actor models.Actor, in ProductInput) (*models.Product, error) {
	if actor.Role != models.RoleProducer {
		return nil, errs.Forbidden("only producers can create products")
	}
	p := models.Product{ProducerID: actor.ID, IsAvailable: true}
	in.apply(&p)
	if p.Unit == "" {
		p.Unit = models.DefaultUnit
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if err := s.store.Products().Create(ctx, &p); err != nil {
		return nil, err
	}
	s.logger.Info("product created", zap.String("product_id", p.ID), zap.String("producer_id", p.ProducerID))
	return &p, nil
}

// owned loads a product and checks that the actor is its producer.
func (s *ProductService) owned(ctx context.Context, actor models.Actor, id string) (*models.Product, error) {
	p, err := s.store.Products().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleProducer || p.ProducerID != actor.ID {
		return nil, errs.Forbidden("product %s does not belong to %s", id, actor.ID)
	}
	return p, nil
}

// Update applies a partial edit by the owning producer. Existing orders are
// unaffected; they keep their own item snapshots.
func (s *ProductService) Update(ctx context.Context, actor models.Actor, id string, in ProductInput) (*models.Product, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if p.Unit == "" {
		p.Unit = models.DefaultUnit
	}
	if err := validateProduct(*p); err != nil {
		return nil, err
	}
	err = s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		if in.Stock != nil {
			// Update never writes stock; an explicit value is an absolute write.
			if err := tx.Products.SetStock(ctx, id, *in.Stock); err != nil {
				return err
			}
		}
		return tx.Products.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return s.store.Products().GetByID(ctx, id)
}

// SetStock overwrites the stock of an owned product.
func (s *ProductService) SetStock(ctx context.Context, actor models.Actor, id string, stock int) (*models.Product, error) {
	if stock < 0 {
		return nil, errs.Validation("invalid stock", "stock: must not be negative")
	}
	if _, err := s.owned(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.store.Products().SetStock(ctx, id, stock); err != nil {
		return nil, err
	}
	s.logger.Info("product stock set", zap.String("product_id", id), zap.Int("stock", stock))
	return s.store.Products().GetByID(ctx, id)
}

// ToggleAvailability flips isAvailable of an owned product.
func (s *ProductService) ToggleAvailability(ctx context.Context, actor models.Actor, id string) (*models.Product, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	p.IsAvailable = !p.IsAvailable
	if err := s.store.Products().Update(ctx, p); err != nil {
		return nil, err
	}
	return s.store.Products().GetByID(ctx, id)
}

// Delete removes an owned product. Products referenced by any order are
// kept so order history and stock release stay consistent.
func (s *ProductService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		referenced, err := tx.Orders.ReferencesProduct(ctx, id)
		if err != nil {
			return err
		}
		if referenced {
			return errs.InvalidState("product %s is referenced by existing orders; make it unavailable instead", id)
		}
		return tx.Products.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.String("product_id", id))
	return nil
}

// Reserve claims qty units of stock, failing with errs.ErrInsufficientStock.
func (s *ProductService) Reserve(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return errs.Validation("invalid quantity", "quantity: must be greater than 0")
	}
	return s.store.Products().Reserve(ctx, id, qty)
}

// Release returns qty units of stock.
func (s *ProductService) Release(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return errs.Validation("invalid quantity", "quantity: must be greater than 0")
	}
	return s.store.Products().Release(ctx, id, qty)
}
