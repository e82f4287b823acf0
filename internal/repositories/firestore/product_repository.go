package firestore

import (
	"context"
	"fmt"
	"time"

	"feira/internal/errs"
	"feira/internal/models"
	"feira/internal/repositories"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
)

// ProductRepository stores products in the "products" collection.
type ProductRepository struct {
	client *firestore.Client
	tx     *txState
}

func (r *ProductRepository) ref(id string) *firestore.DocumentRef {
	return r.client.Collection(productsCollection).Doc(id)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	ref := r.ref(id)
	if r.tx != nil {
		doc, err := r.tx.product(ref)
		if err != nil {
			return nil, err
		}
		p := doc.toModel(id)
		return &p, nil
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("product", id)
		}
		return nil, fmt.Errorf("firestore: get product %s: %w", id, err)
	}
	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode product %s: %w", id, err)
	}
	p := doc.toModel(id)
	return &p, nil
}

// List pushes the equality predicates to Firestore and applies the rest,
// plus ordering, in memory so no composite index is needed.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	q := r.client.Collection(productsCollection).Query
	if filter.ProducerID != "" {
		q = q.Where("producerId", "==", filter.ProducerID)
	}
	if filter.Category != "" {
		q = q.Where("category", "==", filter.Category)
	}
	if filter.AvailableOnly {
		q = q.Where("isAvailable", "==", true)
	}
	snaps, err := documents(ctx, r.tx, q)
	if err != nil {
		return nil, fmt.Errorf("firestore: list products: %w", err)
	}
	out := make([]models.Product, 0, len(snaps))
	for _, snap := range snaps {
		var doc productDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore: decode product %s: %w", snap.Ref.ID, err)
		}
		p := doc.toModel(snap.Ref.ID)
		if repositories.MatchProduct(p, filter) {
			out = append(out, p)
		}
	}
	repositories.SortProducts(out, filter.Sort)
	return out, nil
}

func (r *ProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	doc := newProductDocument(*product)
	ref := r.ref(product.ID)

	var err error
	if r.tx != nil {
		err = r.tx.tx.Create(ref, doc)
		r.tx.products[ref.ID] = &doc
	} else {
		_, err = ref.Create(ctx, doc)
	}
	if err != nil {
		if isAlreadyExists(err) {
			return errs.Conflict("product with ID %s already exists", product.ID)
		}
		return fmt.Errorf("firestore: create product: %w", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product *models.Product) error {
	ref := r.ref(product.ID)
	product.UpdatedAt = time.Now().UTC()
	updates := []firestore.Update{
		{Path: "name", Value: product.Name},
		{Path: "description", Value: product.Description},
		{Path: "category", Value: product.Category},
		{Path: "price", Value: product.Price},
		{Path: "unit", Value: product.Unit},
		{Path: "imageUrl", Value: product.ImageURL},
		{Path: "isAvailable", Value: product.IsAvailable},
		{Path: "updatedAt", Value: product.UpdatedAt},
	}
	var err error
	if r.tx != nil {
		err = r.tx.tx.Update(ref, updates)
		if doc, ok := r.tx.products[product.ID]; ok {
			stock, created := doc.Stock, doc.CreatedAt
			*doc = newProductDocument(*product)
			doc.Stock, doc.CreatedAt = stock, created
		}
	} else {
		_, err = ref.Update(ctx, updates)
	}
	if err != nil {
		if isNotFound(err) {
			return errs.NotFound("product", product.ID)
		}
		return fmt.Errorf("firestore: update product %s: %w", product.ID, err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ref := r.ref(id)
	var err error
	if r.tx != nil {
		err = r.tx.tx.Delete(ref, firestore.Exists)
		delete(r.tx.products, id)
	} else {
		_, err = ref.Delete(ctx, firestore.Exists)
	}
	if err != nil {
		if isNotFound(err) {
			return errs.NotFound("product", id)
		}
		return fmt.Errorf("firestore: delete product %s: %w", id, err)
	}
	return nil
}

// Reserve checks and decrements stock in one transaction. Inside a bound
// transaction the product must already have been read, or no write may
// have happened yet.
func (r *ProductRepository) Reserve(ctx context.Context, id string, qty int) error {
	return run(ctx, r.client, r.tx, func(ctx context.Context, st *txState) error {
		ref := r.ref(id)
		doc, err := st.product(ref)
		if err != nil {
			return err
		}
		if doc.Stock < qty {
			return errs.InsufficientStock(doc.Name, qty, doc.Stock)
		}
		doc.Stock -= qty
		doc.UpdatedAt = time.Now().UTC()
		return st.tx.Update(ref, []firestore.Update{
			{Path: "stock", Value: doc.Stock},
			{Path: "updatedAt", Value: doc.UpdatedAt},
		})
	})
}

// Release adds qty to stock with a server-side increment.
func (r *ProductRepository) Release(ctx context.Context, id string, qty int) error {
	ref := r.ref(id)
	updates := []firestore.Update{
		{Path: "stock", Value: firestore.Increment(qty)},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	}
	var err error
	if r.tx != nil {
		err = r.tx.tx.Update(ref, updates)
		if doc, ok := r.tx.products[id]; ok {
			doc.Stock += qty
		}
	} else {
		_, err = ref.Update(ctx, updates)
	}
	if err != nil {
		if isNotFound(err) {
			return errs.NotFound("product", id)
		}
		return fmt.Errorf("firestore: release stock for product %s: %w", id, err)
	}
	return nil
}

func (r *ProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	ref := r.ref(id)
	updates := []firestore.Update{
		{Path: "stock", Value: stock},
		{Path: "updatedAt", Value: time.Now().UTC()},
	}
	var err error
	if r.tx != nil {
		err = r.tx.tx.Update(ref, updates)
		if doc, ok := r.tx.products[id]; ok {
			doc.Stock = stock
		}
	} else {
		_, err = ref.Update(ctx, updates)
	}
	if err != nil {
		if isNotFound(err) {
			return errs.NotFound("product", id)
		}
		return fmt.Errorf("firestore: set stock for product %s: %w", id, err)
	}
	return nil
}
