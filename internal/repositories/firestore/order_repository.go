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

// OrderRepository stores orders, items embedded, in the "orders" collection.
type OrderRepository struct {
	client *firestore.Client
	tx     *txState
}

func (r *OrderRepository) ref(id string) *firestore.DocumentRef {
	return r.client.Collection(ordersCollection).Doc(id)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	ref := r.ref(id)
	if r.tx != nil {
		doc, err := r.tx.order(ref)
		if err != nil {
			return nil, err
		}
		o := doc.toModel(id)
		return &o, nil
	}
	snap, err := ref.Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("order", id)
		}
		return nil, fmt.Errorf("firestore: get order %s: %w", id, err)
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode order %s: %w", id, err)
	}
	o := doc.toModel(id)
	return &o, nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	q := r.client.Collection(ordersCollection).Query
	if filter.ConsumerID != "" {
		q = q.Where("consumerId", "==", filter.ConsumerID)
	}
	if filter.ProducerID != "" {
		q = q.Where("producerId", "==", filter.ProducerID)
	}
	if filter.LogisticsID != "" {
		q = q.Where("logisticsId", "==", filter.LogisticsID)
	}
	if filter.Status != "" {
		q = q.Where("status", "==", string(filter.Status))
	}
	if filter.Unassigned {
		q = q.Where("logisticsId", "==", "")
	}
	snaps, err := documents(ctx, r.tx, q)
	if err != nil {
		return nil, fmt.Errorf("firestore: list orders: %w", err)
	}
	out := make([]models.Order, 0, len(snaps))
	for _, snap := range snaps {
		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("firestore: decode order %s: %w", snap.Ref.ID, err)
		}
		o := doc.toModel(snap.Ref.ID)
		if repositories.MatchOrder(o, filter) {
			out = append(out, o)
		}
	}
	repositories.SortOrders(out, filter.OldestFirst)
	return out, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	order.Version = 1
	doc := newOrderDocument(*order)
	ref := r.ref(order.ID)

	var err error
	if r.tx != nil {
		err = r.tx.tx.Create(ref, doc)
		r.tx.orders[ref.ID] = &doc
	} else {
		_, err = ref.Create(ctx, doc)
	}
	if err != nil {
		if isAlreadyExists(err) {
			return errs.Conflict("order with ID %s already exists", order.ID)
		}
		return fmt.Errorf("firestore: create order: %w", err)
	}
	return nil
}

// Update compares the version read in this transaction with order.Version
// before writing; Firestore aborts the transaction if the document changed
// after that read.
func (r *OrderRepository) Update(ctx context.Context, order *models.Order) error {
	return run(ctx, r.client, r.tx, func(ctx context.Context, st *txState) error {
		ref := r.ref(order.ID)
		current, err := st.order(ref)
		if err != nil {
			return err
		}
		if current.Version != order.Version {
			return errs.ConcurrentModification("order", order.ID)
		}
		now := time.Now().UTC()
		next := *current
		next.Status = string(order.Status)
		next.LogisticsID = order.LogisticsID
		next.Notes = order.Notes
		next.EstimatedDeliveryTime = utcPtr(order.EstimatedDeliveryTime)
		next.DeliveredAt = utcPtr(order.DeliveredAt)
		next.UpdatedAt = now
		next.Version = current.Version + 1
		if err := st.tx.Set(ref, next); err != nil {
			return fmt.Errorf("firestore: update order %s: %w", order.ID, err)
		}
		*current = next
		order.UpdatedAt = now
		order.Version = next.Version
		return nil
	})
}

func (r *OrderRepository) ReferencesProduct(ctx context.Context, productID string) (bool, error) {
	q := r.client.Collection(ordersCollection).Where("productIds", "array-contains", productID).Limit(1)
	snaps, err := documents(ctx, r.tx, q)
	if err != nil {
		return false, fmt.Errorf("firestore: check orders for product %s: %w", productID, err)
	}
	return len(snaps) > 0, nil
}
