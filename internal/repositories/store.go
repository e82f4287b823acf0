package repositories

import (
	"context"

	"feira/internal/models"
)

// Repositories groups the repositories bound to one unit of work.
type Repositories struct {
	Products ProductRepository
	Orders   OrderRepository
}

// TxFunc runs inside a transaction. Use only the repositories it receives;
// returning an error rolls back every write made through them. The function
// may be retried by stores with optimistic transactions, so it must derive
// all state from what it reads.
type TxFunc func(ctx context.Context, tx Repositories) error

// Store is the process-wide handle on the datastore. It is constructed once
// at start-up and injected into the services; it is never re-initialised.
type Store interface {
	Products() ProductRepository
	Orders() OrderRepository
	Users() UserRepository
	WithinTransaction(ctx context.Context, fn TxFunc) error
	Close() error
}

// MatchProduct reports whether p satisfies f. Stores that cannot push every
// predicate down to the datastore finish filtering with it.
func MatchProduct(p models.Product, f ProductFilter) bool {
	if f.ProducerID != "" && p.ProducerID != f.ProducerID {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.AvailableOnly && !p.IsAvailable {
		return false
	}
	if f.InStockOnly && p.Stock <= 0 {
		return false
	}
	if f.NameContains != "" && !containsFold(p.Name, f.NameContains) {
		return false
	}
	return true
}

// MatchOrder reports whether o satisfies f.
func MatchOrder(o models.Order, f OrderFilter) bool {
	if f.ConsumerID != "" && o.ConsumerID != f.ConsumerID {
		return false
	}
	if f.ProducerID != "" && o.ProducerID != f.ProducerID {
		return false
	}
	if f.LogisticsID != "" && o.LogisticsID != f.LogisticsID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if f.Unassigned && o.LogisticsID != "" {
		return false
	}
	if !f.CreatedAfter.IsZero() && o.CreatedAt.Before(f.CreatedAfter) {
		return false
	}
	if !f.CreatedBefore.IsZero() && o.CreatedAt.After(f.CreatedBefore) {
		return false
	}
	return true
}
