package firestore

import (
	"context"
	"fmt"

	"feira/internal/errs"
	"feira/internal/repositories"

	"cloud.google.com/go/firestore"
)

// txState is shared by the repositories of one transaction attempt.
type txState struct {
	tx       *firestore.Transaction
	products map[string]*productDocument
	orders   map[string]*orderDocument
}

func newTxState(tx *firestore.Transaction) *txState {
	return &txState{
		tx:       tx,
		products: make(map[string]*productDocument),
		orders:   make(map[string]*orderDocument),
	}
}

func (s *txState) product(ref *firestore.DocumentRef) (*productDocument, error) {
	if doc, ok := s.products[ref.ID]; ok {
		return doc, nil
	}
	snap, err := s.tx.Get(ref)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("product", ref.ID)
		}
		return nil, fmt.Errorf("firestore: get product %s: %w", ref.ID, err)
	}
	var doc productDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode product %s: %w", ref.ID, err)
	}
	s.products[ref.ID] = &doc
	return &doc, nil
}

func (s *txState) order(ref *firestore.DocumentRef) (*orderDocument, error) {
	if doc, ok := s.orders[ref.ID]; ok {
		return doc, nil
	}
	snap, err := s.tx.Get(ref)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("order", ref.ID)
		}
		return nil, fmt.Errorf("firestore: get order %s: %w", ref.ID, err)
	}
	var doc orderDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore: decode order %s: %w", ref.ID, err)
	}
	s.orders[ref.ID] = &doc
	return &doc, nil
}

// Store is a repositories.Store on a Firestore client.
type Store struct {
	client *firestore.Client
}

// NewStore wraps client. The store owns it and closes it on Close.
func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Products() repositories.ProductRepository {
	return &ProductRepository{client: s.client}
}

func (s *Store) Orders() repositories.OrderRepository {
	return &OrderRepository{client: s.client}
}

func (s *Store) Users() repositories.UserRepository {
	return &UserRepository{client: s.client}
}

// WithinTransaction runs fn in a Firestore transaction. Firestore retries
// fn when the transaction is aborted by contention.
func (s *Store) WithinTransaction(ctx context.Context, fn repositories.TxFunc) error {
	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		st := newTxState(tx)
		return fn(ctx, repositories.Repositories{
			Products: &ProductRepository{client: s.client, tx: st},
			Orders:   &OrderRepository{client: s.client, tx: st},
		})
	})
}

func (s *Store) Close() error {
	return s.client.Close()
}

// run executes fn in the bound transaction, or in a new one.
func run(ctx context.Context, client *firestore.Client, st *txState, fn func(ctx context.Context, st *txState) error) error {
	if st != nil {
		return fn(ctx, st)
	}
	return client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fn(ctx, newTxState(tx))
	})
}

func documents(ctx context.Context, st *txState, q firestore.Query) ([]*firestore.DocumentSnapshot, error) {
	if st != nil {
		return st.tx.Documents(q).GetAll()
	}
	return q.Documents(ctx).GetAll()
}
