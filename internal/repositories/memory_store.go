package repositories

import (
	"context"
	"sync"
	"time"

	"feira/internal/errs"
	"feira/internal/models"

	"github.com/google/uuid"
)

// memoryState holds every collection of a MemoryStore behind one mutex, so
// a transaction can lock all of them at once.
type memoryState struct {
	mu       sync.Mutex
	products map[string]models.Product
	orders   map[string]models.Order
	users    map[string]models.User
	now      func() time.Time
}

// snapshot copies the product and order maps for rollback.
func (s *memoryState) snapshot() (map[string]models.Product, map[string]models.Order) {
	products := make(map[string]models.Product, len(s.products))
	for k, v := range s.products {
		products[k] = v
	}
	orders := make(map[string]models.Order, len(s.orders))
	for k, v := range s.orders {
		orders[k] = v.Clone()
	}
	return products, orders
}

// MemoryStore is an in-memory Store for development and tests. A transaction
// holds the store mutex for its whole duration and restores a snapshot when
// the function fails.
type MemoryStore struct {
	state *memoryState
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: &memoryState{
		products: make(map[string]models.Product),
		orders:   make(map[string]models.Order),
		users:    make(map[string]models.User),
		now:      time.Now,
	}}
}

func (s *MemoryStore) Products() ProductRepository {
	return &memoryProductRepository{state: s.state}
}

func (s *MemoryStore) Orders() OrderRepository {
	return &memoryOrderRepository{state: s.state}
}

func (s *MemoryStore) Users() UserRepository {
	return &memoryUserRepository{state: s.state}
}

// WithinTransaction runs fn with exclusive access to the store.
func (s *MemoryStore) WithinTransaction(ctx context.Context, fn TxFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	products, orders := s.state.snapshot()
	tx := Repositories{
		Products: &memoryProductRepository{state: s.state, locked: true},
		Orders:   &memoryOrderRepository{state: s.state, locked: true},
	}
	if err := fn(ctx, tx); err != nil {
		s.state.products = products
		s.state.orders = orders
		return err
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// memoryProductRepository is the in-memory ProductRepository. locked is set
// for repositories handed to a transaction, which already holds the mutex.
type memoryProductRepository struct {
	state  *memoryState
	locked bool
}

func (r *memoryProductRepository) lock() func() {
	if r.locked {
		return func() {}
	}
	r.state.mu.Lock()
	return r.state.mu.Unlock
}

func (r *memoryProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	defer r.lock()()
	p, ok := r.state.products[id]
	if !ok {
		return nil, errs.NotFound("product", id)
	}
	return &p, nil
}

func (r *memoryProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	defer r.lock()()
	out := make([]models.Product, 0)
	for _, p := range r.state.products {
		if MatchProduct(p, filter) {
			out = append(out, p)
		}
	}
	SortProducts(out, filter.Sort)
	return out, nil
}

func (r *memoryProductRepository) Create(ctx context.Context, product *models.Product) error {
	defer r.lock()()
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if _, exists := r.state.products[product.ID]; exists {
		return errs.Conflict("product with ID %s already exists", product.ID)
	}
	stampCreated(&product.CreatedAt, &product.UpdatedAt, r.state.now())
	r.state.products[product.ID] = *product
	return nil
}

func (r *memoryProductRepository) Update(ctx context.Context, product *models.Product) error {
	defer r.lock()()
	current, ok := r.state.products[product.ID]
	if !ok {
		return errs.NotFound("product", product.ID)
	}
	product.Stock = current.Stock
	product.CreatedAt = current.CreatedAt
	product.UpdatedAt = r.state.now()
	r.state.products[product.ID] = *product
	return nil
}

func (r *memoryProductRepository) Delete(ctx context.Context, id string) error {
	defer r.lock()()
	if _, ok := r.state.products[id]; !ok {
		return errs.NotFound("product", id)
	}
	delete(r.state.products, id)
	return nil
}

func (r *memoryProductRepository) Reserve(ctx context.Context, id string, qty int) error {
	defer r.lock()()
	p, ok := r.state.products[id]
	if !ok {
		return errs.NotFound("product", id)
	}
	if p.Stock < qty {
		return errs.InsufficientStock(p.Name, qty, p.Stock)
	}
	p.Stock -= qty
	p.UpdatedAt = r.state.now()
	r.state.products[id] = p
	return nil
}

func (r *memoryProductRepository) Release(ctx context.Context, id string, qty int) error {
	defer r.lock()()
	p, ok := r.state.products[id]
	if !ok {
		return errs.NotFound("product", id)
	}
	p.Stock += qty
	p.UpdatedAt = r.state.now()
	r.state.products[id] = p
	return nil
}

func (r *memoryProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	defer r.lock()()
	p, ok := r.state.products[id]
	if !ok {
		return errs.NotFound("product", id)
	}
	p.Stock = stock
	p.UpdatedAt = r.state.now()
	r.state.products[id] = p
	return nil
}

// memoryOrderRepository is the in-memory OrderRepository.
type memoryOrderRepository struct {
	state  *memoryState
	locked bool
}

func (r *memoryOrderRepository) lock() func() {
	if r.locked {
		return func() {}
	}
	r.state.mu.Lock()
	return r.state.mu.Unlock
}

func (r *memoryOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	defer r.lock()()
	o, ok := r.state.orders[id]
	if !ok {
		return nil, errs.NotFound("order", id)
	}
	c := o.Clone()
	return &c, nil
}

func (r *memoryOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	defer r.lock()()
	out := make([]models.Order, 0)
	for _, o := range r.state.orders {
		if MatchOrder(o, filter) {
			out = append(out, o.Clone())
		}
	}
	SortOrders(out, filter.OldestFirst)
	return out, nil
}

func (r *memoryOrderRepository) Create(ctx context.Context, order *models.Order) error {
	defer r.lock()()
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if _, exists := r.state.orders[order.ID]; exists {
		return errs.Conflict("order with ID %s already exists", order.ID)
	}
	stampCreated(&order.CreatedAt, &order.UpdatedAt, r.state.now())
	order.Version = 1
	r.state.orders[order.ID] = order.Clone()
	return nil
}

func (r *memoryOrderRepository) Update(ctx context.Context, order *models.Order) error {
	defer r.lock()()
	current, ok := r.state.orders[order.ID]
	if !ok {
		return errs.NotFound("order", order.ID)
	}
	if current.Version != order.Version {
		return errs.ConcurrentModification("order", order.ID)
	}
	current.Status = order.Status
	current.LogisticsID = order.LogisticsID
	current.Notes = order.Notes
	current.EstimatedDeliveryTime = order.EstimatedDeliveryTime
	current.DeliveredAt = order.DeliveredAt
	current.UpdatedAt = r.state.now()
	current.Version++
	r.state.orders[order.ID] = current.Clone()

	order.UpdatedAt = current.UpdatedAt
	order.Version = current.Version
	return nil
}

func (r *memoryOrderRepository) ReferencesProduct(ctx context.Context, productID string) (bool, error) {
	defer r.lock()()
	for _, o := range r.state.orders {
		for _, item := range o.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

// memoryUserRepository is the in-memory UserRepository.
type memoryUserRepository struct {
	state *memoryState
}

func (r *memoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, u := range r.state.users {
		if u.Email == user.Email {
			return errs.Conflict("email %s is already registered", user.Email)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	stampCreated(&user.CreatedAt, &user.UpdatedAt, r.state.now())
	r.state.users[user.ID] = copyUser(*user)
	return nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	for _, u := range r.state.users {
		if u.Email == email {
			c := copyUser(u)
			return &c, nil
		}
	}
	return nil, errs.NotFound("user", email)
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	u, ok := r.state.users[id]
	if !ok {
		return nil, errs.NotFound("user", id)
	}
	c := copyUser(u)
	return &c, nil
}

func (r *memoryUserRepository) Update(ctx context.Context, user *models.User) error {
	r.state.mu.Lock()
	defer r.state.mu.Unlock()
	current, ok := r.state.users[user.ID]
	if !ok {
		return errs.NotFound("user", user.ID)
	}
	user.CreatedAt = current.CreatedAt
	user.UpdatedAt = r.state.now()
	r.state.users[user.ID] = copyUser(*user)
	return nil
}

func copyUser(u models.User) models.User {
	if u.Profile != nil {
		profile := make(map[string]string, len(u.Profile))
		for k, v := range u.Profile {
			profile[k] = v
		}
		u.Profile = profile
	}
	return u
}

// stampCreated fills unset creation timestamps, matching GORM's
// autoCreateTime behaviour.
func stampCreated(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
