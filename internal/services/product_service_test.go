package services_test

import (
	"context"
	"fmt"
	"testing"

	"feira/internal/errs"
	"feira/internal/models"
	"feira/internal/repositories"
	"feira/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) List(ctx context.Context, filter repositories.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) Reserve(ctx context.Context, id string, qty int) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *MockProductRepository) Release(ctx context.Context, id string, qty int) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

func (m *MockProductRepository) SetStock(ctx context.Context, id string, stock int) error {
	args := m.Called(ctx, id, stock)
	return args.Error(0)
}

// productOnlyStore serves a mocked product repository and nothing else.
type productOnlyStore struct {
	products *MockProductRepository
}

func (s productOnlyStore) Products() repositories.ProductRepository { return s.products }
func (s productOnlyStore) Orders() repositories.OrderRepository     { return nil }
func (s productOnlyStore) Users() repositories.UserRepository       { return nil }
func (s productOnlyStore) Close() error                             { return nil }

func (s productOnlyStore) WithinTransaction(ctx context.Context, fn repositories.TxFunc) error {
	return fn(ctx, repositories.Repositories{Products: s.products})
}

func newMockedProductService() (*services.ProductService, *MockProductRepository) {
	mockRepo := new(MockProductRepository)
	return services.NewProductService(productOnlyStore{products: mockRepo}, nil), mockRepo
}

func ptr[T any](v T) *T { return &v }

var (
	producer  = models.Actor{ID: "producer-1", Role: models.RoleProducer}
	producer2 = models.Actor{ID: "producer-2", Role: models.RoleProducer}
	consumer  = models.Actor{ID: "consumer-1", Role: models.RoleConsumer}
	courier   = models.Actor{ID: "courier-1", Role: models.RoleLogistics}
)

func TestProductService_ListAvailable(t *testing.T) {
	ctx := context.Background()
	service, mockRepo := newMockedProductService()

	expectedProducts := []models.Product{
		{ID: "1", Name: "Product A", Price: 10.0, Stock: 100, IsAvailable: true},
		{ID: "2", Name: "Product B", Price: 20.0, Stock: 50, IsAvailable: true},
	}
	mockRepo.On("List", ctx, repositories.ProductFilter{
		AvailableOnly: true,
		InStockOnly:   true,
		Sort:          repositories.SortStockDesc,
	}).Return(expectedProducts, nil).Once()

	products, err := service.ListAvailable(ctx)
	assert.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)
}

func TestProductService_GetByID(t *testing.T) {
	ctx := context.Background()
	service, mockRepo := newMockedProductService()

	expectedProduct := &models.Product{ID: "1", Name: "Product A", Price: 10.0, Stock: 100}

	mockRepo.On("GetByID", ctx, "1").Return(expectedProduct, nil).Once()
	product, err := service.GetByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expectedProduct, product)

	mockRepo.On("GetByID", ctx, "99").Return(nil, errs.NotFound("product", "99")).Once()
	product, err = service.GetByID(ctx, "99")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Nil(t, product)
	mockRepo.AssertExpectations(t)
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()
	service, mockRepo := newMockedProductService()

	input := services.ProductInput{
		Name:        ptr("Alface"),
		Description: ptr("Alface crespa orgânica"),
		Category:    ptr("Hortaliças"),
		Price:       ptr(3.5),
		Stock:       ptr(20),
	}

	mockRepo.On("Create", ctx, mock.MatchedBy(func(p *models.Product) bool {
		return p.ProducerID == producer.ID && p.Unit == models.DefaultUnit && p.IsAvailable && p.Stock == 20
	})).Return(nil).Once()
	created, err := service.Create(ctx, producer, input)
	require.NoError(t, err)
	assert.Equal(t, "Alface", created.Name)

	_, err = service.Create(ctx, consumer, input)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = service.Create(ctx, producer, services.ProductInput{Name: ptr("A"), Price: ptr(0.0)})
	require.ErrorIs(t, err, errs.ErrValidation)
	assert.Len(t, errs.FieldsOf(err), 4)

	mockRepo.On("Create", ctx, mock.AnythingOfType("*models.Product")).Return(fmt.Errorf("database error")).Once()
	_, err = service.Create(ctx, producer, input)
	assert.ErrorContains(t, err, "database error")
	mockRepo.AssertExpectations(t)
}

func TestProductService_UpdateOwnership(t *testing.T) {
	ctx := context.Background()
	service, mockRepo := newMockedProductService()

	existing := &models.Product{
		ID: "1", ProducerID: producer.ID, Name: "Tomate", Description: "Tomate italiano maduro",
		Category: "Hortaliças", Price: 8, Stock: 10, Unit: "kg", IsAvailable: true,
	}

	mockRepo.On("GetByID", ctx, "1").Return(existing, nil).Once()
	_, err := service.Update(ctx, producer2, "1", services.ProductInput{Price: ptr(9.0)})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	edited := *existing
	mockRepo.On("GetByID", ctx, "1").Return(&edited, nil).Once()
	mockRepo.On("SetStock", ctx, "1", 4).Return(nil).Once()
	mockRepo.On("Update", ctx, mock.MatchedBy(func(p *models.Product) bool { return p.Price == 9 })).Return(nil).Once()
	mockRepo.On("GetByID", ctx, "1").Return(&models.Product{ID: "1", Price: 9, Stock: 4}, nil).Once()

	updated, err := service.Update(ctx, producer, "1", services.ProductInput{Price: ptr(9.0), Stock: ptr(4)})
	require.NoError(t, err)
	assert.Equal(t, 9.0, updated.Price)
	assert.Equal(t, 4, updated.Stock)
	mockRepo.AssertExpectations(t)
}

// failingUpdateStore is a memory store whose transactional product updates
// fail after any stock write has already been applied.
type failingUpdateStore struct {
	*repositories.MemoryStore
}

type failingUpdateProducts struct {
	repositories.ProductRepository
}

func (failingUpdateProducts) Update(context.Context, *models.Product) error {
	return fmt.Errorf("database error")
}

func (s failingUpdateStore) WithinTransaction(ctx context.Context, fn repositories.TxFunc) error {
	return s.MemoryStore.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		tx.Products = failingUpdateProducts{tx.Products}
		return fn(ctx, tx)
	})
}

func TestProductService_UpdateIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := failingUpdateStore{repositories.NewMemoryStore()}
	service := services.NewProductService(store, nil)

	p, err := service.Create(ctx, producer, services.ProductInput{
		Name: ptr("Tomate"), Description: ptr("Tomate italiano maduro"), Category: ptr("Hortaliças"),
		Price: ptr(8.0), Stock: ptr(10),
	})
	require.NoError(t, err)

	_, err = service.Update(ctx, producer, p.ID, services.ProductInput{Price: ptr(9.0), Stock: ptr(4)})
	require.ErrorContains(t, err, "database error")

	stored, err := store.Products().GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.Stock)
	assert.Equal(t, 8.0, stored.Price)
}

func TestProductService_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	service, mockRepo := newMockedProductService()

	assert.ErrorIs(t, service.Reserve(ctx, "1", 0), errs.ErrValidation)
	assert.ErrorIs(t, service.Release(ctx, "1", -1), errs.ErrValidation)

	mockRepo.On("Reserve", ctx, "1", 3).Return(errs.InsufficientStock("Tomate", 3, 2)).Once()
	assert.ErrorIs(t, service.Reserve(ctx, "1", 3), errs.ErrInsufficientStock)

	mockRepo.On("Release", ctx, "1", 3).Return(nil).Once()
	assert.NoError(t, service.Release(ctx, "1", 3))
	mockRepo.AssertExpectations(t)
}

func TestProductService_CatalogQueries(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	service := services.NewProductService(store, nil)

	mk := func(name, category string, stock int, available bool) *models.Product {
		p, err := service.Create(ctx, producer, services.ProductInput{
			Name: ptr(name), Description: ptr("produto fresco da feira"), Category: ptr(category),
			Price: ptr(5.0), Stock: ptr(stock), IsAvailable: ptr(available),
		})
		require.NoError(t, err)
		return p
	}
	mk("Tomate", "Hortaliças", 5, true)
	mk("Banana", "Frutas", 30, true)
	mk("Maçã", "Frutas", 0, true)
	mk("Tomate cereja", "Hortaliças", 9, false)

	available, err := service.ListAvailable(ctx)
	require.NoError(t, err)
	require.Len(t, available, 2)
	assert.Equal(t, "Banana", available[0].Name)
	assert.Equal(t, "Tomate", available[1].Name)

	fruits, err := service.ListByCategory(ctx, "Frutas")
	require.NoError(t, err)
	require.Len(t, fruits, 1)
	assert.Equal(t, "Banana", fruits[0].Name)

	found, err := service.Search(ctx, "TOMA")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Tomate", found[0].Name)

	_, err = service.Search(ctx, "  ")
	assert.ErrorIs(t, err, errs.ErrValidation)

	categories, err := service.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Frutas", "Hortaliças"}, categories)

	mine, err := service.ListByProducer(ctx, producer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 4)
}

func TestProductService_ToggleAndSetStock(t *testing.T) {
	ctx := context.Background()
	service := services.NewProductService(repositories.NewMemoryStore(), nil)

	p, err := service.Create(ctx, producer, services.ProductInput{
		Name: ptr("Queijo"), Description: ptr("Queijo coalho artesanal"), Category: ptr("Laticínios"),
		Price: ptr(25.0), Stock: ptr(3),
	})
	require.NoError(t, err)

	toggled, err := service.ToggleAvailability(ctx, producer, p.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsAvailable)
	assert.Equal(t, 3, toggled.Stock)

	_, err = service.ToggleAvailability(ctx, producer2, p.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	stocked, err := service.SetStock(ctx, producer, p.ID, 12)
	require.NoError(t, err)
	assert.Equal(t, 12, stocked.Stock)

	_, err = service.SetStock(ctx, producer, p.ID, -1)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestProductService_Delete(t *testing.T) {
	ctx := context.Background()
	store := repositories.NewMemoryStore()
	service := services.NewProductService(store, nil)
	orders := services.NewOrderService(store)

	unused, err := service.Create(ctx, producer, services.ProductInput{
		Name: ptr("Mel"), Description: ptr("Mel silvestre puro"), Category: ptr("Mercearia"),
		Price: ptr(30.0), Stock: ptr(4),
	})
	require.NoError(t, err)
	ordered, err := service.Create(ctx, producer, services.ProductInput{
		Name: ptr("Ovos"), Description: ptr("Ovos caipira dúzia"), Category: ptr("Mercearia"),
		Price: ptr(12.0), Stock: ptr(4),
	})
	require.NoError(t, err)

	_, err = orders.Create(ctx, consumer, services.CreateOrderInput{
		ProducerID:      producer.ID,
		Items:           []services.OrderLine{{ProductID: ordered.ID, Quantity: 1}},
		DeliveryAddress: models.Address{Street: "Rua A"},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, service.Delete(ctx, producer2, unused.ID), errs.ErrForbidden)
	assert.ErrorIs(t, service.Delete(ctx, producer, ordered.ID), errs.ErrInvalidState)
	require.NoError(t, service.Delete(ctx, producer, unused.ID))

	_, err = service.GetByID(ctx, unused.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}
