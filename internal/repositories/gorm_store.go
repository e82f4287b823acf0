package repositories

import (
	"context"
	"errors"
	"fmt"

	"feira/internal/errs"
	"feira/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GORMStore is a Store backed by a relational database through GORM.
type GORMStore struct {
	db *gorm.DB
}

// NewGORMStore wraps an open connection. Call AutoMigrate before use.
func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

// OpenPostgres connects to PostgreSQL using dsn.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// OpenSQLite opens a SQLite database at path. Use
// "file:<name>?mode=memory&cache=shared" for a private in-memory database.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer; one connection serialises transactions
	// instead of failing them with SQLITE_BUSY.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}
}

// AutoMigrate creates or updates the schema for every model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Product{}, &models.Order{}, &models.OrderItem{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// DB exposes the underlying connection.
func (s *GORMStore) DB() *gorm.DB { return s.db }

func (s *GORMStore) Products() ProductRepository { return NewGORMProductRepository(s.db) }

func (s *GORMStore) Orders() OrderRepository { return NewGORMOrderRepository(s.db) }

func (s *GORMStore) Users() UserRepository { return NewGORMUserRepository(s.db) }

// WithinTransaction runs fn in a database transaction. Any error, or a
// panic, rolls it back.
func (s *GORMStore) WithinTransaction(ctx context.Context, fn TxFunc) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, Repositories{
			Products: NewGORMProductRepository(tx),
			Orders:   NewGORMOrderRepository(tx),
		})
	})
}

// Close releases the connection pool.
func (s *GORMStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps GORM failures onto error kinds; others are wrapped with op.
func translate(err error, op, entity, id string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NotFound(entity, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.Wrap(errs.ErrConflict, fmt.Sprintf("%s already exists", entity), err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return errs.Wrap(errs.ErrInsufficientStock, fmt.Sprintf("%s %s would have negative stock", entity, id), err)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}
