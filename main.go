package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"feira/internal/config"
	"feira/internal/errs"
	"feira/internal/handlers"
	"feira/internal/logger"
	"feira/internal/metrics"
	"feira/internal/models"
	"feira/internal/repositories"
	fsstore "feira/internal/repositories/firestore"
	"feira/internal/services"
	"feira/pkg/rabbitmq"

	"go.uber.org/zap"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Store (constructed once, injected everywhere) ---
	store, err := openStore(ctx, cfg)
	if err != nil {
		zlog.Fatal("failed to open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			zlog.Warn("error closing store", zap.Error(err))
		}
	}()
	zlog.Info("store ready", zap.String("driver", cfg.StoreDriver))

	m := metrics.New()
	orderOpts := []services.OrderServiceOption{
		services.WithMetrics(m),
		services.WithLogger(zlog.Named("orders")),
	}

	// --- RabbitMQ (optional) ---
	mqStatus := "disabled"
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL}, zlog.Named("rabbitmq"))
		if err != nil {
			zlog.Fatal("failed to initialize RabbitMQ client", zap.Error(err))
		}
		defer func() {
			if err := mqClient.Close(); err != nil {
				zlog.Warn("error closing RabbitMQ client", zap.Error(err))
			}
		}()
		if err := mqClient.ConsumeOrderEvents(ctx, rabbitmq.AuditHandler(zlog.Named("audit"))); err != nil {
			zlog.Error("failed to start order event consumer", zap.Error(err))
		}
		orderOpts = append(orderOpts, services.WithPublisher(mqClient))
		mqStatus = "connected"
	}

	// --- Services ---
	authService := services.NewAuthService(store.Users(), cfg.JWTSecret, cfg.JWTTTL, zlog.Named("auth"))
	productService := services.NewProductService(store, zlog.Named("products"))
	orderService := services.NewOrderService(store, orderOpts...)

	if cfg.SeedData {
		seedData(ctx, zlog, authService, productService)
	}

	app := handlers.NewApp(handlers.AppConfig{
		AuthService:    authService,
		ProductService: productService,
		OrderService:   orderService,
		Metrics:        m,
		Logger:         zlog.Named("http"),
		Development:    cfg.IsDevelopment(),
		RequestTimeout: cfg.RequestTimeout,
		Health: map[string]string{
			"store":    cfg.StoreDriver,
			"rabbitmq": mqStatus,
		},
	})

	// --- Start HTTP Server ---
	go func() {
		zlog.Info("starting server", zap.String("addr", cfg.AppPort), zap.String("env", cfg.AppEnv))
		if err := app.Listen(cfg.AppPort); err != nil {
			zlog.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-ctx.Done()
	zlog.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		zlog.Error("error during Fiber shutdown", zap.Error(err))
	}
	zlog.Info("server gracefully stopped")
}

func openStore(ctx context.Context, cfg config.Config) (repositories.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverMemory:
		return repositories.NewMemoryStore(), nil
	case config.DriverSQLite, config.DriverPostgres:
		open := func() (*repositories.GORMStore, error) {
			if cfg.StoreDriver == config.DriverSQLite {
				db, err := repositories.OpenSQLite(cfg.SQLitePath)
				if err != nil {
					return nil, err
				}
				return repositories.NewGORMStore(db), nil
			}
			db, err := repositories.OpenPostgres(cfg.DatabaseDSN)
			if err != nil {
				return nil, err
			}
			return repositories.NewGORMStore(db), nil
		}
		store, err := open()
		if err != nil {
			return nil, err
		}
		if err := repositories.AutoMigrate(store.DB()); err != nil {
			_ = store.Close()
			return nil, err
		}
		return store, nil
	case config.DriverFirestore:
		client, err := fsstore.NewClient(ctx, fsstore.Config{
			ProjectID:    cfg.FirestoreProjectID,
			EmulatorHost: cfg.FirestoreEmulator,
		})
		if err != nil {
			return nil, err
		}
		return fsstore.NewStore(client), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// seedData creates one account per role and a small catalog for local runs.
// Accounts that already exist are left untouched.
func seedData(ctx context.Context, zlog *zap.Logger, auth *services.AuthService, products *services.ProductService) {
	accounts := []services.RegisterInput{
		{Username: "João Produtor", Email: "produtor@feira.local", Password: "123456", Role: models.RoleProducer,
			Profile: map[string]string{"farmName": "Sítio Boa Vista", "phone": "(81) 99999-0001"}},
		{Username: "Maria Consumidora", Email: "consumidor@feira.local", Password: "123456", Role: models.RoleConsumer,
			Profile: map[string]string{"phone": "(81) 99999-0002"}},
		{Username: "Carlos Entregador", Email: "logistica@feira.local", Password: "123456", Role: models.RoleLogistics,
			Profile: map[string]string{"vehicle": "moto"}},
	}

	var producer models.Actor
	for _, account := range accounts {
		session, err := auth.Register(ctx, account)
		if errors.Is(err, errs.ErrConflict) {
			zlog.Info("seed account already present, skipping catalog", zap.String("email", account.Email))
			return
		}
		if err != nil {
			zlog.Error("failed to seed account", zap.String("email", account.Email), zap.Error(err))
			return
		}
		if session.User.Role == models.RoleProducer {
			producer = session.User.Actor()
		}
	}

	type seed struct {
		name, description, category, unit string
		price                             float64
		stock                             int
	}
	catalog := []seed{
		{"Tomate Orgânico", "Tomate orgânico colhido na semana", "Hortaliças", "kg", 8.50, 50},
		{"Alface Crespa", "Alface crespa hidropônica fresquinha", "Hortaliças", "unidade", 3.00, 30},
		{"Banana Prata", "Banana prata madura, cacho selecionado", "Frutas", "kg", 6.90, 40},
		{"Queijo Coalho", "Queijo coalho artesanal do sertão", "Laticínios", "kg", 42.00, 10},
		{"Mel Silvestre", "Mel silvestre puro de florada nativa", "Mercearia", "pote 500g", 28.00, 15},
	}
	for _, item := range catalog {
		p, err := products.Create(ctx, producer, services.ProductInput{
			Name:        &item.name,
			Description: &item.description,
			Category:    &item.category,
			Unit:        &item.unit,
			Price:       &item.price,
			Stock:       &item.stock,
		})
		if err != nil {
			zlog.Error("failed to seed product", zap.String("name", item.name), zap.Error(err))
			continue
		}
		zlog.Info("seeded product", zap.String("name", p.Name), zap.String("id", p.ID))
	}
}
