package handlers

import (
	"time"

	"feira/internal/metrics"
	"feira/internal/middleware"
	"feira/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// AppConfig wires the services into the HTTP surface.
type AppConfig struct {
	AuthService    *services.AuthService
	ProductService *services.ProductService
	OrderService   *services.OrderService
	Metrics        *metrics.Metrics
	Logger         *zap.Logger
	Development    bool
	RequestTimeout time.Duration
	// Health reports extra components on /health, e.g. "store": "sqlite".
	Health map[string]string
}

// NewApp builds the Fiber app: middleware, /health, /metrics and the /api
// routes.
func NewApp(cfg AppConfig) *fiber.App {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "feira",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler(logger, cfg.Development),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.AccessLog(logger, cfg.Metrics))
	// Inside the access log so panics are logged and counted as 500s.
	app.Use(recover.New())
	if cfg.RequestTimeout > 0 {
		app.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		}
		for k, v := range cfg.Health {
			body[k] = v
		}
		return c.Status(fiber.StatusOK).JSON(body)
	})
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Metrics.Registry(), promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	NewAuthHandler(cfg.AuthService).RegisterRoutes(api)
	NewProductHandler(cfg.ProductService, cfg.AuthService).RegisterRoutes(api)
	NewOrderHandler(cfg.OrderService, cfg.AuthService).RegisterRoutes(api)

	return app
}
