package handlers

import (
	"feira/internal/middleware"
	"feira/internal/models"
	"feira/internal/services"

	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for the catalog.
type ProductHandler struct {
	service     *services.ProductService
	authService *services.AuthService
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService, authService *services.AuthService) *ProductHandler {
	return &ProductHandler{
		service:     service,
		authService: authService,
	}
}

// RegisterRoutes registers the product routes under /products. Browsing is
// public; catalog management is for the owning producer.
func (h *ProductHandler) RegisterRoutes(router fiber.Router) {
	productRoutes := router.Group("/products")
	producerOnly := []fiber.Handler{
		middleware.AuthRequired(h.authService),
		middleware.RequireRole(models.RoleProducer),
	}

	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/categories", h.HandleGetCategories)
	productRoutes.Get("/my", append(producerOnly, h.HandleGetMyProducts)...)
	productRoutes.Post("/", append(producerOnly, h.HandleCreateProduct)...)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Put("/:id", append(producerOnly, h.HandleUpdateProduct)...)
	productRoutes.Put("/:id/stock", append(producerOnly, h.HandleUpdateStock)...)
	productRoutes.Put("/:id/toggle-availability", append(producerOnly, h.HandleToggleAvailability)...)
	productRoutes.Delete("/:id", append(producerOnly, h.HandleDeleteProduct)...)
}

func productList(products []models.Product) fiber.Map {
	return fiber.Map{"products": products, "total": len(products)}
}

// HandleGetProducts lists available products, optionally narrowed by
// ?category= or searched by ?search= (?q= is accepted as an alias).
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	var (
		products []models.Product
		err      error
	)
	term := c.Query("search", c.Query("q"))
	switch {
	case term != "":
		products, err = h.service.Search(c.UserContext(), term)
	case c.Query("category") != "":
		products, err = h.service.ListByCategory(c.UserContext(), c.Query("category"))
	default:
		products, err = h.service.ListAvailable(c.UserContext())
	}
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", productList(products))
}

// HandleGetCategories lists the categories of available products.
func (h *ProductHandler) HandleGetCategories(c *fiber.Ctx) error {
	categories, err := h.service.Categories(c.UserContext())
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{"categories": categories})
}

// HandleGetMyProducts lists every product of the authenticated producer.
func (h *ProductHandler) HandleGetMyProducts(c *fiber.Ctx) error {
	products, err := h.service.ListByProducer(c.UserContext(), middleware.Actor(c).ID)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", productList(products))
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{"product": product})
}

// CreateProductRequest represents the request body for a new product.
type CreateProductRequest struct {
	Name        string  `json:"name" validate:"required,min=2"`
	Description string  `json:"description" validate:"required,min=10"`
	Category    string  `json:"category" validate:"required,min=2"`
	Price       float64 `json:"price" validate:"gt=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Unit        string  `json:"unit"`
	ImageURL    string  `json:"imageUrl" validate:"omitempty,url"`
	IsAvailable *bool   `json:"isAvailable"`
}

// HandleCreateProduct adds a product to the producer's catalog.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var req CreateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.service.Create(c.UserContext(), middleware.Actor(c), services.ProductInput{
		Name:        &req.Name,
		Description: &req.Description,
		Category:    &req.Category,
		Price:       &req.Price,
		Stock:       &req.Stock,
		Unit:        &req.Unit,
		ImageURL:    &req.ImageURL,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Product created successfully", fiber.Map{"product": product})
}

// UpdateProductRequest represents a partial product edit.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=2"`
	Description *string  `json:"description" validate:"omitempty,min=10"`
	Category    *string  `json:"category" validate:"omitempty,min=2"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Stock       *int     `json:"stock" validate:"omitempty,gte=0"`
	Unit        *string  `json:"unit"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,url"`
	IsAvailable *bool    `json:"isAvailable"`
}

// HandleUpdateProduct applies a partial edit to an owned product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	var req UpdateProductRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.service.Update(c.UserContext(), middleware.Actor(c), c.Params("id"), services.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		Unit:        req.Unit,
		ImageURL:    req.ImageURL,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Product updated successfully", fiber.Map{"product": product})
}

// UpdateStockRequest represents the request body for a stock overwrite.
type UpdateStockRequest struct {
	Stock *int `json:"stock" validate:"required,gte=0"`
}

// HandleUpdateStock overwrites the stock of an owned product.
func (h *ProductHandler) HandleUpdateStock(c *fiber.Ctx) error {
	var req UpdateStockRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	product, err := h.service.SetStock(c.UserContext(), middleware.Actor(c), c.Params("id"), *req.Stock)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Stock updated successfully", fiber.Map{"product": product})
}

// HandleToggleAvailability flips the availability of an owned product.
func (h *ProductHandler) HandleToggleAvailability(c *fiber.Ctx) error {
	product, err := h.service.ToggleAvailability(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Availability updated successfully", fiber.Map{"product": product})
}

// HandleDeleteProduct removes an owned product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), middleware.Actor(c), c.Params("id")); err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Product deleted successfully", nil)
}
