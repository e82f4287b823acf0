package handlers

import (
	"feira/internal/middleware"
	"feira/internal/models"
	"feira/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service     *services.OrderService
	authService *services.AuthService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, authService *services.AuthService) *OrderHandler {
	return &OrderHandler{
		service:     service,
		authService: authService,
	}
}

// RegisterRoutes registers the order routes under /orders. Every route
// requires authentication; the static paths are registered before /:id.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders", middleware.AuthRequired(h.authService))
	orderRoutes.Get("/", h.HandleGetOrders)
	orderRoutes.Post("/", middleware.RequireRole(models.RoleConsumer), h.HandleCreateOrder)
	orderRoutes.Get("/available-for-logistics", middleware.RequireRole(models.RoleLogistics), h.HandleAvailableForLogistics)
	orderRoutes.Get("/statistics", middleware.RequireRole(models.RoleProducer), h.HandleStatistics)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/status", h.HandleUpdateOrderStatus)
	orderRoutes.Put("/:id/assign-logistics", middleware.RequireRole(models.RoleLogistics), h.HandleAssignLogistics)
	orderRoutes.Put("/:id/cancel", h.HandleCancelOrder)
}

func orderList(orders []models.Order) fiber.Map {
	return fiber.Map{"orders": orders, "total": len(orders)}
}

// HandleGetOrders lists the orders the actor is a party to.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.List(c.UserContext(), middleware.Actor(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", orderList(orders))
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.Get(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{"order": order})
}

// OrderItemRequest is one line of a new order.
type OrderItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
}

// CreateOrderRequest represents the request body for a new order.
type CreateOrderRequest struct {
	ProducerID      string             `json:"producerId" validate:"required"`
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	DeliveryAddress models.Address     `json:"deliveryAddress"`
	DeliveryFee     float64            `json:"deliveryFee" validate:"gte=0"`
	Notes           string             `json:"notes" validate:"max=500"`
}

// HandleCreateOrder places an order for the authenticated consumer.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	lines := make([]services.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, services.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	order, err := h.service.Create(c.UserContext(), middleware.Actor(c), services.CreateOrderInput{
		ProducerID:      req.ProducerID,
		Items:           lines,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryFee:     req.DeliveryFee,
		Notes:           req.Notes,
	})
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusCreated, "Order created successfully", fiber.Map{"order": order})
}

// UpdateStatusRequest represents the request body for a status change.
type UpdateStatusRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus moves an order along its lifecycle.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req UpdateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	order, err := h.service.UpdateStatus(c.UserContext(), middleware.Actor(c), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Order status updated successfully", fiber.Map{"order": order})
}

// HandleAssignLogistics assigns the authenticated courier to a ready order.
func (h *OrderHandler) HandleAssignLogistics(c *fiber.Ctx) error {
	order, err := h.service.AssignLogistics(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Logistics assigned successfully", fiber.Map{"order": order})
}

// HandleCancelOrder cancels an order and releases its stock.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	order, err := h.service.Cancel(c.UserContext(), middleware.Actor(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "Order cancelled successfully", fiber.Map{"order": order})
}

// HandleAvailableForLogistics lists ready orders waiting for a courier.
func (h *OrderHandler) HandleAvailableForLogistics(c *fiber.Ctx) error {
	orders, err := h.service.AvailableForLogistics(c.UserContext(), middleware.Actor(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", orderList(orders))
}

// HandleStatistics reports the producer's orders of the last 30 days.
func (h *OrderHandler) HandleStatistics(c *fiber.Ctx) error {
	stats, period, err := h.service.Statistics(c.UserContext(), middleware.Actor(c))
	if err != nil {
		return err
	}
	return respond(c, fiber.StatusOK, "", fiber.Map{"statistics": stats, "period": period})
}
