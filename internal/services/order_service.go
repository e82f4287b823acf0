package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"feira/internal/errs"
	"feira/internal/metrics"
	"feira/internal/models"
	"feira/internal/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatisticsWindow is the rolling window of OrderService.Statistics.
const StatisticsWindow = 30 * 24 * time.Hour

// EventPublisher delivers order events after their unit of work committed.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// OrderService is the order lifecycle engine: placement with stock
// reservation, status transitions, cancellation and courier assignment.
// Every mutation runs in one store transaction.
type OrderService struct {
	store     repositories.Store
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// OrderServiceOption customises an OrderService.
type OrderServiceOption func(*OrderService)

// WithPublisher sets the event publisher. Without one no events are sent.
func WithPublisher(p EventPublisher) OrderServiceOption {
	return func(s *OrderService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) OrderServiceOption {
	return func(s *OrderService) { s.metrics = m }
}

func WithLogger(l *zap.Logger) OrderServiceOption {
	return func(s *OrderService) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewOrderService creates a new OrderService.
func NewOrderService(store repositories.Store, opts ...OrderServiceOption) *OrderService {
	s := &OrderService{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// OrderLine is one requested product and quantity.
type OrderLine struct {
	ProductID string
	Quantity  int
}

// CreateOrderInput is a consumer's order request.
type CreateOrderInput struct {
	ProducerID      string
	Items           []OrderLine
	DeliveryAddress models.Address
	DeliveryFee     float64
	Notes           string
}

func (in CreateOrderInput) validate() error {
	var fields []string
	if strings.TrimSpace(in.ProducerID) == "" {
		fields = append(fields, "producerId: is required")
	}
	if len(in.Items) == 0 {
		fields = append(fields, "items: at least one item is required")
	}
	for i, line := range in.Items {
		if strings.TrimSpace(line.ProductID) == "" {
			fields = append(fields, fmt.Sprintf("items[%d].productId: is required", i))
		}
		if line.Quantity <= 0 {
			fields = append(fields, fmt.Sprintf("items[%d].quantity: must be greater than 0", i))
		}
	}
	if in.DeliveryFee < 0 {
		fields = append(fields, "deliveryFee: must not be negative")
	}
	if strings.TrimSpace(in.DeliveryAddress.Street) == "" {
		fields = append(fields, "deliveryAddress.street: is required")
	}
	if len(fields) > 0 {
		return errs.Validation("invalid order request", fields...)
	}
	return nil
}

// mergeLines sums the quantities of repeated products, keeping the order in
// which products first appear.
func mergeLines(lines []OrderLine) []OrderLine {
	index := make(map[string]int, len(lines))
	merged := make([]OrderLine, 0, len(lines))
	for _, line := range lines {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	return merged
}

// Create places an order for a consumer. Every line is checked in turn for
// existence, availability, stock and producer ownership; then the order is
// persisted as pending and each line's stock reserved, all in one
// transaction. Any failure leaves no order and no reservation behind.
func (s *OrderService) Create(ctx context.Context, actor models.Actor, in CreateOrderInput) (*models.Order, error) {
	if actor.Role != models.RoleConsumer {
		return nil, errs.Forbidden("only consumers can place orders")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	lines := mergeLines(in.Items)

	var order models.Order
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		order = models.Order{
			ConsumerID:      actor.ID,
			ProducerID:      in.ProducerID,
			DeliveryFee:     in.DeliveryFee,
			Status:          models.StatusPending,
			DeliveryAddress: in.DeliveryAddress,
			Notes:           in.Notes,
		}
		for _, line := range lines {
			p, err := tx.Products.GetByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !p.IsAvailable {
				return errs.Unavailable(p.Name)
			}
			if p.Stock < line.Quantity {
				return errs.InsufficientStock(p.Name, line.Quantity, p.Stock)
			}
			if p.ProducerID != in.ProducerID {
				return errs.OwnershipMismatch("product %s does not belong to producer %s", p.ID, in.ProducerID)
			}
			order.AddItem(p.ID, p.Name, p.Price, line.Quantity, p.Unit)
		}
		order.CalculateTotal()

		if err := tx.Orders.Create(ctx, &order); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.Products.Reserve(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrInsufficientStock):
			s.metrics.StockRejected("insufficient_stock")
		case errors.Is(err, errs.ErrUnavailable):
			s.metrics.StockRejected("unavailable")
		}
		return nil, err
	}

	s.metrics.OrderCreated()
	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("consumer_id", order.ConsumerID),
		zap.String("producer_id", order.ProducerID),
		zap.Int("items", len(order.Items)),
		zap.Float64("total_amount", order.TotalAmount))
	s.publish(ctx, models.EventOrderCreated, order, "")
	return &order, nil
}

// List returns the orders visible to the actor: a consumer's or producer's
// own orders, or those assigned to a courier. Newest first.
func (s *OrderService) List(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	var filter repositories.OrderFilter
	switch actor.Role {
	case models.RoleConsumer:
		filter.ConsumerID = actor.ID
	case models.RoleProducer:
		filter.ProducerID = actor.ID
	case models.RoleLogistics:
		filter.LogisticsID = actor.ID
	default:
		return nil, errs.Forbidden("unknown role %q", actor.Role)
	}
	return s.store.Orders().List(ctx, filter)
}

// Get returns one order if the actor is a party to it.
func (s *OrderService) Get(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	o, err := s.store.Orders().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !o.IsParty(actor.ID) {
		return nil, errs.Forbidden("not a party to order %s", id)
	}
	return o, nil
}

// UpdateStatus applies one transition of the lifecycle table. Delivery
// stamps deliveredAt; cancellation releases the stock of every item.
func (s *OrderService) UpdateStatus(ctx context.Context, actor models.Actor, id string, to models.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, errs.Validation("invalid status", fmt.Sprintf("status: %q is not a known order status", to))
	}
	return s.transition(ctx, id, to, func(o *models.Order) error {
		return authorizeTransition(actor, o, to)
	})
}

// Cancel cancels an order on behalf of its consumer (pending or confirmed)
// or its producer (pending only), releasing the reserved stock.
func (s *OrderService) Cancel(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	return s.transition(ctx, id, models.StatusCancelled, func(o *models.Order) error {
		return authorizeCancel(actor, o)
	})
}

// transition loads the order, runs authorize, applies the status change
// with its side effects and saves the order under its version check.
func (s *OrderService) transition(ctx context.Context, id string, to models.OrderStatus, authorize func(*models.Order) error) (*models.Order, error) {
	var (
		updated models.Order
		from    models.OrderStatus
	)
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		o, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorize(o); err != nil {
			return err
		}
		from = o.Status
		o.Status = to
		switch to {
		case models.StatusDelivered:
			now := s.now()
			o.DeliveredAt = &now
		case models.StatusCancelled:
			// Products referenced by an order cannot be deleted, so every
			// release has a target.
			for _, item := range o.Items {
				if err := tx.Products.Release(ctx, item.ProductID, item.Quantity); err != nil {
					return err
				}
			}
		}
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		updated = *o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderTransition(string(from), string(to))
	s.logger.Info("order status changed",
		zap.String("order_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("version", updated.Version))

	eventType := models.EventOrderStatusChanged
	if to == models.StatusCancelled {
		eventType = models.EventOrderCancelled
	}
	s.publish(ctx, eventType, updated, from)
	return &updated, nil
}

// AssignLogistics assigns the acting courier to a ready, unassigned order.
func (s *OrderService) AssignLogistics(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	if actor.Role != models.RoleLogistics {
		return nil, errs.Forbidden("only logistics users can take deliveries")
	}
	var updated models.Order
	err := s.store.WithinTransaction(ctx, func(ctx context.Context, tx repositories.Repositories) error {
		o, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != models.StatusReady {
			return errs.InvalidState("order %s must be %s to be assigned, is %s", o.ID, models.StatusReady, o.Status)
		}
		if o.LogisticsID != "" {
			return errs.AlreadyAssigned(o.ID)
		}
		o.LogisticsID = actor.ID
		if err := tx.Orders.Update(ctx, o); err != nil {
			return err
		}
		updated = *o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("logistics assigned",
		zap.String("order_id", updated.ID),
		zap.String("logistics_id", updated.LogisticsID))
	s.publish(ctx, models.EventOrderLogisticsAssigned, updated, updated.Status)
	return &updated, nil
}

// AvailableForLogistics lists ready orders without a courier, oldest first.
func (s *OrderService) AvailableForLogistics(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	if actor.Role != models.RoleLogistics {
		return nil, errs.Forbidden("only logistics users can list available deliveries")
	}
	return s.store.Orders().List(ctx, repositories.OrderFilter{
		Status:      models.StatusReady,
		Unassigned:  true,
		OldestFirst: true,
	})
}

// Statistics folds a producer's orders of the last 30 days by status.
func (s *OrderService) Statistics(ctx context.Context, actor models.Actor) (models.OrderStatistics, models.Period, error) {
	if actor.Role != models.RoleProducer {
		return models.OrderStatistics{}, models.Period{}, errs.Forbidden("only producers can view order statistics")
	}
	end := s.now()
	period := models.Period{StartDate: end.Add(-StatisticsWindow), EndDate: end}

	orders, err := s.store.Orders().List(ctx, repositories.OrderFilter{
		ProducerID:    actor.ID,
		CreatedAfter:  period.StartDate,
		CreatedBefore: period.EndDate,
	})
	if err != nil {
		return models.OrderStatistics{}, models.Period{}, err
	}
	var stats models.OrderStatistics
	for _, o := range orders {
		if period.Contains(o.CreatedAt) {
			stats.Add(o)
		}
	}
	return stats, period, nil
}

// publish sends an event for a committed change. Failures are logged only;
// the change itself has already succeeded.
func (s *OrderService) publish(ctx context.Context, eventType models.OrderEventType, o models.Order, previous models.OrderStatus) {
	if s.publisher == nil {
		return
	}
	event := models.NewOrderEvent(eventType, o, previous, s.now().UTC())
	event.EventID = uuid.New().String()
	if err := s.publisher.PublishOrderEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("type", string(eventType)),
			zap.String("order_id", o.ID),
			zap.Error(err))
	}
}
