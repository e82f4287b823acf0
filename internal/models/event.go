package models

import "time"

// OrderEventType names an order lifecycle event published after commit.
type OrderEventType string

const (
	EventOrderCreated           OrderEventType = "order.created"
	EventOrderStatusChanged     OrderEventType = "order.status_changed"
	EventOrderCancelled         OrderEventType = "order.cancelled"
	EventOrderLogisticsAssigned OrderEventType = "order.logistics_assigned"
)

// OrderEvent is the message body published for an order change.
type OrderEvent struct {
	EventID        string         `json:"eventId"`
	Type           OrderEventType `json:"type"`
	OrderID        string         `json:"orderId"`
	ConsumerID     string         `json:"consumerId"`
	ProducerID     string         `json:"producerId"`
	LogisticsID    string         `json:"logisticsId,omitempty"`
	Status         OrderStatus    `json:"status"`
	PreviousStatus OrderStatus    `json:"previousStatus,omitempty"`
	TotalAmount    float64        `json:"totalAmount"`
	OccurredAt     time.Time      `json:"occurredAt"`
}

// NewOrderEvent builds an event describing o. The caller sets EventID.
func NewOrderEvent(eventType OrderEventType, o Order, previous OrderStatus, at time.Time) OrderEvent {
	return OrderEvent{
		Type:           eventType,
		OrderID:        o.ID,
		ConsumerID:     o.ConsumerID,
		ProducerID:     o.ProducerID,
		LogisticsID:    o.LogisticsID,
		Status:         o.Status,
		PreviousStatus: previous,
		TotalAmount:    o.TotalAmount,
		OccurredAt:     at,
	}
}
