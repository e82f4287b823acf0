package models

import (
	"math"
	"time"

	"feira/internal/errs"
)

// OrderItem is a line of an order. Name, price and unit are a snapshot taken
// when the order was placed.
type OrderItem struct {
	ID          uint    `json:"-" gorm:"primaryKey"`
	OrderID     string  `json:"-" gorm:"index;type:varchar(36);not null"`
	ProductID   string  `json:"productId" gorm:"index;type:varchar(36);not null"`
	ProductName string  `json:"productName" gorm:"type:varchar(100)"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Unit        string  `json:"unit" gorm:"type:varchar(30)"`
	Subtotal    float64 `json:"subtotal"`
}

// Address is where an order is delivered.
type Address struct {
	Street       string `json:"street" validate:"required"`
	Number       string `json:"number,omitempty"`
	Complement   string `json:"complement,omitempty"`
	Neighborhood string `json:"neighborhood,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	ZipCode      string `json:"zipCode,omitempty"`
}

// Order represents a consumer order placed against one producer's catalog.
type Order struct {
	ID                    string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ConsumerID            string      `json:"consumerId" gorm:"index;type:varchar(36);not null"`
	ProducerID            string      `json:"producerId" gorm:"index;type:varchar(36);not null"`
	LogisticsID           string      `json:"logisticsId,omitempty" gorm:"index;type:varchar(36)"`
	Items                 []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	DeliveryFee           float64     `json:"deliveryFee"`
	TotalAmount           float64     `json:"totalAmount"`
	Status                OrderStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	DeliveryAddress       Address     `json:"deliveryAddress" gorm:"serializer:json"`
	Notes                 string      `json:"notes" gorm:"type:text"`
	EstimatedDeliveryTime *time.Time  `json:"estimatedDeliveryTime"`
	CreatedAt             time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt             time.Time   `json:"updatedAt"`
	DeliveredAt           *time.Time  `json:"deliveredAt"`
	Version               int         `json:"version" gorm:"not null"`
}

// AddItem merges quantity into an existing line for productID, or appends a
// new line. The total is recomputed; nothing is persisted.
func (o *Order) AddItem(productID, name string, price float64, quantity int, unit string) {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			o.Items[i].Quantity += quantity
			o.Items[i].Subtotal = roundMoney(o.Items[i].Price * float64(o.Items[i].Quantity))
			o.CalculateTotal()
			return
		}
	}
	o.Items = append(o.Items, OrderItem{
		ProductID:   productID,
		ProductName: name,
		Price:       price,
		Quantity:    quantity,
		Unit:        unit,
		Subtotal:    roundMoney(price * float64(quantity)),
	})
	o.CalculateTotal()
}

// RemoveItem drops the line for productID, if present.
func (o *Order) RemoveItem(productID string) {
	kept := make([]OrderItem, 0, len(o.Items))
	for _, item := range o.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	o.Items = kept
	o.CalculateTotal()
}

// UpdateItemQuantity sets the quantity of a line. A quantity <= 0 removes it.
func (o *Order) UpdateItemQuantity(productID string, quantity int) error {
	for i := range o.Items {
		if o.Items[i].ProductID != productID {
			continue
		}
		if quantity <= 0 {
			o.RemoveItem(productID)
			return nil
		}
		o.Items[i].Quantity = quantity
		o.Items[i].Subtotal = roundMoney(o.Items[i].Price * float64(quantity))
		o.CalculateTotal()
		return nil
	}
	return errs.NotFound("order item", productID)
}

// CalculateTotal writes and returns sum(price*quantity) + deliveryFee.
func (o *Order) CalculateTotal() float64 {
	var itemsTotal float64
	for _, item := range o.Items {
		itemsTotal += item.Price * float64(item.Quantity)
	}
	o.TotalAmount = roundMoney(itemsTotal + o.DeliveryFee)
	return o.TotalAmount
}

// IsParty reports whether the actor is the consumer, producer or assigned
// courier of the order.
func (o *Order) IsParty(actorID string) bool {
	if actorID == "" {
		return false
	}
	return o.ConsumerID == actorID || o.ProducerID == actorID || o.LogisticsID == actorID
}

// Clone returns a deep copy; the item slice is never shared.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]OrderItem(nil), o.Items...)
	if o.EstimatedDeliveryTime != nil {
		t := *o.EstimatedDeliveryTime
		c.EstimatedDeliveryTime = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		c.DeliveredAt = &t
	}
	return c
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
