package models_test

import (
	"testing"
	"time"

	"feira/internal/errs"
	"feira/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsTotal(o *models.Order) float64 {
	var sum float64
	for _, item := range o.Items {
		sum += item.Price * float64(item.Quantity)
	}
	return sum + o.DeliveryFee
}

func TestOrder_AddItem(t *testing.T) {
	order := &models.Order{DeliveryFee: 5.00}

	order.AddItem("a", "Tomate", 8.50, 2, "kg")
	order.AddItem("b", "Alface", 3.00, 3, "unidade")

	require.Len(t, order.Items, 2)
	assert.Equal(t, 31.00, order.TotalAmount)
	assert.InDelta(t, itemsTotal(order), order.TotalAmount, 0.001)
	assert.Equal(t, 17.00, order.Items[0].Subtotal)

	// Same product merges into the existing line.
	order.AddItem("a", "Tomate", 8.50, 1, "kg")
	require.Len(t, order.Items, 2)
	assert.Equal(t, 3, order.Items[0].Quantity)
	assert.Equal(t, 25.50, order.Items[0].Subtotal)
	assert.Equal(t, 39.50, order.TotalAmount)
	assert.InDelta(t, itemsTotal(order), order.TotalAmount, 0.001)
}

func TestOrder_RemoveItem(t *testing.T) {
	order := &models.Order{DeliveryFee: 2.00}
	order.AddItem("a", "Tomate", 8.50, 2, "kg")
	order.AddItem("b", "Alface", 3.00, 3, "unidade")

	before := order.Items
	order.RemoveItem("a")
	require.Len(t, order.Items, 1)
	assert.Equal(t, "a", before[0].ProductID)
	assert.Equal(t, "b", before[1].ProductID)
	assert.Equal(t, "b", order.Items[0].ProductID)
	assert.Equal(t, 11.00, order.TotalAmount)

	// Unknown product is a no-op.
	order.RemoveItem("zzz")
	assert.Len(t, order.Items, 1)
	assert.Equal(t, 11.00, order.TotalAmount)
}

func TestOrder_UpdateItemQuantity(t *testing.T) {
	order := &models.Order{}
	order.AddItem("a", "Tomate", 8.50, 2, "kg")
	order.AddItem("b", "Alface", 3.00, 3, "unidade")

	require.NoError(t, order.UpdateItemQuantity("a", 4))
	assert.Equal(t, 34.00, order.Items[0].Subtotal)
	assert.Equal(t, 43.00, order.TotalAmount)

	require.NoError(t, order.UpdateItemQuantity("b", 0))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 34.00, order.TotalAmount)

	err := order.UpdateItemQuantity("missing", 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.InDelta(t, itemsTotal(order), order.TotalAmount, 0.001)
}

func TestOrder_IsParty(t *testing.T) {
	order := &models.Order{ConsumerID: "c", ProducerID: "p"}
	assert.True(t, order.IsParty("c"))
	assert.True(t, order.IsParty("p"))
	assert.False(t, order.IsParty("l"))
	assert.False(t, order.IsParty(""))

	order.LogisticsID = "l"
	assert.True(t, order.IsParty("l"))
}

func TestOrder_CloneDoesNotAliasItems(t *testing.T) {
	delivered := time.Now()
	order := models.Order{DeliveredAt: &delivered}
	order.AddItem("a", "Tomate", 1, 1, "kg")

	clone := order.Clone()
	clone.Items[0].Quantity = 99
	*clone.DeliveredAt = delivered.Add(time.Hour)

	assert.Equal(t, 1, order.Items[0].Quantity)
	assert.Equal(t, delivered, *order.DeliveredAt)
}

func TestOrderStatus(t *testing.T) {
	assert.True(t, models.StatusInDelivery.IsValid())
	assert.False(t, models.OrderStatus("shipped").IsValid())
	assert.True(t, models.StatusDelivered.IsTerminal())
	assert.True(t, models.StatusCancelled.IsTerminal())
	assert.False(t, models.StatusReady.IsTerminal())
	assert.False(t, models.Role("admin").IsValid())
}

func TestOrderStatistics_Add(t *testing.T) {
	var stats models.OrderStatistics
	stats.Add(models.Order{Status: models.StatusDelivered, TotalAmount: 31})
	stats.Add(models.Order{Status: models.StatusDelivered, TotalAmount: 9.5})
	stats.Add(models.Order{Status: models.StatusCancelled, TotalAmount: 100})
	stats.Add(models.Order{Status: models.StatusPending, TotalAmount: 7})

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.Delivered)
	assert.Equal(t, 1, stats.Cancelled)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 40.5, stats.TotalRevenue)
}
