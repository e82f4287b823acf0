package repositories

import (
	"sort"
	"strings"

	"feira/internal/models"
)

// SortProducts orders products in place according to s.
func SortProducts(products []models.Product, s ProductSort) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		if s == SortStockDesc && a.Stock != b.Stock {
			return a.Stock > b.Stock
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// SortOrders orders by creation time, newest first unless oldestFirst.
func SortOrders(orders []models.Order, oldestFirst bool) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if oldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
