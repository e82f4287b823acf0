package models

import "time"

// OrderStatistics is a per-status breakdown of a producer's orders.
type OrderStatistics struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Confirmed    int     `json:"confirmed"`
	Preparing    int     `json:"preparing"`
	Ready        int     `json:"ready"`
	InDelivery   int     `json:"in_delivery"`
	Delivered    int     `json:"delivered"`
	Cancelled    int     `json:"cancelled"`
	TotalRevenue float64 `json:"totalRevenue"`
}

// Period is a closed time window.
type Period struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Contains reports whether t falls inside the window, bounds included.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.StartDate) && !t.After(p.EndDate)
}

// Add counts one order. Revenue only accrues for delivered orders.
func (s *OrderStatistics) Add(o Order) {
	s.Total++
	switch o.Status {
	case StatusPending:
		s.Pending++
	case StatusConfirmed:
		s.Confirmed++
	case StatusPreparing:
		s.Preparing++
	case StatusReady:
		s.Ready++
	case StatusInDelivery:
		s.InDelivery++
	case StatusDelivered:
		s.Delivered++
		s.TotalRevenue = roundMoney(s.TotalRevenue + o.TotalAmount)
	case StatusCancelled:
		s.Cancelled++
	}
}
