package models

// OrderStatus is a stage of the order lifecycle.
//
//	pending -> confirmed -> preparing -> ready -> in_delivery -> delivered
//	pending | confirmed -> cancelled
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPreparing  OrderStatus = "preparing"
	StatusReady      OrderStatus = "ready"
	StatusInDelivery OrderStatus = "in_delivery"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every status in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusInDelivery,
	StatusDelivered,
	StatusCancelled,
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible from s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) String() string {
	return string(s)
}

// Role is the kind of account acting on the marketplace.
type Role string

const (
	RoleProducer  Role = "producer"
	RoleConsumer  Role = "consumer"
	RoleLogistics Role = "logistics"
)

// IsValid reports whether r is one of the three marketplace roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleProducer, RoleConsumer, RoleLogistics:
		return true
	}
	return false
}

// Actor is the authenticated identity attached to a request.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}
