package services

import (
	"feira/internal/errs"
	"feira/internal/models"
)

type transitionKey struct {
	role models.Role
	from models.OrderStatus
}

// transitions is the complete set of legal status changes. Pairs absent
// from the table are forbidden.
var transitions = map[transitionKey][]models.OrderStatus{
	{models.RoleProducer, models.StatusPending}:     {models.StatusConfirmed},
	{models.RoleProducer, models.StatusConfirmed}:   {models.StatusPreparing},
	{models.RoleProducer, models.StatusPreparing}:   {models.StatusReady},
	{models.RoleLogistics, models.StatusReady}:      {models.StatusInDelivery},
	{models.RoleLogistics, models.StatusInDelivery}: {models.StatusDelivered},
	{models.RoleConsumer, models.StatusPending}:     {models.StatusCancelled},
}

// cancellable lists, per role, the statuses the cancel operation accepts.
var cancellable = map[models.Role][]models.OrderStatus{
	models.RoleConsumer: {models.StatusPending, models.StatusConfirmed},
	models.RoleProducer: {models.StatusPending},
}

// CanTransition reports whether role may move an order from one status to
// another through a status update.
func CanTransition(role models.Role, from, to models.OrderStatus) bool {
	return contains(transitions[transitionKey{role, from}], to)
}

// AllowedTransitions returns the statuses role may move an order to from.
func AllowedTransitions(role models.Role, from models.OrderStatus) []models.OrderStatus {
	return append([]models.OrderStatus(nil), transitions[transitionKey{role, from}]...)
}

// CanCancel reports whether role may cancel an order currently in status.
func CanCancel(role models.Role, status models.OrderStatus) bool {
	return contains(cancellable[role], status)
}

// ownsOrder reports whether the actor holds the order relation that its
// role acts through: the consumer and producer own their orders, a courier
// acts on orders assigned to it.
func ownsOrder(actor models.Actor, o *models.Order) bool {
	switch actor.Role {
	case models.RoleConsumer:
		return o.ConsumerID == actor.ID
	case models.RoleProducer:
		return o.ProducerID == actor.ID
	case models.RoleLogistics:
		return o.LogisticsID != "" && o.LogisticsID == actor.ID
	}
	return false
}

// authorizeTransition checks ownership, then the transition table.
func authorizeTransition(actor models.Actor, o *models.Order, to models.OrderStatus) error {
	if !ownsOrder(actor, o) {
		return errs.Forbidden("%s %s may not change order %s", actor.Role, actor.ID, o.ID)
	}
	if !CanTransition(actor.Role, o.Status, to) {
		return errs.ForbiddenTransition("%s cannot move order %s from %s to %s", actor.Role, o.ID, o.Status, to)
	}
	return nil
}

// authorizeCancel applies the cancellation rules. A terminal order is an
// invalid state for every role.
func authorizeCancel(actor models.Actor, o *models.Order) error {
	if o.Status.IsTerminal() {
		return errs.InvalidState("order %s is already %s", o.ID, o.Status)
	}
	if actor.Role == models.RoleLogistics || !ownsOrder(actor, o) {
		return errs.Forbidden("%s %s may not cancel order %s", actor.Role, actor.ID, o.ID)
	}
	if !CanCancel(actor.Role, o.Status) {
		return errs.ForbiddenTransition("%s cannot cancel order %s in status %s", actor.Role, o.ID, o.Status)
	}
	return nil
}

func contains(list []models.OrderStatus, s models.OrderStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
