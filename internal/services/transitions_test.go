package services_test

import (
	"testing"

	"feira/internal/models"
	"feira/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition_Table(t *testing.T) {
	allowed := map[models.Role]map[models.OrderStatus]models.OrderStatus{
		models.RoleProducer: {
			models.StatusPending:   models.StatusConfirmed,
			models.StatusConfirmed: models.StatusPreparing,
			models.StatusPreparing: models.StatusReady,
		},
		models.RoleLogistics: {
			models.StatusReady:      models.StatusInDelivery,
			models.StatusInDelivery: models.StatusDelivered,
		},
		models.RoleConsumer: {
			models.StatusPending: models.StatusCancelled,
		},
	}

	for _, role := range []models.Role{models.RoleProducer, models.RoleConsumer, models.RoleLogistics} {
		for _, from := range models.OrderStatuses {
			for _, to := range models.OrderStatuses {
				want, ok := allowed[role][from]
				expected := ok && want == to
				assert.Equal(t, expected, services.CanTransition(role, from, to), "%s: %s -> %s", role, from, to)
			}
		}
	}
}

func TestCanTransition_TerminalStatuses(t *testing.T) {
	for _, role := range []models.Role{models.RoleProducer, models.RoleConsumer, models.RoleLogistics} {
		assert.Empty(t, services.AllowedTransitions(role, models.StatusDelivered))
		assert.Empty(t, services.AllowedTransitions(role, models.StatusCancelled))
	}
}

func TestCanCancel(t *testing.T) {
	tests := []struct {
		role   models.Role
		status models.OrderStatus
		want   bool
	}{
		{models.RoleConsumer, models.StatusPending, true},
		{models.RoleConsumer, models.StatusConfirmed, true},
		{models.RoleConsumer, models.StatusReady, false},
		{models.RoleProducer, models.StatusPending, true},
		{models.RoleProducer, models.StatusConfirmed, false},
		{models.RoleLogistics, models.StatusReady, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, services.CanCancel(tt.role, tt.status), "%s in %s", tt.role, tt.status)
	}
}

func TestAllowedTransitions_ReturnsCopy(t *testing.T) {
	next := services.AllowedTransitions(models.RoleProducer, models.StatusPending)
	next[0] = models.StatusDelivered
	assert.True(t, services.CanTransition(models.RoleProducer, models.StatusPending, models.StatusConfirmed))
}
