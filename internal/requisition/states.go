// Package requisition drives a purchase request from submission to delivery and
// keeps the budget and petty cash ledgers in step with each transition.
package requisition

import (
	"slices"

	"github.com/CXmiloxx/secop-app-sub001/internal/apperr"
	"github.com/CXmiloxx/secop-app-sub001/internal/models"
)

type Action string

const (
	ActionSubmit  Action = "submit"
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
	ActionRoute   Action = "route"
	ActionPay     Action = "pay"
	ActionDeliver Action = "deliver"
)

// transitions lists, per action, the states it may start from and the states it
// may lead to. Anything absent is an invalid transition.
var transitions = map[Action]map[models.RequisitionState][]models.RequisitionState{
	ActionApprove: {
		models.StatePending: {models.StateApproved},
	},
	ActionReject: {
		models.StatePending:  {models.StateRejected},
		models.StateApproved: {models.StateRejected},
	},
	ActionRoute: {
		models.StateApproved: {
			models.StatePendingTreasuryPayment,
			models.StatePendingPettyCash,
			models.StatePendingInventory,
		},
	},
	ActionPay: {
		models.StatePendingTreasuryPayment: {models.StatePendingInventory, models.StateDelivered},
		models.StatePendingPettyCash:       {models.StatePendingInventory, models.StateDelivered},
	},
	ActionDeliver: {
		models.StatePendingInventory: {models.StateDelivered},
	},
}

// Targets returns the states action may move a requisition in from to.
func Targets(action Action, from models.RequisitionState) []models.RequisitionState {
	return transitions[action][from]
}

func CanTransition(action Action, from, to models.RequisitionState) bool {
	return slices.Contains(Targets(action, from), to)
}

func checkTransition(action Action, from, to models.RequisitionState) error {
	if !CanTransition(action, from, to) {
		return apperr.InvalidTransition("requisition", string(from), string(action))
	}
	return nil
}

// routeTarget maps a payment route to the state that waits on it.
func routeTarget(route models.PaymentRoute) models.RequisitionState {
	switch route {
	case models.RouteTreasury:
		return models.StatePendingTreasuryPayment
	case models.RoutePettyCash:
		return models.StatePendingPettyCash
	case models.RouteInventory:
		return models.StatePendingInventory
	}
	return ""
}
