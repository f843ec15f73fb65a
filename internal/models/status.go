package models

// Status is an order lifecycle state.
type Status string

// Order statuses
const (
	StatusPaymentPending   Status = "PAYMENT_PENDING"
	StatusPendingShipment  Status = "PENDING_SHIPMENT"
	StatusShipped          Status = "SHIPPED"
	StatusDelivered        Status = "DELIVERED"
	StatusCancelledByUser  Status = "CANCELLED_BY_USER"
	StatusCancelledByAdmin Status = "CANCELLED_BY_ADMIN"
	StatusPaymentFailed    Status = "PAYMENT_FAILED"
	StatusRefunded         Status = "REFUNDED"
)

// transitions is the full set of legal status changes. Anything absent here
// is rejected; the machine validates a caller-supplied target and never
// infers a path itself.
var transitions = map[Status]map[Status]bool{
	StatusPaymentPending: {
		StatusPendingShipment: true, // payment confirmation received
		StatusPaymentFailed:   true, // confirmation denied or timed out
		StatusCancelledByUser: true,
	},
	StatusPendingShipment: {
		StatusShipped:          true,
		StatusCancelledByUser:  true,
		StatusCancelledByAdmin: true,
	},
	StatusShipped: {
		StatusDelivered:        true,
		StatusCancelledByAdmin: true,
	},
	StatusDelivered: {
		StatusRefunded: true,
	},
	StatusCancelledByUser:  {},
	StatusCancelledByAdmin: {},
	StatusPaymentFailed:    {},
	StatusRefunded:         {},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// IsTerminal reports whether no further transition leaves s. DELIVERED is not
// terminal in this sense because an admin may still refund it.
func IsTerminal(s Status) bool {
	return len(transitions[s]) == 0
}

// ValidateTransition returns InvalidTransitionError unless from -> to is in
// the table.
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// RestoresStock reports whether entering target must give back the stock the
// placement transaction decremented. Refunds do not restock: the goods
// already shipped.
func RestoresStock(target Status) bool {
	switch target {
	case StatusCancelledByUser, StatusCancelledByAdmin, StatusPaymentFailed:
		return true
	}
	return false
}
