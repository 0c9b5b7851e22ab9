package sim

import "errors"

var (
	// ErrInsufficientFunds is returned when an order cannot reserve the funds
	// it needs up front.
	ErrInsufficientFunds = errors.New("sim: insufficient funds")

	// ErrInvalidOrder is returned for a malformed or inapplicable order action.
	ErrInvalidOrder = errors.New("sim: invalid order")

	// ErrOrderNotFound is returned when an order id is unknown.
	ErrOrderNotFound = errors.New("sim: order not found")

	// ErrNoPrice is returned when an action needs a market price before the
	// first bar has been fed in.
	ErrNoPrice = errors.New("sim: no market price set")
)
