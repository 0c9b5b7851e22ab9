package sim

import (
	"time"

	"github.com/shopspring/decimal"
)

// AmountPrecision is the decimal precision base amounts are quantized to.
const AmountPrecision int32 = 8

type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

type Kind int8

const (
	Market Kind = iota
	Limit
)

func (k Kind) String() string {
	if k == Market {
		return "market"
	}
	return "limit"
}

type Status int8

const (
	StatusOpen Status = iota
	StatusClosed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	default:
		return "cancelled"
	}
}

// Order is one order on the simulated exchange. IDs are sequential per
// exchange so replays of the same input produce the same ids. Once an order
// reaches StatusClosed or StatusCancelled the exchange never touches it again.
type Order struct {
	ID     int64
	Side   Side
	Kind   Kind
	Price  decimal.Decimal // limit price; zero for market orders
	Amount decimal.Decimal
	Filled decimal.Decimal
	Status Status

	Created time.Time

	// Set when the order fills.
	FillPrice decimal.Decimal
	Fee       decimal.Decimal
	FillTime  time.Time

	// Reservation bookkeeping, released or consumed exactly once.
	reservedQuote decimal.Decimal
	earmarkedBase bool
}

// Fill reports one executed order.
type Fill struct {
	OrderID int64
	Side    Side
	Price   decimal.Decimal
	Amount  decimal.Decimal
	Fee     decimal.Decimal
	Time    time.Time
}
