package sim

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/quantsim/market"
)

// Config sets the fee/slippage model of a simulated exchange.
//
// Fees are always charged in quote currency. Slippage applies to market
// orders only; limit orders fill at their limit price. AllowShort picks the
// balance model for sells that exceed base inventory: when enabled, a short
// sell reserves quote collateral of price*amount at creation and the base
// balance is allowed to go negative on fill.
type Config struct {
	FeeRate    decimal.Decimal
	Slippage   decimal.Decimal
	AllowShort bool
}

// Exchange is the exchange of record for one symbol's simulation. It owns
// the order book and the balance; nothing else mutates them.
//
// An Exchange is intentionally not safe for concurrent use: each simulation
// loop owns exactly one, and the loop is strictly sequential.
type Exchange struct {
	cfg Config

	bal       Balance
	earmarked decimal.Decimal // base units reserved by open limit sells

	price decimal.Decimal
	now   time.Time

	orders  map[int64]*Order
	openIDs []int64 // open limit orders in creation order
	nextID  int64
}

// NewExchange starts an exchange holding initialQuote of free quote currency
// and no base inventory.
func NewExchange(cfg Config, initialQuote decimal.Decimal) (*Exchange, error) {
	if initialQuote.IsNegative() {
		return nil, fmt.Errorf("initial quote %s: %w", initialQuote, ErrInsufficientFunds)
	}
	if cfg.FeeRate.IsNegative() || cfg.Slippage.IsNegative() {
		return nil, fmt.Errorf("sim: negative fee or slippage")
	}
	return &Exchange{
		cfg:    cfg,
		bal:    Balance{FreeQuote: initialQuote},
		orders: make(map[int64]*Order),
		nextID: 1,
	}, nil
}

// Price returns the last price fed in via SetBar.
func (e *Exchange) Price() decimal.Decimal { return e.price }

// Balance returns a copy of the current account balance.
func (e *Exchange) Balance() Balance { return e.bal }

// AvailableBase is base inventory not earmarked by open limit sells.
func (e *Exchange) AvailableBase() decimal.Decimal {
	return e.bal.Base.Sub(e.earmarked)
}

// PortfolioValue marks the account to the current price:
// free quote + used quote + base * price.
func (e *Exchange) PortfolioValue() decimal.Decimal {
	return e.bal.Value(e.price)
}

// Order returns the order with the given id.
func (e *Exchange) Order(id int64) (*Order, error) {
	o, ok := e.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ErrOrderNotFound)
	}
	return o, nil
}

// OpenOrders returns open limit orders in creation order.
func (e *Exchange) OpenOrders() []*Order {
	out := make([]*Order, 0, len(e.openIDs))
	for _, id := range e.openIDs {
		out = append(out, e.orders[id])
	}
	return out
}

// SetBar advances the market to the given bar: the current price becomes the
// bar close, then every open limit order is checked against the bar's range.
// A limit buy fills once low <= limit price, a limit sell once high >= limit
// price, always at the limit price itself. The bar's range gates the fill, so
// no order fills at a price the market never traded through.
func (e *Exchange) SetBar(c market.Candle) []Fill {
	e.price = decimal.NewFromFloat(c.Close)
	e.now = c.Time

	low := decimal.NewFromFloat(c.Low)
	high := decimal.NewFromFloat(c.High)

	var fills []Fill
	remaining := e.openIDs[:0]
	for _, id := range e.openIDs {
		o := e.orders[id]
		trig := (o.Side == Buy && low.LessThanOrEqual(o.Price)) ||
			(o.Side == Sell && high.GreaterThanOrEqual(o.Price))
		if !trig {
			remaining = append(remaining, id)
			continue
		}
		fills = append(fills, e.fillLimit(o))
	}
	e.openIDs = remaining
	return fills
}

// CreateOrder places an order. Market orders fill immediately at the current
// price adjusted by slippage. Limit orders reserve funds up front and are
// only accepted if the reservation succeeds.
func (e *Exchange) CreateOrder(side Side, kind Kind, amount, price decimal.Decimal) (*Order, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("amount %s: %w", amount, ErrInvalidOrder)
	}
	if side != Buy && side != Sell {
		return nil, fmt.Errorf("side %d: %w", side, ErrInvalidOrder)
	}

	switch kind {
	case Market:
		if e.price.IsZero() {
			return nil, ErrNoPrice
		}
		return e.fillMarket(side, amount)
	case Limit:
		if !price.IsPositive() {
			return nil, fmt.Errorf("limit price %s: %w", price, ErrInvalidOrder)
		}
		return e.placeLimit(side, amount, price)
	default:
		return nil, fmt.Errorf("kind %d: %w", kind, ErrInvalidOrder)
	}
}

// CancelOrder releases the exact reservation made when the order was placed.
func (e *Exchange) CancelOrder(id int64) error {
	o, ok := e.orders[id]
	if !ok {
		return fmt.Errorf("cancel order %d: %w", id, ErrOrderNotFound)
	}
	if o.Status != StatusOpen {
		return fmt.Errorf("cancel order %d (%s): %w", id, o.Status, ErrInvalidOrder)
	}

	switch {
	case o.earmarkedBase:
		e.earmarked = e.earmarked.Sub(o.Amount)
	default:
		e.bal.UsedQuote = e.bal.UsedQuote.Sub(o.reservedQuote)
		e.bal.FreeQuote = e.bal.FreeQuote.Add(o.reservedQuote)
	}
	o.Status = StatusCancelled

	for i, openID := range e.openIDs {
		if openID == id {
			e.openIDs = append(e.openIDs[:i], e.openIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (e *Exchange) newOrder(side Side, kind Kind, amount, price decimal.Decimal) *Order {
	o := &Order{
		ID:      e.nextID,
		Side:    side,
		Kind:    kind,
		Price:   price,
		Amount:  amount,
		Created: e.now,
	}
	e.nextID++
	e.orders[o.ID] = o
	return o
}

func (e *Exchange) fillMarket(side Side, amount decimal.Decimal) (*Order, error) {
	one := decimal.NewFromInt(1)

	var fillPrice decimal.Decimal
	if side == Buy {
		fillPrice = e.price.Mul(one.Add(e.cfg.Slippage))
	} else {
		fillPrice = e.price.Mul(one.Sub(e.cfg.Slippage))
	}

	notional := fillPrice.Mul(amount)
	fee := notional.Mul(e.cfg.FeeRate)

	if side == Buy {
		total := notional.Add(fee)
		if e.bal.FreeQuote.LessThan(total) {
			return nil, fmt.Errorf("market buy needs %s, free %s: %w",
				total, e.bal.FreeQuote, ErrInsufficientFunds)
		}
		e.bal.FreeQuote = e.bal.FreeQuote.Sub(total)
		e.bal.Base = e.bal.Base.Add(amount)
	} else {
		if amount.GreaterThan(e.AvailableBase()) && !e.cfg.AllowShort {
			return nil, fmt.Errorf("market sell %s, available base %s: %w",
				amount, e.AvailableBase(), ErrInsufficientFunds)
		}
		e.bal.Base = e.bal.Base.Sub(amount)
		e.bal.FreeQuote = e.bal.FreeQuote.Add(notional.Sub(fee))
	}

	o := e.newOrder(side, Market, amount, decimal.Decimal{})
	o.Status = StatusClosed
	o.Filled = amount
	o.FillPrice = fillPrice
	o.Fee = fee
	o.FillTime = e.now
	return o, nil
}

func (e *Exchange) placeLimit(side Side, amount, price decimal.Decimal) (*Order, error) {
	one := decimal.NewFromInt(1)
	o := e.newOrder(side, Limit, amount, price)

	if side == Buy {
		// Reserve notional plus fee so the fill spends exactly the reservation.
		reserve := price.Mul(amount).Mul(one.Add(e.cfg.FeeRate))
		if e.bal.FreeQuote.LessThan(reserve) {
			delete(e.orders, o.ID)
			return nil, fmt.Errorf("limit buy needs %s, free %s: %w",
				reserve, e.bal.FreeQuote, ErrInsufficientFunds)
		}
		e.bal.FreeQuote = e.bal.FreeQuote.Sub(reserve)
		e.bal.UsedQuote = e.bal.UsedQuote.Add(reserve)
		o.reservedQuote = reserve
	} else {
		switch {
		case e.AvailableBase().GreaterThanOrEqual(amount):
			e.earmarked = e.earmarked.Add(amount)
			o.earmarkedBase = true
		case e.cfg.AllowShort:
			// Sell-to-open: hold quote collateral for the eventual buyback.
			collateral := price.Mul(amount)
			if e.bal.FreeQuote.LessThan(collateral) {
				delete(e.orders, o.ID)
				return nil, fmt.Errorf("short limit sell needs %s collateral, free %s: %w",
					collateral, e.bal.FreeQuote, ErrInsufficientFunds)
			}
			e.bal.FreeQuote = e.bal.FreeQuote.Sub(collateral)
			e.bal.UsedQuote = e.bal.UsedQuote.Add(collateral)
			o.reservedQuote = collateral
		default:
			delete(e.orders, o.ID)
			return nil, fmt.Errorf("limit sell %s, available base %s: %w",
				amount, e.AvailableBase(), ErrInsufficientFunds)
		}
	}

	o.Status = StatusOpen
	e.openIDs = append(e.openIDs, o.ID)
	return o, nil
}

func (e *Exchange) fillLimit(o *Order) Fill {
	notional := o.Price.Mul(o.Amount)
	fee := notional.Mul(e.cfg.FeeRate)

	if o.Side == Buy {
		// The reservation was notional*(1+fee); consume it exactly.
		e.bal.UsedQuote = e.bal.UsedQuote.Sub(o.reservedQuote)
		e.bal.Base = e.bal.Base.Add(o.Amount)
	} else {
		if o.earmarkedBase {
			e.earmarked = e.earmarked.Sub(o.Amount)
		} else {
			// Short: return collateral, book the proceeds.
			e.bal.UsedQuote = e.bal.UsedQuote.Sub(o.reservedQuote)
			e.bal.FreeQuote = e.bal.FreeQuote.Add(o.reservedQuote)
		}
		e.bal.Base = e.bal.Base.Sub(o.Amount)
		e.bal.FreeQuote = e.bal.FreeQuote.Add(notional.Sub(fee))
	}

	o.Status = StatusClosed
	o.Filled = o.Amount
	o.FillPrice = o.Price
	o.Fee = fee
	o.FillTime = e.now

	return Fill{
		OrderID: o.ID,
		Side:    o.Side,
		Price:   o.Price,
		Amount:  o.Amount,
		Fee:     fee,
		Time:    e.now,
	}
}
