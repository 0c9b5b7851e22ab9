package sim

import "github.com/shopspring/decimal"

// Balance is the exchange account: quote currency split into free and
// reserved ("used") portions, plus base inventory. FreeQuote and UsedQuote
// never go negative; Base can, when shorting is enabled.
type Balance struct {
	FreeQuote decimal.Decimal
	UsedQuote decimal.Decimal
	Base      decimal.Decimal
}

// TotalQuote is free plus reserved quote.
func (b Balance) TotalQuote() decimal.Decimal {
	return b.FreeQuote.Add(b.UsedQuote)
}

// Value marks the whole account to the given price.
func (b Balance) Value(price decimal.Decimal) decimal.Decimal {
	return b.TotalQuote().Add(b.Base.Mul(price))
}
