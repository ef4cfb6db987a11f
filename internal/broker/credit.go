package broker

import "github.com/shopspring/decimal"

// CreditProvider extends the broker's cash when a buy cannot be funded from
// the current balance. It models an external funding line: the broker asks
// for exactly the shortfall instead of shrinking the order.
type CreditProvider interface {
	// Extend adds the given amount to the broker's available cash.
	Extend(amount decimal.Decimal) error
}

// Banker is a bottomless CreditProvider that tracks how much it has lent.
// The accumulated debt is the real capital a strategy consumed, which recycled
// sale proceeds would otherwise hide.
type Banker struct {
	debt       decimal.Decimal
	extensions int
}

// NewBanker creates a Banker with no outstanding debt.
func NewBanker() *Banker {
	return &Banker{
		debt:       decimal.Zero,
		extensions: 0,
	}
}

// Extend implements CreditProvider.
func (b *Banker) Extend(amount decimal.Decimal) error {
	b.debt = b.debt.Add(amount)
	b.extensions++

	return nil
}

// Debt returns the total credit extended so far.
func (b *Banker) Debt() decimal.Decimal {
	return b.debt
}

// Extensions returns how many times credit was extended.
func (b *Banker) Extensions() int {
	return b.extensions
}
