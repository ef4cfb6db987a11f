package broker

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
)

// Side is the direction of a trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type sizeKind int

const (
	sizeUnset sizeKind = iota
	sizeByAmount
	sizeByQuantity
)

// OrderSize is the driving input of an order: either a cash amount or an
// explicit quantity. Exactly one is set; the other is derived at execution
// time. The zero value is invalid and rejected at order creation.
type OrderSize struct {
	kind     sizeKind
	amount   decimal.Decimal
	quantity int64
}

// SizeByAmount sizes an order by the cash amount to deploy.
func SizeByAmount(amount decimal.Decimal) OrderSize {
	return OrderSize{kind: sizeByAmount, amount: amount}
}

// SizeByQuantity sizes an order by an explicit number of units.
func SizeByQuantity(quantity int64) OrderSize {
	return OrderSize{kind: sizeByQuantity, quantity: quantity}
}

// IsZero reports whether the size was never set.
func (s OrderSize) IsZero() bool {
	return s.kind == sizeUnset
}

// Amount returns the cash amount when the order is amount-driven.
func (s OrderSize) Amount() (decimal.Decimal, bool) {
	return s.amount, s.kind == sizeByAmount
}

// Quantity returns the unit count when the order is quantity-driven.
func (s OrderSize) Quantity() (int64, bool) {
	return s.quantity, s.kind == sizeByQuantity
}

// Trade is an order intent created by a strategy. It lives in the broker's
// pending list until the first simulated day at or after TargetDate with
// price data, at which point the execution fields are filled and the trade
// moves to the history.
type Trade struct {
	ID         string
	Code       string
	Side       Side
	TargetDate time.Time
	Size       OrderSize

	// Filled at execution time.
	ActualDate       optional.Option[time.Time]
	ExecutedPrice    optional.Option[float64]
	ExecutedQuantity int64
	Amount           decimal.Decimal
	Commission       decimal.Decimal
	// ReturnRate is the realized return against average cost, sells only.
	ReturnRate optional.Option[float64]
}

// Executed reports whether the trade has been filled.
func (t *Trade) Executed() bool {
	return t.ActualDate.IsSome()
}
