package sizing

// Sizer rounds a raw quantity down to the nearest tradable quantity for a
// market. Exchange-traded instruments in round-lot markets can only be bought
// in whole board lots; open-end funds trade in single units.
type Sizer interface {
	// Round rounds a raw quantity down to a tradable quantity.
	Round(quantity int64) int64
}

// UnitSizer floors to whole units with no lot constraint.
type UnitSizer struct{}

// NewUnitSizer returns a sizer for markets without round-lot rules.
func NewUnitSizer() *UnitSizer {
	return &UnitSizer{}
}

// Round implements Sizer.
func (s *UnitSizer) Round(quantity int64) int64 {
	if quantity < 0 {
		return 0
	}

	return quantity
}

// BoardLotSizer floors to whole multiples of a lot size.
type BoardLotSizer struct {
	lotSize int64
}

// NewBoardLotSizer returns a sizer that rounds down to multiples of lotSize.
// A lotSize below 1 behaves like a unit sizer.
func NewBoardLotSizer(lotSize int64) *BoardLotSizer {
	if lotSize < 1 {
		lotSize = 1
	}

	return &BoardLotSizer{lotSize: lotSize}
}

// Round implements Sizer.
func (s *BoardLotSizer) Round(quantity int64) int64 {
	if quantity < 0 {
		return 0
	}

	return quantity - quantity%s.lotSize
}
