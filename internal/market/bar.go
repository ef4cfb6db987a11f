package market

import (
	"time"

	"github.com/moznion/go-optional"
)

// Bar is a single daily price record for one instrument. Indicator columns
// added by a data provider (moving averages, channel bounds, ...) travel with
// the bar so strategies can read them without a second lookup.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`

	// Indicators holds provider-computed columns keyed by name, e.g. "ma850".
	Indicators map[string]float64
}

// SetIndicator attaches a named indicator value to the bar.
func (b *Bar) SetIndicator(name string, value float64) {
	if b.Indicators == nil {
		b.Indicators = make(map[string]float64)
	}

	b.Indicators[name] = value
}

// Indicator returns the named indicator column if the provider computed it
// for this bar.
func (b Bar) Indicator(name string) optional.Option[float64] {
	if b.Indicators == nil {
		return optional.None[float64]()
	}

	value, ok := b.Indicators[name]
	if !ok {
		return optional.None[float64]()
	}

	return optional.Some(value)
}
