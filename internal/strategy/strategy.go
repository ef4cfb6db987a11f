// Package strategy defines the decision-making collaborator of a backtest.
// Strategies read already-augmented price series and enqueue trades on the
// broker; they never touch the ledger directly.
package strategy

import (
	"sort"
	"time"

	"github.com/webclinic017/quant-research/internal/market"
)

// Strategy is called once per simulated day, before the broker executes.
type Strategy interface {
	// Name identifies the strategy in results and logs.
	Name() string
	// SetData hands the strategy the baseline and instrument series before
	// the run starts.
	SetData(baseline *market.Series, instruments map[string]*market.Series)
	// Next is invoked for each simulated day. today is the decision date;
	// tradeDate is the date any orders placed now should target (today or the
	// next trading day, per the engine's buy-day policy). Returned errors
	// abort the whole run.
	Next(today time.Time, tradeDate time.Time) error
}

// sortedCodes returns the instrument codes in ascending order. Strategies
// must place orders in a stable order so repeated runs over the same input
// produce identical trade histories.
func sortedCodes(instruments map[string]*market.Series) []string {
	codes := make([]string, 0, len(instruments))
	for code := range instruments {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	return codes
}
