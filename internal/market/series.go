package market

import (
	"sort"
	"time"

	"github.com/moznion/go-optional"
)

// Series is a date-indexed daily price series for one instrument. Bars are
// kept in ascending date order; lookups are by exact calendar day.
type Series struct {
	code  string
	bars  []Bar
	index map[time.Time]int
}

// NewSeries builds a Series from bars in any order. Bar dates are truncated
// to midnight UTC so lookups are calendar-day exact; when the input contains
// duplicate dates the last bar wins.
func NewSeries(code string, bars []Bar) *Series {
	s := &Series{
		code:  code,
		bars:  make([]Bar, 0, len(bars)),
		index: make(map[time.Time]int, len(bars)),
	}

	for _, bar := range bars {
		bar.Date = DayOf(bar.Date)
		if i, ok := s.index[bar.Date]; ok {
			s.bars[i] = bar

			continue
		}

		s.index[bar.Date] = len(s.bars)
		s.bars = append(s.bars, bar)
	}

	sort.Slice(s.bars, func(i, j int) bool {
		return s.bars[i].Date.Before(s.bars[j].Date)
	})

	// Rebuild the index after sorting
	for i, bar := range s.bars {
		s.index[bar.Date] = i
	}

	return s
}

// Code returns the instrument code this series belongs to.
func (s *Series) Code() string {
	return s.code
}

// Len returns the number of bars in the series.
func (s *Series) Len() int {
	return len(s.bars)
}

// Lookup returns the bar for the given calendar day. A None result means the
// instrument has no data for that day, which callers treat as "data
// temporarily unavailable" rather than an error.
func (s *Series) Lookup(date time.Time) optional.Option[Bar] {
	i, ok := s.index[DayOf(date)]
	if !ok {
		return optional.None[Bar]()
	}

	return optional.Some(s.bars[i])
}

// Dates returns every date present in the series in ascending order.
func (s *Series) Dates() []time.Time {
	dates := make([]time.Time, len(s.bars))
	for i, bar := range s.bars {
		dates[i] = bar.Date
	}

	return dates
}

// Bars returns the bars in ascending date order. The slice is shared; callers
// must not mutate it.
func (s *Series) Bars() []Bar {
	return s.bars
}

// First returns the earliest bar, if any.
func (s *Series) First() optional.Option[Bar] {
	if len(s.bars) == 0 {
		return optional.None[Bar]()
	}

	return optional.Some(s.bars[0])
}

// Last returns the latest bar, if any.
func (s *Series) Last() optional.Option[Bar] {
	if len(s.bars) == 0 {
		return optional.None[Bar]()
	}

	return optional.Some(s.bars[len(s.bars)-1])
}

// DayOf truncates a timestamp to its calendar day in UTC.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// UnionDates merges the date indexes of the baseline and every instrument
// series into one ascending simulation calendar.
func UnionDates(baseline *Series, instruments map[string]*Series) []time.Time {
	seen := make(map[time.Time]struct{})

	if baseline != nil {
		for _, d := range baseline.Dates() {
			seen[d] = struct{}{}
		}
	}

	for _, series := range instruments {
		for _, d := range series.Dates() {
			seen[d] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}

	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})

	return dates
}
