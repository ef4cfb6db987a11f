package mocks

import (
	"math"
	"math/rand"
	"strconv"
	"time"

	"github.com/webclinic017/quant-research/internal/market"
)

// DataGenerator produces realistic daily bar series for testing and
// benchmarking.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how daily bars are generated.
type GeneratorConfig struct {
	// StartDate is the first bar's date.
	StartDate time.Time
	// Count is the number of trading days to generate.
	Count int
	// InitialPrice is the first bar's open.
	InitialPrice float64
	// Volatility controls day-to-day price movement (0.01 = 1% typical move).
	Volatility float64
	// Trend is the total drift over the whole series.
	Trend float64
	// VolumeBase is the average daily volume.
	VolumeBase float64
	// VolumeVariance is the variance in volume (0.0 to 1.0).
	VolumeVariance float64
	// SkipWeekends leaves Saturdays and Sundays out of the series.
	SkipWeekends bool
	// MAWindow, when positive, attaches a trailing moving average of the
	// close under the indicator name "ma<window>".
	MAWindow int
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		StartDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Count:          250,
		InitialPrice:   100.0,
		Volatility:     0.01,
		Trend:          0.0,
		VolumeBase:     10000,
		VolumeVariance: 0.3,
		SkipWeekends:   true,
		MAWindow:       0,
	}
}

// Generate creates daily bars following geometric Brownian motion.
func (g *DataGenerator) Generate(config GeneratorConfig) []market.Bar {
	bars := make([]market.Bar, 0, config.Count)
	currentPrice := config.InitialPrice
	currentDate := config.StartDate

	var closes []float64

	for len(bars) < config.Count {
		if config.SkipWeekends {
			for currentDate.Weekday() == time.Saturday || currentDate.Weekday() == time.Sunday {
				currentDate = currentDate.AddDate(0, 0, 1)
			}
		}

		open := currentPrice

		// Box-Muller transform for a normally distributed daily move
		u1 := g.rng.Float64()
		u2 := g.rng.Float64()
		z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)

		priceChange := config.Volatility * z
		drift := config.Trend / float64(config.Count)

		close := open * (1 + priceChange + drift)
		if close <= 0 {
			close = open * 0.99
		}

		highExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)
		lowExtension := math.Abs(g.rng.Float64() * config.Volatility * open * 0.5)

		high := math.Max(open, close) + highExtension

		low := math.Min(open, close) - lowExtension
		if low <= 0 {
			low = math.Min(open, close) * 0.99
		}

		volumeVariation := 1.0 + (g.rng.Float64()*2-1)*config.VolumeVariance

		volume := config.VolumeBase * volumeVariation
		if volume < 0 {
			volume = config.VolumeBase * 0.1
		}

		bar := market.Bar{
			Date:   currentDate,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(close, 4),
			Volume: roundToDecimals(volume, 2),
		}

		closes = append(closes, bar.Close)

		if config.MAWindow > 0 && len(closes) >= config.MAWindow {
			sum := 0.0
			for _, c := range closes[len(closes)-config.MAWindow:] {
				sum += c
			}

			bar.SetIndicator(maName(config.MAWindow), roundToDecimals(sum/float64(config.MAWindow), 4))
		}

		bars = append(bars, bar)

		currentPrice = close
		currentDate = currentDate.AddDate(0, 0, 1)
	}

	return bars
}

// GenerateSeries wraps Generate into a ready-to-use Series.
func (g *DataGenerator) GenerateSeries(code string, config GeneratorConfig) *market.Series {
	return market.NewSeries(code, g.Generate(config))
}

// GenerateMulti generates one series per code, varying initial price and
// volatility slightly per instrument.
func (g *DataGenerator) GenerateMulti(codes []string, baseConfig GeneratorConfig) map[string]*market.Series {
	series := make(map[string]*market.Series, len(codes))

	for _, code := range codes {
		config := baseConfig
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		series[code] = g.GenerateSeries(code, config)
	}

	return series
}

func maName(window int) string {
	return "ma" + strconv.Itoa(window)
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))

	return math.Round(val*pow) / pow
}
