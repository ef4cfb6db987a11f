package backtest

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/shopspring/decimal"
	"github.com/webclinic017/quant-research/internal/commission"
	"github.com/webclinic017/quant-research/pkg/errors"
	"gopkg.in/yaml.v3"
)

const configDateLayout = "2006-01-02"

// Config describes one backtest run. Start and end bounds are optional;
// a missing bound leaves that side of the window open.
type Config struct {
	// InitialCash is the broker's opening cash balance.
	InitialCash decimal.Decimal `json:"initial_cash" jsonschema:"required" yaml:"initial_cash"`
	// Market selects the commission preset applied to every fill.
	Market commission.Market `json:"market" yaml:"market"`
	// LotSize rounds buy quantities down to a multiple of itself. Zero or
	// one means share-level sizing.
	LotSize int64 `json:"lot_size" yaml:"lot_size"`
	// BuyDay selects whether signals execute at the signal day's price or
	// the next trading day's price.
	BuyDay BuyDay `json:"buy_day" yaml:"buy_day"`
	// WithBanker enables the credit provider that covers buy shortfalls.
	WithBanker bool `json:"with_banker" yaml:"with_banker"`

	StartTime optional.Option[time.Time] `json:"start_time" yaml:"start_time"`
	EndTime   optional.Option[time.Time] `json:"end_time" yaml:"end_time"`

	// ResultsFolder is where trade history and valuations are persisted.
	ResultsFolder string `json:"results_folder" yaml:"results_folder"`
}

// EmptyConfig returns a config with every preset at its zero-cost default.
func EmptyConfig() Config {
	return Config{
		InitialCash:   decimal.Zero,
		Market:        commission.MarketZero,
		LotSize:       1,
		BuyDay:        BuyDayToday,
		WithBanker:    false,
		StartTime:     optional.None[time.Time](),
		EndTime:       optional.None[time.Time](),
		ResultsFolder: "",
	}
}

type rawConfig struct {
	InitialCash   string `yaml:"initial_cash"`
	Market        string `yaml:"market"`
	LotSize       int64  `yaml:"lot_size"`
	BuyDay        string `yaml:"buy_day"`
	WithBanker    bool   `yaml:"with_banker"`
	StartTime     string `yaml:"start_time"`
	EndTime       string `yaml:"end_time"`
	ResultsFolder string `yaml:"results_folder"`
}

// UnmarshalYAML decodes dates from YYYY-MM-DD strings into optional bounds
// and cash amounts into decimals.
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	raw := rawConfig{}
	if err := unmarshal(&raw); err != nil {
		return err
	}

	*c = EmptyConfig()

	if raw.InitialCash != "" {
		cash, err := decimal.NewFromString(raw.InitialCash)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
				"invalid initial_cash: %s", raw.InitialCash)
		}

		c.InitialCash = cash
	}

	if raw.Market != "" {
		c.Market = commission.Market(raw.Market)
	}

	if raw.LotSize > 0 {
		c.LotSize = raw.LotSize
	}

	if raw.BuyDay != "" {
		c.BuyDay = BuyDay(raw.BuyDay)
	}

	c.WithBanker = raw.WithBanker
	c.ResultsFolder = raw.ResultsFolder

	if raw.StartTime != "" {
		start, err := time.Parse(configDateLayout, raw.StartTime)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
				"invalid start_time: %s", raw.StartTime)
		}

		c.StartTime = optional.Some(start)
	}

	if raw.EndTime != "" {
		end, err := time.Parse(configDateLayout, raw.EndTime)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidConfiguration, err,
				"invalid end_time: %s", raw.EndTime)
		}

		c.EndTime = optional.Some(end)
	}

	return nil
}

// ParseConfig decodes and validates a YAML config document.
func ParseConfig(data []byte) (Config, error) {
	config := EmptyConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks bound ordering and enum fields.
func (c *Config) Validate() error {
	if c.InitialCash.IsNegative() {
		return errors.New(errors.ErrCodeInvalidConfiguration, "initial_cash must not be negative")
	}

	if c.LotSize < 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "lot_size must not be negative")
	}

	if c.BuyDay != BuyDayToday && c.BuyDay != BuyDayTomorrow {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown buy_day: %s", c.BuyDay)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() &&
		c.StartTime.Unwrap().After(c.EndTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidDateRange, "start_time is after end_time")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// GenerateSchemaJSON returns the JSON schema describing the config document.
func GenerateSchemaJSON() (string, error) {
	reflector := new(jsonschema.Reflector)
	reflector.DoNotReference = true

	schema := reflector.Reflect(&Config{})
	schema.Title = "backtest-config"
	schema.Description = "Configuration for a single backtest run"

	if property, ok := schema.Properties.Get("market"); ok {
		property.Enum = commission.AllMarkets
	}

	if property, ok := schema.Properties.Get("buy_day"); ok {
		property.Enum = []any{string(BuyDayToday), string(BuyDayTomorrow)}
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeUnknown, "failed to marshal schema", err)
	}

	return string(data), nil
}
