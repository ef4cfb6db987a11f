// Package marketdata ties a vendor provider to a bar writer so callers can
// download daily history for the instruments a backtest needs.
package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/webclinic017/quant-research/pkg/errors"
	"github.com/webclinic017/quant-research/pkg/marketdata/provider"
	"github.com/webclinic017/quant-research/pkg/marketdata/writer"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  provider.ProviderType `validate:"required,oneof=polygon binance"`
	Format        writer.Format         `validate:"required,oneof=csv parquet"`
	DataPath      string                `validate:"required"`
	PolygonApiKey string                `validate:"required_if=ProviderType polygon"`
}

// DownloadParams holds the parameters for a download request.
type DownloadParams struct {
	Ticker    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

// Client downloads daily bars from a provider and stores them under the
// configured data path, one file per instrument.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
}

// NewClient creates a market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	p, err := provider.NewProvider(config.ProviderType, config.PolygonApiKey)
	if err != nil {
		return nil, err
	}

	return &Client{
		provider:   p,
		config:     config,
		validate:   validate,
		onProgress: onProgress,
	}, nil
}

// Download fetches one instrument's daily history and returns the path of
// the written file.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	if _, err := os.Stat(c.config.DataPath); os.IsNotExist(err) {
		if err := os.MkdirAll(c.config.DataPath, 0755); err != nil {
			return "", errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to create data path", err)
		}
	}

	fileName := fmt.Sprintf("%s_%s_%s.%s",
		params.Ticker,
		params.StartDate.Format("2006-01-02"),
		params.EndDate.Format("2006-01-02"),
		c.config.Format,
	)
	outputPath := filepath.Join(c.config.DataPath, fileName)

	w := writer.NewDuckDBWriter(outputPath, c.config.Format)
	defer w.Close()

	c.provider.ConfigWriter(w)

	return c.provider.Download(ctx, params.Ticker, params.StartDate, params.EndDate, c.onProgress)
}
