// Package provider downloads daily bar history from external market data
// vendors.
package provider

import (
	"context"
	"time"

	"github.com/webclinic017/quant-research/pkg/errors"
	"github.com/webclinic017/quant-research/pkg/marketdata/writer"
)

// ProviderType identifies a market data vendor.
type ProviderType string

const (
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

// OnDownloadProgress reports download progress to the caller.
type OnDownloadProgress = func(current float64, total float64, message string)

// Provider downloads one instrument's daily bars into a configured writer.
type Provider interface {
	// ConfigWriter sets the destination for downloaded bars.
	ConfigWriter(w writer.BarWriter)
	// Download fetches daily bars for [startDate, endDate] and returns the
	// output file path written by the configured writer.
	Download(ctx context.Context, ticker string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) (string, error)
}

// NewProvider creates a provider for the given vendor. Polygon requires an
// API key as config.
func NewProvider(providerType ProviderType, config any) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient(), nil
	case ProviderPolygon:
		apiKey, ok := config.(string)
		if !ok {
			return nil, errors.New(errors.ErrCodeInvalidParameter, "polygon provider requires an API key")
		}

		return NewPolygonClient(apiKey)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported provider: %s", providerType)
	}
}
