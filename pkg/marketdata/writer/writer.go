package writer

import "github.com/webclinic017/quant-research/internal/market"

// Format selects the on-disk file format the writer finalizes to.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// BarWriter persists downloaded daily bars for one instrument.
type BarWriter interface {
	// Initialize prepares the writer for a new download.
	Initialize() error
	// Write persists one bar.
	Write(code string, bar market.Bar) error
	// Finalize flushes everything and returns the output file path.
	Finalize() (string, error)
	// Close releases writer resources. Safe to call after Finalize.
	Close() error
}
