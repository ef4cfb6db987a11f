package writer

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/pkg/errors"
)

// DuckDBWriter buffers bars in an in-memory DuckDB table and finalizes by
// exporting them to a CSV or parquet file the backtest loader can read.
type DuckDBWriter struct {
	db   *sql.DB
	tx   *sql.Tx
	stmt *sql.Stmt

	outputPath string
	format     Format
}

// NewDuckDBWriter creates a writer that finalizes to outputPath in the given
// format.
func NewDuckDBWriter(outputPath string, format Format) *DuckDBWriter {
	return &DuckDBWriter{
		db:         nil,
		tx:         nil,
		stmt:       nil,
		outputPath: outputPath,
		format:     format,
	}
}

// Initialize implements BarWriter.
func (w *DuckDBWriter) Initialize() error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to open duckdb", err)
	}

	w.db = db

	_, err = w.db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			id TEXT,
			code TEXT,
			date TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create bars table", err)
	}

	w.tx, err = w.db.Begin()
	if err != nil {
		w.db.Close()

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to begin transaction", err)
	}

	w.stmt, err = w.tx.Prepare(`
		INSERT INTO bars (id, code, date, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		w.tx.Rollback()
		w.db.Close()

		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to prepare insert", err)
	}

	return nil
}

// Write implements BarWriter.
func (w *DuckDBWriter) Write(code string, bar market.Bar) error {
	if w.stmt == nil {
		return errors.New(errors.ErrCodeQueryFailed, "writer not initialized")
	}

	_, err := w.stmt.Exec(
		uuid.New().String(),
		code,
		bar.Date,
		bar.Open,
		bar.High,
		bar.Low,
		bar.Close,
		bar.Volume,
	)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert bar", err)
	}

	return nil
}

// Finalize commits the buffered bars and exports them to the output file.
func (w *DuckDBWriter) Finalize() (string, error) {
	if w.tx == nil {
		return "", errors.New(errors.ErrCodeQueryFailed, "writer not initialized")
	}

	if err := w.tx.Commit(); err != nil {
		w.tx.Rollback()

		return "", errors.Wrap(errors.ErrCodeQueryFailed, "failed to commit bars", err)
	}

	w.tx = nil

	var export string

	switch w.format {
	case FormatParquet:
		export = fmt.Sprintf(`COPY (SELECT date, open, high, low, close, volume FROM bars ORDER BY date) TO '%s' (FORMAT PARQUET)`, w.outputPath)
	case FormatCSV:
		export = fmt.Sprintf(`COPY (SELECT date, open, high, low, close, volume FROM bars ORDER BY date) TO '%s' (FORMAT CSV, HEADER)`, w.outputPath)
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported output format: %s", w.format)
	}

	if _, err := w.db.Exec(export); err != nil {
		return "", errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to export %s", w.outputPath)
	}

	return w.outputPath, nil
}

// Close implements BarWriter.
func (w *DuckDBWriter) Close() error {
	if w.stmt != nil {
		w.stmt.Close()
		w.stmt = nil
	}

	if w.tx != nil {
		w.tx.Rollback()
		w.tx = nil
	}

	if w.db != nil {
		err := w.db.Close()
		w.db = nil

		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to close duckdb", err)
		}
	}

	return nil
}
