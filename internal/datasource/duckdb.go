// Package datasource loads daily price series from CSV or parquet files
// through an embedded DuckDB instance.
package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/internal/market"
	"github.com/webclinic017/quant-research/pkg/errors"
	"go.uber.org/zap"
)

// baseColumns are mapped onto Bar fields; every other numeric column of a
// file becomes a named indicator on the bar.
var baseColumns = map[string]bool{
	"date":   true,
	"time":   true,
	"open":   true,
	"high":   true,
	"low":    true,
	"close":  true,
	"volume": true,
}

// DuckDBSource reads bar files by creating a DuckDB view per instrument and
// querying it. CSV and parquet are both handled by DuckDB's readers, so the
// loader never parses files itself.
type DuckDBSource struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBSource opens an in-memory DuckDB instance.
func NewDuckDBSource(log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open duckdb", err)
	}

	return &DuckDBSource{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Close releases the underlying database.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}

// LoadSeries reads one instrument's daily bars from a CSV or parquet file.
// Extra numeric columns (moving averages and the like) are attached to each
// bar as indicators under their column name.
func (d *DuckDBSource) LoadSeries(code string, path string) (*market.Series, error) {
	view := viewName(code)

	if err := d.createView(view, path); err != nil {
		return nil, err
	}

	columns, err := d.columns(view)
	if err != nil {
		return nil, err
	}

	dateColumn := ""

	var indicators []string

	for _, column := range columns {
		switch {
		case column == "date" || column == "time":
			dateColumn = column
		case !baseColumns[column]:
			indicators = append(indicators, column)
		}
	}

	if dateColumn == "" {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "%s has no date column", path)
	}

	bars, err := d.readBars(view, dateColumn, columnSet(columns), indicators)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("Loaded series",
		zap.String("code", code),
		zap.String("path", path),
		zap.Int("bars", len(bars)),
		zap.Strings("indicators", indicators),
	)

	return market.NewSeries(code, bars), nil
}

// LoadAll loads one series per entry of paths, keyed by instrument code.
func (d *DuckDBSource) LoadAll(paths map[string]string) (map[string]*market.Series, error) {
	series := make(map[string]*market.Series, len(paths))

	for code, path := range paths {
		s, err := d.LoadSeries(code, path)
		if err != nil {
			return nil, err
		}

		series[code] = s
	}

	return series, nil
}

// createView points a view at the file so every later query goes through
// DuckDB's own CSV or parquet reader.
func (d *DuckDBSource) createView(view string, path string) error {
	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = fmt.Sprintf("read_csv_auto('%s')", path)
	case ".parquet":
		reader = fmt.Sprintf("read_parquet('%s')", path)
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unsupported data file: %s", path)
	}

	if _, err := d.db.Exec(fmt.Sprintf(`DROP VIEW IF EXISTS %s`, view)); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	// CREATE VIEW has no placeholder support, raw SQL is required here.
	query := fmt.Sprintf(`CREATE VIEW %s AS SELECT * FROM %s`, view, reader)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read %s", path)
	}

	return nil
}

func (d *DuckDBSource) columns(view string) ([]string, error) {
	query, args, err := d.sq.
		Select("column_name").
		From("information_schema.columns").
		Where(squirrel.Eq{"table_name": view}).
		OrderBy("ordinal_position").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build column query", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query columns", err)
	}
	defer rows.Close()

	var columns []string

	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan column name", err)
		}

		columns = append(columns, strings.ToLower(column))
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate columns", err)
	}

	return columns, nil
}

func (d *DuckDBSource) readBars(
	view string,
	dateColumn string,
	available map[string]bool,
	indicators []string,
) ([]market.Bar, error) {
	selected := []string{dateColumn}

	// Price columns may be missing in sparse files (fund NAV data has no
	// volume); absent ones are selected as NULL so scanning stays uniform.
	for _, column := range []string{"open", "high", "low", "close", "volume"} {
		if available[column] {
			selected = append(selected, column)
		} else {
			selected = append(selected, fmt.Sprintf("NULL AS %s", column))
		}
	}

	selected = append(selected, indicators...)

	query, _, err := d.sq.
		Select(selected...).
		From(view).
		OrderBy(dateColumn + " ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bar query", err)
	}

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []market.Bar

	for rows.Next() {
		var (
			date                           time.Time
			open, high, low, close, volume sql.NullFloat64
		)

		values := make([]sql.NullFloat64, len(indicators))
		targets := []any{&date, &open, &high, &low, &close, &volume}

		for i := range values {
			targets = append(targets, &values[i])
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bar := market.Bar{
			Date:   date,
			Open:   open.Float64,
			High:   high.Float64,
			Low:    low.Float64,
			Close:  close.Float64,
			Volume: volume.Float64,
		}

		for i, name := range indicators {
			if values[i].Valid {
				bar.SetIndicator(name, values[i].Float64)
			}
		}

		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bars", err)
	}

	if len(bars) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "%s contains no rows", view)
	}

	return bars, nil
}

func columnSet(columns []string) map[string]bool {
	set := make(map[string]bool, len(columns))
	for _, column := range columns {
		set[column] = true
	}

	return set
}

// viewName derives a SQL-safe view name from an instrument code.
func viewName(code string) string {
	var b strings.Builder

	b.WriteString("bars_")

	for _, r := range code {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}

	return b.String()
}
