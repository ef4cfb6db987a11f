// Package results persists a finished run's trade history and valuations to
// DuckDB and exports them as parquet files for offline analysis.
package results

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/webclinic017/quant-research/internal/broker"
	"github.com/webclinic017/quant-research/internal/logger"
	"github.com/webclinic017/quant-research/pkg/errors"
	"go.uber.org/zap"
)

// Store collects one run's output in an in-memory DuckDB database. Write
// exports the collected tables to parquet in a results folder.
type Store struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewStore opens an in-memory store and creates its tables.
func NewStore(log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to open results store", err)
	}

	store := &Store{
		db:     db,
		logger: log,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := store.initialize(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			id TEXT,
			code TEXT,
			side TEXT,
			target_date TIMESTAMP,
			actual_date TIMESTAMP,
			executed_price DOUBLE,
			executed_quantity BIGINT,
			amount DOUBLE,
			commission DOUBLE,
			return_rate DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create trades table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS valuations (
			date TIMESTAMP,
			total_value DOUBLE,
			position_value DOUBLE,
			cash DOUBLE,
			total_quantity BIGINT,
			weighted_cost DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create valuations table", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS position_values (
			date TIMESTAMP,
			code TEXT,
			market_value DOUBLE,
			quantity BIGINT,
			cost_basis DOUBLE
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create position_values table", err)
	}

	return nil
}

// SaveTrades inserts the executed trade history.
func (s *Store) SaveTrades(trades []*broker.Trade) error {
	for _, trade := range trades {
		var actualDate, executedPrice, returnRate any

		if trade.ActualDate.IsSome() {
			actualDate = trade.ActualDate.Unwrap()
		}

		if trade.ExecutedPrice.IsSome() {
			executedPrice = trade.ExecutedPrice.Unwrap()
		}

		if trade.ReturnRate.IsSome() {
			returnRate = trade.ReturnRate.Unwrap()
		}

		_, err := s.sq.
			Insert("trades").
			Columns(
				"id", "code", "side", "target_date", "actual_date",
				"executed_price", "executed_quantity", "amount", "commission", "return_rate",
			).
			Values(
				trade.ID, trade.Code, string(trade.Side), trade.TargetDate, actualDate,
				executedPrice, trade.ExecutedQuantity,
				trade.Amount.InexactFloat64(), trade.Commission.InexactFloat64(), returnRate,
			).
			RunWith(s.db).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert trade", err)
		}
	}

	return nil
}

// SaveValuations inserts the daily portfolio valuations.
func (s *Store) SaveValuations(valuations []broker.DailyValuation) error {
	for _, valuation := range valuations {
		_, err := s.sq.
			Insert("valuations").
			Columns("date", "total_value", "position_value", "cash", "total_quantity", "weighted_cost").
			Values(
				valuation.Date,
				valuation.TotalValue.InexactFloat64(),
				valuation.PositionValue.InexactFloat64(),
				valuation.Cash.InexactFloat64(),
				valuation.TotalQuantity,
				valuation.WeightedCost.InexactFloat64(),
			).
			RunWith(s.db).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert valuation", err)
		}
	}

	return nil
}

// SavePositionValues inserts the per-instrument daily market values, ordered
// by instrument code so exports are reproducible across runs.
func (s *Store) SavePositionValues(values map[string][]broker.PositionValuation) error {
	codes := make([]string, 0, len(values))
	for code := range values {
		codes = append(codes, code)
	}

	sort.Strings(codes)

	for _, code := range codes {
		for _, row := range values[code] {
			_, err := s.sq.
				Insert("position_values").
				Columns("date", "code", "market_value", "quantity", "cost_basis").
				Values(
					row.Date, row.Code,
					row.MarketValue.InexactFloat64(), row.Quantity, row.CostBasis.InexactFloat64(),
				).
				RunWith(s.db).
				Exec()
			if err != nil {
				return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert position value", err)
			}
		}
	}

	return nil
}

// SaveRun captures everything a broker accumulated during one run.
func (s *Store) SaveRun(b *broker.Broker) error {
	if err := s.SaveTrades(b.History()); err != nil {
		return err
	}

	if err := s.SaveValuations(b.Valuations()); err != nil {
		return err
	}

	return s.SavePositionValues(b.AllMarketValues())
}

// TradeCount reports how many trades the store holds.
func (s *Store) TradeCount() (int, error) {
	var count int

	err := s.sq.
		Select("COUNT(*)").
		From("trades").
		RunWith(s.db).
		QueryRow().
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count trades", err)
	}

	return count, nil
}

// Write exports all tables as parquet files into the given folder.
func (s *Store) Write(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create results folder", err)
	}

	for _, table := range []string{"trades", "valuations", "position_values"} {
		target := filepath.Join(path, table+".parquet")

		_, err := s.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, target))
		if err != nil {
			return errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to export %s", table)
		}
	}

	s.logger.Info("Exported results to parquet", zap.String("path", path))

	return nil
}

// Cleanup drops and recreates the tables.
func (s *Store) Cleanup() error {
	_, err := s.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS valuations;
		DROP TABLE IF EXISTS position_values;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop tables", err)
	}

	return s.initialize()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
