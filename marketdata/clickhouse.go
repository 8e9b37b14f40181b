package marketdata

import (
	"context"
	"fmt"
	"time"

	clickhouse "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"algo-trading-engine/domain"
)

// ClickHouseConfig locates the candle store.
type ClickHouseConfig struct {
	Addr     string `json:"addr" yaml:"addr" default:"localhost:9000"`
	Database string `json:"database" yaml:"database" default:"backtest"`
	Table    string `json:"table" yaml:"table" default:"candles"`
	User     string `json:"user" yaml:"user" default:"default"`
	Password string `json:"password" yaml:"password"`
}

// ClickHouseSource reads historical candles from a ClickHouse table with
// columns (symbol String, interval String, open_time DateTime64, open, high,
// low, close, volume Float64 or String). It is read-only.
type ClickHouseSource struct {
	conn   driver.Conn
	cfg    ClickHouseConfig
	logger *zap.Logger
}

// NewClickHouseSource connects and pings the server.
func NewClickHouseSource(ctx context.Context, cfg ClickHouseConfig, logger *zap.Logger) (*ClickHouseSource, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.User,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": uint64(60),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	logger.Info("connected to clickhouse",
		zap.String("addr", cfg.Addr),
		zap.String("database", cfg.Database))
	return &ClickHouseSource{conn: conn, cfg: cfg, logger: logger}, nil
}

// Close releases the connection pool.
func (s *ClickHouseSource) Close() error {
	return s.conn.Close()
}

// LoadCandles reads the candle series for one symbol and interval between
// start and end, ordered by open time.
func (s *ClickHouseSource) LoadCandles(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.MarketData, error) {
	query := fmt.Sprintf(`
		SELECT open_time, open, high, low, close, volume
		FROM %s.%s
		WHERE symbol = ? AND interval = ? AND open_time >= ? AND open_time < ?
		ORDER BY open_time`, s.cfg.Database, s.cfg.Table)

	rows, err := s.conn.Query(ctx, query, symbol, interval, start, end)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	defer rows.Close()

	var bars []domain.MarketData
	for rows.Next() {
		var (
			openTime                    time.Time
			open, high, low, close, vol float64
		)
		if err := rows.Scan(&openTime, &open, &high, &low, &close, &vol); err != nil {
			return nil, fmt.Errorf("clickhouse scan: %w", err)
		}
		bars = append(bars, domain.MarketData{
			Timestamp: openTime.UTC(),
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(high),
			Low:       decimal.NewFromFloat(low),
			Close:     decimal.NewFromFloat(close),
			Volume:    decimal.NewFromFloat(vol),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse rows: %w", err)
	}
	if len(bars) == 0 {
		return nil, domain.ErrEmptyMarketData
	}

	s.logger.Info("loaded candles",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Int("bars", len(bars)))
	return bars, nil
}
