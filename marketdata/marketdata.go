// Package marketdata loads and serves OHLCV series. Historical series come
// from CSV files or ClickHouse; the replay feed turns a historical series
// into a live-looking price source for paper trading.
package marketdata

import (
	"fmt"
	"sort"

	"algo-trading-engine/domain"
)

// SortBars orders a series by timestamp, stable so equal timestamps keep
// their input order.
func SortBars(bars []domain.MarketData) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
}

// ValidateBars checks every bar's OHLC invariant and rejects empty series.
func ValidateBars(bars []domain.MarketData) error {
	if len(bars) == 0 {
		return domain.ErrEmptyMarketData
	}
	for i, bar := range bars {
		if err := bar.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
	}
	return nil
}
