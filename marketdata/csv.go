package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"algo-trading-engine/domain"
)

// csv column layout: timestamp,open,high,low,close,volume with an optional
// header row. Timestamps are RFC3339 or unix milliseconds.

// LoadCSV reads an OHLCV series from the file at path. The returned series
// is sorted by timestamp.
func LoadCSV(path string) ([]domain.MarketData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses an OHLCV series from the reader.
func ReadCSV(r io.Reader) ([]domain.MarketData, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	var bars []domain.MarketData
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++
		if line == 1 && isHeader(record) {
			continue
		}
		if len(record) < 6 {
			return nil, fmt.Errorf("line %d: expected 6 columns, got %d", line, len(record))
		}

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bar := domain.MarketData{Timestamp: ts}
		fields := []*decimal.Decimal{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for i, dst := range fields {
			v, err := decimal.NewFromString(strings.TrimSpace(record[i+1]))
			if err != nil {
				return nil, fmt.Errorf("line %d column %d: %w", line, i+2, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}

	if len(bars) == 0 {
		return nil, domain.ErrEmptyMarketData
	}
	SortBars(bars)
	return bars, nil
}

// WriteCSV writes the series with a header row, timestamps as RFC3339.
func WriteCSV(w io.Writer, bars []domain.MarketData) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write([]string{"timestamp", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	for _, bar := range bars {
		err := cw.Write([]string{
			bar.Timestamp.UTC().Format(time.RFC3339),
			bar.Open.String(), bar.High.String(), bar.Low.String(),
			bar.Close.String(), bar.Volume.String(),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isHeader(record []string) bool {
	if len(record) == 0 {
		return false
	}
	_, err := parseTimestamp(record[0])
	return err != nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Treat large values as unix milliseconds, the rest as seconds.
		if ms > 1e12 {
			return time.UnixMilli(ms).UTC(), nil
		}
		return time.Unix(ms, 0).UTC(), nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", s)
}
