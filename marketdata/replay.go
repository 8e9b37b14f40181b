package marketdata

import (
	"context"
	"io"
	"sync"

	"algo-trading-engine/domain"
)

// ReplayFeed serves a historical series one bar per read, so a paper venue
// and trader see it as a live ticker. Reads past the end return io.EOF;
// callers treat that as the end of the session.
type ReplayFeed struct {
	mu   sync.Mutex
	bars []domain.MarketData
	idx  int
}

// NewReplayFeed copies and sorts the series.
func NewReplayFeed(bars []domain.MarketData) *ReplayFeed {
	cp := make([]domain.MarketData, len(bars))
	copy(cp, bars)
	SortBars(cp)
	return &ReplayFeed{bars: cp}
}

// GetMarketData returns the next bar in the series. The symbol argument is
// ignored; a feed carries one series.
func (f *ReplayFeed) GetMarketData(ctx context.Context, symbol string) (domain.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketData{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.bars) {
		return domain.MarketData{}, io.EOF
	}
	bar := f.bars[f.idx]
	f.idx++
	return bar, nil
}

// Remaining reports how many bars are left.
func (f *ReplayFeed) Remaining() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bars) - f.idx
}

// Rewind restarts the replay from the first bar.
func (f *ReplayFeed) Rewind() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idx = 0
}
