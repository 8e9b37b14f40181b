package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"algo-trading-engine/costs"
	"algo-trading-engine/domain"
)

// PaperVenue simulates an exchange account in memory. Market orders fill
// immediately at the source price adjusted by the slippage model; fees are
// charged through the fee model. It keeps one position per symbol and a
// quote-currency cash balance.
type PaperVenue struct {
	source   PriceSource
	fee      costs.FeeModel
	slippage costs.SlippageModel
	logger   *zap.Logger

	mu        sync.RWMutex
	cash      decimal.Decimal
	positions map[string]*domain.Position
	orders    map[string]*domain.Order
	orderSeq  int64
}

// NewPaperVenue builds a paper venue with the given starting cash. Nil cost
// models fall back to the shared defaults.
func NewPaperVenue(initialCash decimal.Decimal, source PriceSource, fee costs.FeeModel, slip costs.SlippageModel, logger *zap.Logger) *PaperVenue {
	if fee == nil {
		fee = costs.DefaultFee()
	}
	if slip == nil {
		slip = costs.DefaultSlippage()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaperVenue{
		source:    source,
		fee:       fee,
		slippage:  slip,
		logger:    logger,
		cash:      initialCash,
		positions: make(map[string]*domain.Position),
		orders:    make(map[string]*domain.Order),
	}
}

func (v *PaperVenue) Name() string { return "paper" }

func (v *PaperVenue) GetMarketData(ctx context.Context, symbol string) (domain.MarketData, error) {
	bar, err := v.source.GetMarketData(ctx, symbol)
	if err != nil {
		return domain.MarketData{}, &domain.VenueError{Op: "GetMarketData", Err: err}
	}
	return bar, nil
}

// PlaceOrder fills a market order against the latest source price. A buy
// while flat opens a long, a sell while flat opens a short, and an order
// opposite an open position closes it. Only market orders are supported;
// everything else is rejected.
func (v *PaperVenue) PlaceOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if order.Type != domain.OrderMarket {
		order.Status = domain.OrderRejected
		return order, &domain.VenueError{Op: "PlaceOrder", Err: fmt.Errorf("paper venue only fills market orders, got %s", order.Type)}
	}
	if !order.Quantity.IsPositive() {
		order.Status = domain.OrderRejected
		return order, &domain.VenueError{Op: "PlaceOrder", Err: fmt.Errorf("non-positive quantity %s", order.Quantity)}
	}

	bar, err := v.source.GetMarketData(ctx, order.Symbol)
	if err != nil {
		order.Status = domain.OrderRejected
		return order, &domain.VenueError{Op: "PlaceOrder", Err: err}
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	buying := order.Side == domain.OrderBuy
	fillPrice := v.slippage.Apply(bar.Price(), buying)
	qty := RoundSize(order.Quantity)
	commission := v.fee.Fee(fillPrice, qty, true)

	v.orderSeq++
	order.ID = fmt.Sprintf("paper-%d", v.orderSeq)
	order.Timestamp = bar.Timestamp

	pos := v.positions[order.Symbol]
	switch {
	case pos == nil || !pos.IsOpen():
		side := domain.SignalBuy
		if !buying {
			side = domain.SignalSell
		}
		v.positions[order.Symbol] = &domain.Position{
			Side:         side,
			EntryPrice:   fillPrice,
			Size:         qty,
			EntryTime:    bar.Timestamp,
			CurrentPrice: bar.Price(),
		}
		v.cash = v.cash.Sub(commission)

	case pos.IsLong() != buying:
		// Opposite side closes the open position; partial closes are not
		// modeled, the full position exits.
		pos.Close(bar.Timestamp, fillPrice)
		pnl, _ := pos.PnL()
		v.cash = v.cash.Add(pnl).Sub(commission)
		delete(v.positions, order.Symbol)

	default:
		order.Status = domain.OrderRejected
		return order, &domain.VenueError{Op: "PlaceOrder", Err: fmt.Errorf("position already open on %s, same-side adds not supported", order.Symbol)}
	}

	order.Status = domain.OrderFilled
	order.FilledQuantity = qty
	order.AverageFillPrice = fillPrice
	v.orders[order.ID] = order

	v.logger.Debug("paper fill",
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("price", fillPrice.String()),
		zap.String("qty", qty.String()),
		zap.String("cash", v.cash.String()),
	)
	return order, nil
}

// CancelOrder exists for interface completeness: paper orders fill
// synchronously, so there is never anything to cancel.
func (v *PaperVenue) CancelOrder(ctx context.Context, orderID string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if _, ok := v.orders[orderID]; !ok {
		return &domain.VenueError{Op: "CancelOrder", Err: fmt.Errorf("unknown order %s", orderID)}
	}
	return &domain.VenueError{Op: "CancelOrder", Err: fmt.Errorf("order %s already filled", orderID)}
}

func (v *PaperVenue) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	pos, ok := v.positions[symbol]
	if !ok {
		return nil, nil
	}
	cp := *pos
	return &cp, nil
}

// GetBalance returns cash plus the mark-to-market value of open positions.
func (v *PaperVenue) GetBalance(ctx context.Context) (domain.Balance, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	equity := v.cash
	for _, pos := range v.positions {
		if pos.IsOpen() {
			equity = equity.Add(pos.UnrealizedPnL(pos.CurrentPrice))
		}
	}
	return domain.Balance{
		Currency:  "USDT",
		Available: v.cash,
		Total:     equity,
	}, nil
}

func (v *PaperVenue) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// MarkPosition refreshes the mark price of an open position so balance and
// exposure reads reflect the latest tick. The trader calls this each
// iteration after fetching market data.
func (v *PaperVenue) MarkPosition(symbol string, price decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if pos, ok := v.positions[symbol]; ok && pos.IsOpen() {
		pos.CurrentPrice = price
	}
}
