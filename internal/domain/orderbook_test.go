package domain_test

import (
	"testing"

	"github.com/larsw/pmedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderBook_BestAndMid(t *testing.T) {
	ob := domain.OrderBook{
		TokenID: "tok",
		Bids:    []domain.BookEntry{{Price: 0.48, Size: 100}, {Price: 0.45, Size: 200}},
		Asks:    []domain.BookEntry{{Price: 0.52, Size: 100}, {Price: 0.55, Size: 200}},
	}

	assert.Equal(t, 0.48, ob.BestBid())
	assert.Equal(t, 0.52, ob.BestAsk())
	assert.InDelta(t, 0.50, ob.Midpoint(), 1e-9)
	assert.InDelta(t, 0.04, ob.Spread(), 1e-9)

	empty := domain.OrderBook{}
	assert.Zero(t, empty.Midpoint())
}

func TestOrderBook_MaxTradeSize_SlippageBand(t *testing.T) {
	// Best ask 0.50 × 100, siguiente nivel 0.55 × 400.
	// Cap de slippage 2% → límite 0.51: solo el primer nivel califica,
	// aunque hard cap y fracción de liquidez permitan más.
	ob := domain.OrderBook{
		TokenID: "tok",
		Asks: []domain.BookEntry{
			{Price: 0.50, Size: 100},
			{Price: 0.55, Size: 400},
		},
	}

	res := ob.MaxTradeSize(domain.TradeBuy, 0.02, 1.0, 10000)
	assert.InDelta(t, 100, res.Shares, 1e-9)
	assert.InDelta(t, 50, res.Notional, 1e-9)
	assert.InDelta(t, 0.50, res.FillPrice, 1e-9)
	assert.InDelta(t, 0.51, res.BandLimit, 1e-9)
}

func TestOrderBook_MaxTradeSize_HardCapSplitsLevel(t *testing.T) {
	ob := domain.OrderBook{
		TokenID: "tok",
		Asks:    []domain.BookEntry{{Price: 0.50, Size: 1000}},
	}

	// Hard cap de $100 sobre un nivel de $500 → 200 shares al best price.
	res := ob.MaxTradeSize(domain.TradeBuy, 0.02, 1.0, 100)
	assert.InDelta(t, 200, res.Shares, 1e-9)
	assert.InDelta(t, 100, res.Notional, 1e-9)
	assert.InDelta(t, 0.50, res.FillPrice, 1e-9)
}

func TestOrderBook_MaxTradeSize_FillPriceIsVWAP(t *testing.T) {
	ob := domain.OrderBook{
		TokenID: "tok",
		Asks: []domain.BookEntry{
			{Price: 0.50, Size: 100},
			{Price: 0.505, Size: 100},
		},
	}

	res := ob.MaxTradeSize(domain.TradeBuy, 0.02, 1.0, 10000)
	require.InDelta(t, 200, res.Shares, 1e-9)
	// VWAP = (0.50×100 + 0.505×100) / 200 = 0.5025 — no el mid ni el best.
	assert.InDelta(t, 0.5025, res.FillPrice, 1e-9)
}

func TestOrderBook_MaxTradeSize_LiquidityFraction(t *testing.T) {
	ob := domain.OrderBook{
		TokenID: "tok",
		Asks:    []domain.BookEntry{{Price: 0.50, Size: 1000}},
	}

	// 10% de $500 visibles en banda → $50 → 100 shares.
	res := ob.MaxTradeSize(domain.TradeBuy, 0.02, 0.10, 10000)
	assert.InDelta(t, 100, res.Shares, 1e-9)
}

func TestOrderBook_MaxTradeSize_ThinBook(t *testing.T) {
	empty := domain.OrderBook{TokenID: "tok"}
	res := empty.MaxTradeSize(domain.TradeBuy, 0.02, 1.0, 10000)
	assert.Zero(t, res.Shares)
	assert.Zero(t, res.Notional)
}

func TestOrderBook_MaxTradeSize_SellWalksBids(t *testing.T) {
	ob := domain.OrderBook{
		TokenID: "tok",
		Bids: []domain.BookEntry{
			{Price: 0.50, Size: 100},
			{Price: 0.45, Size: 400}, // fuera de la banda del 2%
		},
	}

	res := ob.MaxTradeSize(domain.TradeSell, 0.02, 1.0, 10000)
	assert.InDelta(t, 100, res.Shares, 1e-9)
	assert.InDelta(t, 0.49, res.BandLimit, 1e-9)
}

func TestParsePrice(t *testing.T) {
	assert.Equal(t, 0.52, domain.ParsePrice("0.52"))
	assert.Zero(t, domain.ParsePrice("bogus"))
}
