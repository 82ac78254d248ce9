package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/larsw/pmedge/internal/adapters/storage"
	"github.com/larsw/pmedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrade(id string, action domain.TradeAction, price, shares float64, at time.Time) domain.Trade {
	return domain.Trade{
		ID: id,
		Market: domain.MarketRef{
			TokenID:       "tok-1",
			Name:          "BTC up today?",
			Side:          domain.SideYes,
			RefInstrument: "XBTUSD",
			Group:         "btc-daily",
		},
		Action:     action,
		Price:      price,
		Shares:     shares,
		Reason:     domain.ReasonEdgeExit,
		ExecutedAt: at,
	}
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmedge.db")
	ctx := context.Background()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	store, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveTrade(ctx, testTrade("t1", domain.TradeEnter, 0.50, 100, now)))
	require.NoError(t, store.SaveTrade(ctx, testTrade("t2", domain.TradeExit, 0.60, 100, now.Add(time.Minute))))

	trades, err := store.LoadTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, "t1", trades[0].ID)
	assert.Equal(t, domain.TradeEnter, trades[0].Action)
	assert.InDelta(t, 0.50, trades[0].Price, 1e-9)
	assert.Equal(t, "BTC up today?", trades[0].Market.Name)
	assert.Equal(t, domain.SideYes, trades[0].Market.Side)
	assert.True(t, trades[0].ExecutedAt.Equal(now))

	assert.Equal(t, "t2", trades[1].ID)
	assert.Equal(t, domain.TradeExit, trades[1].Action)
}

func TestSQLiteStore_OrderSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmedge.db")
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	store, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveTrade(ctx, testTrade("a", domain.TradeEnter, 0.40, 10, now)))
	require.NoError(t, store.Close())

	// Reabrir: la secuencia continúa donde quedó.
	store, err = storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.SaveTrade(ctx, testTrade("b", domain.TradeScaleIn, 0.45, 5, now.Add(time.Second))))

	trades, err := store.LoadTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, "a", trades[0].ID)
	assert.Equal(t, "b", trades[1].ID)
}

func TestSQLiteStore_EquityCurve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pmedge.db")
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	store, err := storage.NewSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 5; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.SaveEquityPoint(ctx, at, 1000+float64(i), 900, float64(i)))
	}

	points, err := store.LoadEquityCurve(ctx, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)

	// Los 3 últimos, en orden cronológico.
	assert.InDelta(t, 1002, points[0].Equity, 1e-9)
	assert.InDelta(t, 1004, points[2].Equity, 1e-9)
	assert.True(t, points[0].At.Before(points[2].At))
}

func TestSQLiteStore_EmptyLog(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer store.Close()

	trades, err := store.LoadTrades(context.Background())
	require.NoError(t, err)
	assert.Empty(t, trades)
}
