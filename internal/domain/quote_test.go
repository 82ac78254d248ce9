package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/larsw/pmedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkQuote(bid, ask float64, at time.Time) domain.Quote {
	return domain.Quote{Instrument: "tok", Bid: bid, Ask: ask, ObservedAt: at}
}

func TestQuote_MidUndefinedWithoutBothSides(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 0.5, mkQuote(0.49, 0.51, now).Mid())
	assert.Equal(t, 0.0, mkQuote(0, 0.51, now).Mid())
	assert.Equal(t, 0.0, mkQuote(0.49, 0, now).Mid())
	// bid > ask es incoherente — sin mid
	assert.Equal(t, 0.0, mkQuote(0.52, 0.48, now).Mid())
}

func TestQuoteHistory_FIFOEviction(t *testing.T) {
	now := time.Now()

	// Para todo N ≥ 2: nunca más de N entradas, y tras N+1 pushes
	// la más antigua ha sido expulsada.
	for n := 2; n <= 6; n++ {
		t.Run(fmt.Sprintf("capacity_%d", n), func(t *testing.T) {
			h := domain.NewQuoteHistory(n)
			for i := 0; i <= n; i++ {
				price := 0.10 + float64(i)*0.01
				h.Push(mkQuote(price-0.005, price+0.005, now.Add(time.Duration(i)*time.Second)))
				assert.LessOrEqual(t, h.Len(), n)
			}
			require.Equal(t, n, h.Len())

			latest, ok := h.Latest()
			require.True(t, ok)
			assert.InDelta(t, 0.10+float64(n)*0.01, latest.Mid(), 1e-9)

			// El retorno sobre toda la ventana usa la muestra 1, no la 0.
			ret, err := h.ReturnPct(n - 1)
			require.NoError(t, err)
			oldMid := 0.10 + 0.01
			wantRet := (latest.Mid()/oldMid - 1) * 100
			assert.InDelta(t, wantRet, ret, 1e-9)
		})
	}
}

func TestQuoteHistory_ReturnPctConstantSeries(t *testing.T) {
	h := domain.NewQuoteHistory(10)
	now := time.Now()
	for i := 0; i < 10; i++ {
		h.Push(mkQuote(0.495, 0.505, now.Add(time.Duration(i)*time.Second)))
	}

	for lookback := 1; lookback <= 9; lookback++ {
		ret, err := h.ReturnPct(lookback)
		require.NoError(t, err)
		assert.Zero(t, ret, "lookback %d", lookback)
	}
}

func TestQuoteHistory_ReturnPctWarmup(t *testing.T) {
	h := domain.NewQuoteHistory(10)
	now := time.Now()

	// lookback=3 necesita 4 muestras
	for i := 0; i < 3; i++ {
		h.Push(mkQuote(0.49, 0.51, now))
		_, err := h.ReturnPct(3)
		assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
	}
	h.Push(mkQuote(0.49, 0.51, now))
	_, err := h.ReturnPct(3)
	assert.NoError(t, err)

	_, err = h.ReturnPct(0)
	assert.ErrorIs(t, err, domain.ErrInsufficientHistory)
}

func TestQuoteHistory_IsStale(t *testing.T) {
	h := domain.NewQuoteHistory(5)
	now := time.Now()

	assert.True(t, h.IsStale(now, time.Minute), "buffer vacío siempre stale")

	h.Push(mkQuote(0.49, 0.51, now.Add(-30*time.Second)))
	assert.False(t, h.IsStale(now, time.Minute))
	assert.True(t, h.IsStale(now, 10*time.Second))
}

func TestPctChange(t *testing.T) {
	assert.InDelta(t, 0.4, domain.PctChange(100, 100.4), 1e-9)
	assert.InDelta(t, -50, domain.PctChange(0.5, 0.25), 1e-9)
	assert.Zero(t, domain.PctChange(0, 1.0))
}
