package strategy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/larsw/pmedge/internal/domain"
	"github.com/larsw/pmedge/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadBaselines_JSON(t *testing.T) {
	path := writeTemp(t, "base.json", `{"draw-tok": 0.28, "match-2": 0.31}`)

	b, err := strategy.LoadBaselines(path)
	require.NoError(t, err)
	require.Equal(t, 2, b.Len())

	p, ok := b.Baseline(domain.MarketRef{TokenID: "draw-tok"})
	require.True(t, ok)
	assert.InDelta(t, 0.28, p, 1e-9)

	// Fallback por grupo de evento
	p, ok = b.Baseline(domain.MarketRef{TokenID: "otro-tok", Group: "match-2"})
	require.True(t, ok)
	assert.InDelta(t, 0.31, p, 1e-9)

	_, ok = b.Baseline(domain.MarketRef{TokenID: "nadie", Group: "match-9"})
	assert.False(t, ok)
}

func TestLoadBaselines_CSVWithOddsAndHeader(t *testing.T) {
	path := writeTemp(t, "base.csv", "key,value\ndraw-tok,3.40\nmatch-2,0.31\n")

	b, err := strategy.LoadBaselines(path)
	require.NoError(t, err)

	// 3.40 es cuota decimal: p = 1/3.40
	p, ok := b.Baseline(domain.MarketRef{TokenID: "draw-tok"})
	require.True(t, ok)
	assert.InDelta(t, 1/3.40, p, 1e-9)
}

func TestLoadBaselines_ClampsExtremes(t *testing.T) {
	path := writeTemp(t, "base.json", `{"casi-seguro": 0.999, "casi-nada": 0.001}`)

	b, err := strategy.LoadBaselines(path)
	require.NoError(t, err)

	p, _ := b.Baseline(domain.MarketRef{TokenID: "casi-seguro"})
	assert.InDelta(t, 0.99, p, 1e-9)
	p, _ = b.Baseline(domain.MarketRef{TokenID: "casi-nada"})
	assert.InDelta(t, 0.01, p, 1e-9)
}

func TestLoadBaselines_Rejects(t *testing.T) {
	t.Run("negative_value", func(t *testing.T) {
		path := writeTemp(t, "base.json", `{"tok": -0.2}`)
		_, err := strategy.LoadBaselines(path)
		assert.Error(t, err)
	})
	t.Run("unsupported_extension", func(t *testing.T) {
		path := writeTemp(t, "base.txt", "tok 0.3")
		_, err := strategy.LoadBaselines(path)
		assert.Error(t, err)
	})
	t.Run("missing_file", func(t *testing.T) {
		_, err := strategy.LoadBaselines(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}
