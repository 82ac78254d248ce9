package universe_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/adapters/universe"
	"github.com/larsw/pmedge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromConfig(t *testing.T) {
	u := universe.FromConfig([]config.MarketConfig{
		{TokenID: "tok-1", Name: "BTC up", Side: "YES", RefInstrument: "XBTUSD", Group: "btc"},
		{TokenID: "tok-2", Side: "NO", SiblingToken: "tok-1", Group: "btc"},
	})

	markets, err := u.ListMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 2)
	assert.Equal(t, domain.SideYes, markets[0].Side)
	assert.Equal(t, "XBTUSD", markets[0].RefInstrument)
	assert.Equal(t, "tok-1", markets[1].SiblingTokenID)
	assert.True(t, markets[0].SameGroup(markets[1]))
}

func TestFromFile(t *testing.T) {
	content := `
markets:
  - token_id: draw-tok
    name: "Madrid vs Barça — empate"
    side: DRAW
    sibling_token: fav-tok
    group: clasico
`
	path := filepath.Join(t.TempDir(), "markets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	u, err := universe.FromFile(path)
	require.NoError(t, err)

	markets, err := u.ListMarkets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, domain.SideDraw, markets[0].Side)
	assert.Equal(t, "clasico", markets[0].Group)
}

func TestFromFile_Rejects(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty_list", "markets: []"},
		{"missing_token", "markets:\n  - side: YES"},
		{"bad_side", "markets:\n  - token_id: t1\n    side: MAYBE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "markets.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644))
			_, err := universe.FromFile(path)
			assert.Error(t, err)
		})
	}
}
