package universe

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
)

// Static es el universo fijo de mercados a iterar, cargado una vez en el
// arranque desde la config o desde un archivo de mapping separado.
type Static struct {
	markets []domain.MarketRef
}

// FromConfig construye el universo desde la lista inline de la config.
func FromConfig(list []config.MarketConfig) *Static {
	markets := make([]domain.MarketRef, 0, len(list))
	for _, m := range list {
		markets = append(markets, toRef(m))
	}
	return &Static{markets: markets}
}

// marketsFile es el formato del archivo de mapping: la misma forma que la
// sección markets de la config, para poder mover la lista fuera sin tocarla.
type marketsFile struct {
	Markets []config.MarketConfig `yaml:"markets"`
}

// FromFile carga el universo desde un archivo YAML de mapping.
func FromFile(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("universe.FromFile: read %q: %w", path, err)
	}

	var mf marketsFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("universe.FromFile: parse %q: %w", path, err)
	}
	if len(mf.Markets) == 0 {
		return nil, fmt.Errorf("universe.FromFile: %q: no markets", path)
	}
	for i, m := range mf.Markets {
		if m.TokenID == "" {
			return nil, fmt.Errorf("universe.FromFile: %q markets[%d]: token_id is required", path, i)
		}
		switch m.Side {
		case "YES", "NO", "DRAW":
		default:
			return nil, fmt.Errorf("universe.FromFile: %q markets[%d] %s: side %q: must be YES, NO or DRAW",
				path, i, m.TokenID, m.Side)
		}
	}

	return FromConfig(mf.Markets), nil
}

// ListMarkets devuelve el universo completo. Nunca falla: la lista es fija.
func (s *Static) ListMarkets(context.Context) ([]domain.MarketRef, error) {
	out := make([]domain.MarketRef, len(s.markets))
	copy(out, s.markets)
	return out, nil
}

func toRef(m config.MarketConfig) domain.MarketRef {
	return domain.MarketRef{
		TokenID:        m.TokenID,
		Name:           m.Name,
		Side:           domain.Side(m.Side),
		RefInstrument:  m.RefInstrument,
		SiblingTokenID: m.SiblingToken,
		Group:          m.Group,
	}
}
