package strategy

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/larsw/pmedge/internal/domain"
)

// Baselines es la tabla de probabilidades baseline para pm_draw, cargada una
// vez en el arranque. Las claves pueden ser token IDs o grupos de evento.
type Baselines struct {
	probs map[string]float64
}

// LoadBaselines carga la tabla desde un archivo JSON (objeto clave→valor) o
// CSV (filas clave,valor). Un valor en [0,1] se toma como probabilidad; un
// valor > 1 se interpreta como cuota decimal y se convierte con 1/odds.
// Todo se recorta a [0.01, 0.99].
func LoadBaselines(path string) (*Baselines, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("strategy.LoadBaselines: read %q: %w", path, err)
	}

	raw := make(map[string]float64)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("strategy.LoadBaselines: parse JSON %q: %w", path, err)
		}
	case ".csv":
		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		if err != nil {
			return nil, fmt.Errorf("strategy.LoadBaselines: parse CSV %q: %w", path, err)
		}
		for i, rec := range records {
			if len(rec) < 2 {
				return nil, fmt.Errorf("strategy.LoadBaselines: %q row %d: expected key,value", path, i+1)
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
			if err != nil {
				if i == 0 {
					continue // cabecera
				}
				return nil, fmt.Errorf("strategy.LoadBaselines: %q row %d: %w", path, i+1, err)
			}
			raw[strings.TrimSpace(rec[0])] = v
		}
	default:
		return nil, fmt.Errorf("strategy.LoadBaselines: %q: unsupported extension", path)
	}

	probs := make(map[string]float64, len(raw))
	for key, v := range raw {
		if v <= 0 {
			return nil, fmt.Errorf("strategy.LoadBaselines: %q: value %.4f for %q must be positive", path, v, key)
		}
		p := v
		if p > 1 {
			p = 1 / p // cuota decimal
		}
		probs[key] = clampProb(p)
	}

	return &Baselines{probs: probs}, nil
}

// Baseline devuelve la probabilidad baseline del mercado: primero por token,
// después por grupo de evento.
func (b *Baselines) Baseline(ref domain.MarketRef) (float64, bool) {
	if p, ok := b.probs[ref.TokenID]; ok {
		return p, true
	}
	if ref.Group != "" {
		if p, ok := b.probs[ref.Group]; ok {
			return p, true
		}
	}
	return 0, false
}

// Len devuelve el número de entradas cargadas.
func (b *Baselines) Len() int { return len(b.probs) }

func clampProb(p float64) float64 {
	if p < 0.01 {
		return 0.01
	}
	if p > 0.99 {
		return 0.99
	}
	return p
}
