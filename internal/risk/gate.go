package risk

import (
	"time"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
)

// Gate aplica los checks de riesgo transversales a toda entrada o add,
// independientes de la estrategia. Es stateless: cada Vet se decide solo
// con lo que recibe.
type Gate struct {
	cfg config.RiskConfig
}

// New construye el gate con sus umbrales.
func New(cfg config.RiskConfig) *Gate {
	return &Gate{cfg: cfg}
}

// Vet comprueba en orden fijo: frescura de datos, zona de precio, coste de
// spread, edge neto tras costes y notional mínimo. El primer check que falla
// decide el motivo; las salidas no pasan por aquí.
func (g *Gate) Vet(q domain.Quote, reading domain.EdgeReading, notional float64, now time.Time) (domain.Reason, bool) {
	maxAge := time.Duration(g.cfg.FreshnessMaxAgeSecs * float64(time.Second))
	if !q.HasBothSides() || now.Sub(q.ObservedAt) > maxAge {
		return domain.ReasonStaleOrWarmup, false
	}

	mid := q.Mid()
	if mid >= g.cfg.AvoidPriceAbove || mid <= g.cfg.AvoidPriceBelow {
		return domain.ReasonAvoidPriceZone, false
	}

	spreadPct := q.SpreadPct()
	if spreadPct > g.cfg.SpreadCostCapPct {
		return domain.ReasonSpreadTooHigh, false
	}

	// Cruzar desde el mid cuesta medio spread, más la fee estimada.
	costPct := spreadPct/2 + g.cfg.EstFeePct*100
	if reading.EdgePct-costPct < g.cfg.NetEdgeMinPct {
		return domain.ReasonNetEdgeTooLow, false
	}

	if notional < g.cfg.MinTradeNotionalUSDC {
		return domain.ReasonBelowMinSize, false
	}

	return domain.ReasonNone, true
}
