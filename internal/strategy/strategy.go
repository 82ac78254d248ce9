package strategy

import (
	"fmt"
	"time"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
)

// Input reúne todo lo que una estrategia necesita para evaluar un mercado
// en un tick. El engine lo construye; la estrategia no toca estado externo.
type Input struct {
	Market domain.MarketRef

	// Historias de quotes. Ref puede ser nil (modos sin referencia spot),
	// Sibling puede ser nil (mercados sin token hermano).
	Target  *domain.QuoteHistory
	Ref     *domain.QuoteHistory
	Sibling *domain.QuoteHistory

	// Baseline probability para el token, si hay fuente configurada.
	Baseline float64
	HasBase  bool
	ThreeWay bool // el grupo tiene un outcome DRAW genuino

	// Mid del favorito del grupo: el mayor mid entre los outcomes
	// no-DRAW. 0 si no hay quote de ninguno.
	FavoriteMid float64

	// Estado de la posición al momento del tick.
	Position  domain.Position
	InPos     bool
	GroupOpen bool // hay posición abierta en el lado opuesto del grupo

	Now time.Time
}

// Strategy evalúa un mercado y propone una acción. La propuesta pasa después
// por el risk gate y el state machine; una estrategia nunca muta el ledger.
type Strategy interface {
	Name() string
	Evaluate(in Input) domain.Decision
}

// New construye la estrategia indicada en la configuración. La selección
// ocurre una sola vez en el arranque.
func New(cfg *config.Config) (Strategy, error) {
	switch cfg.Strategy.Mode {
	case "lead_lag":
		return NewLeadLag(cfg.Strategy), nil
	case "pm_trend":
		return NewPmTrend(cfg.Strategy), nil
	case "pm_draw":
		return NewPmDraw(cfg.Strategy), nil
	default:
		return nil, fmt.Errorf("strategy.New: unknown mode %q", cfg.Strategy.Mode)
	}
}

// holdOrExit aplica las salidas comunes a toda posición abierta: stop por
// precio, max hold y edge agotado. Devuelve (decision, true) si decidió.
func holdOrExit(in Input, pmMid, edgePct float64, exitEdgePct, stopPct float64, maxHold time.Duration) (domain.Decision, bool) {
	reading := domain.EdgeReading{
		TokenID:    in.Market.TokenID,
		EdgePct:    edgePct,
		PmMid:      pmMid,
		ComputedAt: in.Now,
	}

	if stopPct > 0 && in.Position.AvgEntry > 0 {
		// stopPct se expresa en puntos porcentuales, igual que el resto
		// de umbrales *_pct.
		lossPct := (in.Position.AvgEntry - pmMid) / in.Position.AvgEntry * 100
		if lossPct >= stopPct {
			return domain.Decision{Action: domain.ActionExit, Reason: domain.ReasonStop, Reading: reading}, true
		}
	}
	if maxHold > 0 && in.Position.HoldDuration(in.Now) >= maxHold {
		return domain.Decision{Action: domain.ActionExit, Reason: domain.ReasonMaxHold, Reading: reading}, true
	}
	if edgePct <= exitEdgePct {
		return domain.Decision{Action: domain.ActionExit, Reason: domain.ReasonEdgeExit, Reading: reading}, true
	}
	return domain.Decision{}, false
}
