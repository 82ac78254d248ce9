package strategy

import (
	"time"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
)

// PmDraw compara el mid del token DRAW contra una probabilidad baseline
// (histórica o de odds de casas) y entra cuando el mercado infravalora el
// empate lo suficiente.
type PmDraw struct {
	cfg config.StrategyConfig
}

// NewPmDraw construye la estrategia de empates.
func NewPmDraw(cfg config.StrategyConfig) *PmDraw {
	return &PmDraw{cfg: cfg}
}

func (s *PmDraw) Name() string { return "pm_draw" }

func (s *PmDraw) Evaluate(in Input) domain.Decision {
	last, ok := in.Target.Latest()
	if !ok || last.Mid() == 0 {
		return domain.Suppress(domain.ReasonStaleOrWarmup, domain.EdgeReading{TokenID: in.Market.TokenID, ComputedAt: in.Now})
	}
	if !in.HasBase {
		return domain.Suppress(domain.ReasonNoSignal, domain.EdgeReading{TokenID: in.Market.TokenID, PmMid: last.Mid(), ComputedAt: in.Now})
	}

	pmMid := last.Mid()
	edge := (in.Baseline - pmMid) * 100

	reading := domain.EdgeReading{
		TokenID:    in.Market.TokenID,
		EdgePct:    edge,
		BaselineP:  in.Baseline,
		PmMid:      pmMid,
		ComputedAt: in.Now,
	}

	if in.InPos {
		if dec, ok := holdOrExit(in, pmMid, edge, s.cfg.EdgeExitPct, s.cfg.PmStopPct,
			time.Duration(s.cfg.MaxHoldSecs)*time.Second); ok {
			return dec
		}
		if edge >= s.cfg.EdgeMinPct {
			return domain.Decision{Action: domain.ActionScaleIn, Reason: domain.ReasonNone, Reading: reading}
		}
		return domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: reading}
	}

	if in.GroupOpen {
		return domain.Suppress(domain.ReasonOtherSideOpen, reading)
	}
	// Un empate cotizando por encima del guard ya no es un empate barato,
	// por mucho que el baseline diga otra cosa.
	if pmMid > s.cfg.MaxPriceGuard {
		return domain.Suppress(domain.ReasonAbovePriceGuard, reading)
	}
	// Filtro de favorito: solo aplica a sets 3-way genuinos. El favorito
	// es el mayor mid entre los outcomes no-DRAW del grupo; si queda
	// fuera de la ventana, el partido está demasiado decantado (o
	// demasiado abierto) para que el empate pague.
	if s.cfg.FavoriteFilter && in.ThreeWay && in.FavoriteMid > 0 {
		if in.FavoriteMid < s.cfg.FavMin || in.FavoriteMid > s.cfg.FavMax {
			return domain.Suppress(domain.ReasonFavoriteWindow, reading)
		}
	}
	if edge < s.cfg.EdgeMinPct {
		return domain.Suppress(domain.ReasonDrawEdgeSmall, reading)
	}
	return domain.Decision{Action: domain.ActionEnter, Reason: domain.ReasonNone, Reading: reading}
}
