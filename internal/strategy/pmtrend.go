package strategy

import (
	"time"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
)

// PmTrend opera momentum sobre el propio token: entra cuando el mid del
// token lleva una subida sostenida en la ventana y sale cuando el impulso
// se agota. No usa instrumento de referencia.
type PmTrend struct {
	cfg config.StrategyConfig
}

// NewPmTrend construye la estrategia de momentum.
func NewPmTrend(cfg config.StrategyConfig) *PmTrend {
	return &PmTrend{cfg: cfg}
}

func (s *PmTrend) Name() string { return "pm_trend" }

func (s *PmTrend) Evaluate(in Input) domain.Decision {
	pmRet, err := in.Target.ReturnPct(s.cfg.LookbackPoints)
	if err != nil {
		return domain.Suppress(domain.ReasonStaleOrWarmup, domain.EdgeReading{TokenID: in.Market.TokenID, ComputedAt: in.Now})
	}

	last, _ := in.Target.Latest()
	reading := domain.EdgeReading{
		TokenID:    in.Market.TokenID,
		EdgePct:    pmRet,
		PmRetPct:   pmRet,
		PmMid:      last.Mid(),
		ComputedAt: in.Now,
	}

	if in.InPos {
		if s.cfg.PmStopPct > 0 && in.Position.AvgEntry > 0 {
			lossPct := (in.Position.AvgEntry - reading.PmMid) / in.Position.AvgEntry * 100
			if lossPct >= s.cfg.PmStopPct {
				return domain.Decision{Action: domain.ActionExit, Reason: domain.ReasonStop, Reading: reading}
			}
		}
		if s.cfg.MaxHoldSecs > 0 && in.Position.HoldDuration(in.Now) >= time.Duration(s.cfg.MaxHoldSecs)*time.Second {
			return domain.Decision{Action: domain.ActionExit, Reason: domain.ReasonMaxHold, Reading: reading}
		}
		// El impulso se evaporó: cerrar aunque no haya pérdida.
		if pmRet <= s.cfg.ExitMoveMinPct {
			return domain.Decision{Action: domain.ActionExit, Reason: domain.ReasonTrendGone, Reading: reading}
		}
		if pmRet >= s.cfg.MoveMinPct {
			return domain.Decision{Action: domain.ActionScaleIn, Reason: domain.ReasonNone, Reading: reading}
		}
		return domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: reading}
	}

	if in.GroupOpen {
		return domain.Suppress(domain.ReasonOtherSideOpen, reading)
	}

	if s.cfg.AutoSide && in.Sibling != nil {
		// Sin historia del lado opuesto no se puede elegir lado.
		sibRet, sibErr := in.Sibling.ReturnPct(s.cfg.LookbackPoints)
		if sibErr != nil {
			return domain.Suppress(domain.ReasonNoBestSide, reading)
		}
		// El otro lado del par tiene más impulso: este token no es el elegido.
		if sibRet > pmRet {
			return domain.Suppress(domain.ReasonNotBestSide, reading)
		}
	}

	if pmRet < s.cfg.MoveMinPct {
		return domain.Suppress(domain.ReasonLowEdge, reading)
	}
	return domain.Decision{Action: domain.ActionEnter, Reason: domain.ReasonNone, Reading: reading}
}
