package strategy

import (
	"time"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
)

// LeadLag explota el retardo entre el movimiento del subyacente spot y la
// reacción del mercado de predicción: si el spot ya se movió y el token
// todavía no, el retorno no capturado es el edge.
type LeadLag struct {
	cfg config.StrategyConfig
}

// NewLeadLag construye la estrategia lead/lag con sus umbrales.
func NewLeadLag(cfg config.StrategyConfig) *LeadLag {
	return &LeadLag{cfg: cfg}
}

func (s *LeadLag) Name() string { return "lead_lag" }

// Evaluate calcula edge = retorno spot − retorno del token sobre la ventana
// de lookback. Para tokens NO el retorno spot se invierte: una subida del
// subyacente juega en contra del NO.
func (s *LeadLag) Evaluate(in Input) domain.Decision {
	if in.Ref == nil {
		return domain.Suppress(domain.ReasonNoSignal, domain.EdgeReading{TokenID: in.Market.TokenID, ComputedAt: in.Now})
	}

	spotRet, errSpot := in.Ref.ReturnPct(s.cfg.LookbackPoints)
	pmRet, errPm := in.Target.ReturnPct(s.cfg.LookbackPoints)
	if errSpot != nil || errPm != nil {
		return domain.Suppress(domain.ReasonStaleOrWarmup, domain.EdgeReading{TokenID: in.Market.TokenID, ComputedAt: in.Now})
	}

	if in.Market.Side == domain.SideNo {
		spotRet = -spotRet
	}
	edge := spotRet - pmRet

	last, _ := in.Target.Latest()
	reading := domain.EdgeReading{
		TokenID:    in.Market.TokenID,
		EdgePct:    edge,
		SpotRetPct: spotRet,
		PmRetPct:   pmRet,
		PmMid:      last.Mid(),
		ComputedAt: in.Now,
	}

	if in.InPos {
		if dec, ok := holdOrExit(in, reading.PmMid, edge, s.cfg.EdgeExitPct, s.cfg.PmStopPct,
			time.Duration(s.cfg.MaxHoldSecs)*time.Second); ok {
			return dec
		}
		// Sigue habiendo señal de entrada: proponer add. El state machine
		// aplica cooldown, máximo de adds y tamaño total.
		if spotRet >= s.moveThreshold(in) && edge >= s.cfg.EdgeMinPct {
			return domain.Decision{Action: domain.ActionScaleIn, Reason: domain.ReasonNone, Reading: reading}
		}
		return domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: reading}
	}

	if spotRet < s.moveThreshold(in) {
		return domain.Suppress(domain.ReasonSpotMoveTooSmall, reading)
	}
	if edge < s.cfg.EdgeMinPct {
		return domain.Suppress(domain.ReasonLowEdge, reading)
	}
	return domain.Decision{Action: domain.ActionEnter, Reason: domain.ReasonNone, Reading: reading}
}

// moveThreshold devuelve el umbral adaptativo de movimiento spot: el mayor
// entre el mínimo configurado, un múltiplo del ruido reciente del spot y un
// múltiplo del coste de spread del token. Evita entrar por ruido que no
// cubre ni el cruce del spread.
func (s *LeadLag) moveThreshold(in Input) float64 {
	thr := s.cfg.SpotMoveMinPct

	if noise := in.Ref.ReturnStddevPct(s.cfg.NoiseWindowPoints); noise > 0 {
		if adaptive := s.cfg.NoiseMult * noise; adaptive > thr {
			thr = adaptive
		}
	}
	if last, ok := in.Target.Latest(); ok {
		if cost := s.cfg.SpreadMoveMult * last.SpreadPct(); cost > thr {
			thr = cost
		}
	}
	return thr
}
