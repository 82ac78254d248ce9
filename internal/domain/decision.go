package domain

import "time"

// Action es la decisión de la estrategia para un mercado en un tick.
type Action string

const (
	ActionEnter    Action = "enter"
	ActionHold     Action = "hold"
	ActionExit     Action = "exit"
	ActionScaleIn  Action = "scale_in"
	ActionSuppress Action = "suppress"
)

// Reason es el código de motivo que acompaña a cada decisión suprimida,
// bloqueada o de salida. El set es cerrado para que el auditing automático
// de decisiones sea posible.
type Reason string

const (
	ReasonNone Reason = ""

	// Warmup / datos
	ReasonStaleOrWarmup Reason = "stale_or_warmup"

	// Gates de riesgo
	ReasonAvoidPriceZone Reason = "avoid_price_zone"
	ReasonSpreadTooHigh  Reason = "spread_too_high"
	ReasonNetEdgeTooLow  Reason = "net_edge_too_low"
	ReasonBelowMinSize   Reason = "below_min_notional"
	ReasonThinBook       Reason = "insufficient_liquidity"
	ReasonNoBalance      Reason = "insufficient_balance"

	// Supresiones de entrada por estrategia
	ReasonSpotMoveTooSmall Reason = "spot_move_too_small"
	ReasonLowEdge          Reason = "low_edge"
	ReasonNotBestSide      Reason = "not_best_side"
	ReasonNoBestSide       Reason = "no_best_side"
	ReasonOtherSideOpen    Reason = "other_side_open"
	ReasonDrawEdgeSmall    Reason = "draw_edge_too_small"
	ReasonAbovePriceGuard  Reason = "above_price_guard"
	ReasonFavoriteWindow   Reason = "favorite_outside_window"

	// Salidas
	ReasonEdgeExit  Reason = "edge_exit"
	ReasonMaxHold   Reason = "max_hold"
	ReasonStop      Reason = "stop"
	ReasonTrendGone Reason = "trend_gone"

	// Transversales
	ReasonKillSwitch Reason = "kill_switch"
	ReasonHold       Reason = "hold"
	ReasonNoSignal   Reason = "no_signal"
)

// EdgeReading es el valor de edge calculado para un mercado en un tick,
// con los campos auxiliares propios de cada modo.
type EdgeReading struct {
	TokenID    string
	EdgePct    float64 // puntos porcentuales, con signo
	SpotRetPct float64 // lead_lag
	PmRetPct   float64 // lead_lag, pm_trend
	BaselineP  float64 // pm_draw
	PmMid      float64
	ComputedAt time.Time
}

// Decision es el resultado de evaluar una estrategia para un mercado.
type Decision struct {
	Action  Action
	Reason  Reason
	Reading EdgeReading
}

// Suppress construye una decisión suprimida con el motivo dado.
func Suppress(reason Reason, reading EdgeReading) Decision {
	return Decision{Action: ActionSuppress, Reason: reason, Reading: reading}
}
