package domain

import "time"

// Position es una posición paper abierta en un outcome token.
// Es propiedad exclusiva del Ledger: se crea al entrar, se muta en cada
// scale-in y se destruye al salir.
type Position struct {
	Market   MarketRef
	Shares   float64
	AvgEntry float64
	OpenedAt time.Time

	// Scale-in bookkeeping
	Adds           int
	LastScalePrice float64
	LastScaleAt    time.Time

	// LastMark es el último mid usado por mark-to-market. 0 = sin marcar.
	LastMark float64
}

// CostBasis devuelve el coste de la posición (avg entry × shares).
func (p Position) CostBasis() float64 {
	return p.AvgEntry * p.Shares
}

// MarkValue devuelve el valor de mercado de la posición al último mark.
// Si nunca se ha marcado, devuelve el cost basis.
func (p Position) MarkValue() float64 {
	if p.LastMark <= 0 {
		return p.CostBasis()
	}
	return p.LastMark * p.Shares
}

// UnrealizedPnL devuelve el PnL no realizado al último mark.
func (p Position) UnrealizedPnL() float64 {
	return p.MarkValue() - p.CostBasis()
}

// HoldDuration devuelve cuánto tiempo lleva abierta la posición.
func (p Position) HoldDuration(now time.Time) time.Duration {
	return now.Sub(p.OpenedAt)
}

// ScaleReferencePrice devuelve el precio contra el que se mide el siguiente
// scale-in: el del último add, o el de entrada si no ha habido ninguno.
func (p Position) ScaleReferencePrice() float64 {
	if p.Adds > 0 && p.LastScalePrice > 0 {
		return p.LastScalePrice
	}
	return p.AvgEntry
}

// TradeAction es el tipo de un trade registrado.
type TradeAction string

const (
	TradeEnter   TradeAction = "enter"
	TradeScaleIn TradeAction = "scale_in"
	TradeExit    TradeAction = "exit"
)

// Trade es un registro inmutable de una transición ejecutada contra el ledger.
// El trade log más el balance inicial reconstruyen todo el estado del ledger.
type Trade struct {
	ID          string
	Market      MarketRef
	Action      TradeAction
	Price       float64 // VWAP de fill para entradas, best bid para salidas
	Shares      float64
	RealizedPnL float64 // solo exits
	Reason      Reason
	ExecutedAt  time.Time
}

// Notional devuelve el valor del trade en USDC.
func (t Trade) Notional() float64 {
	return t.Price * t.Shares
}
