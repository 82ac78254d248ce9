package domain

import "time"

// PositionState son los estados de la máquina por mercado.
type PositionState string

const (
	StateFlat       PositionState = "FLAT"
	StateInPosition PositionState = "IN_POSITION"
)

// MarketStatus es la vista read-only de un mercado tras un tick:
// el estado de la máquina, la última lectura de edge y el reason code
// cuando la decisión fue suprimida o bloqueada.
type MarketStatus struct {
	Market   MarketRef
	State    PositionState
	Decision Decision
}

// TickSnapshot es la vista exportable del motor tras un tick completo,
// tomada después de mark-to-market. Los collaborators de snapshot/export
// solo leen de aquí.
type TickSnapshot struct {
	At         time.Time
	Markets    []MarketStatus
	Positions  []Position
	NewTrades  []Trade
	Cash       float64
	Equity     float64
	Realized   float64
	Unrealized float64
}
