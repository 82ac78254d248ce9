package domain

import (
	"fmt"
	"sort"
)

// Ledger es la contabilidad autoritativa del paper trading: cash, posiciones
// abiertas, trade log append-only y valoración mark-to-market.
//
// Invariante tras cualquier secuencia de trades aplicados:
//
//	cash + Σ cost_basis + Σ unrealized == starting_balance + Σ realized
type Ledger struct {
	startingBalance float64
	cash            float64
	realized        float64
	positions       map[string]*Position // tokenID → posición abierta
	trades          []Trade
}

// NewLedger crea un ledger vacío con el balance inicial dado.
func NewLedger(startingBalance float64) *Ledger {
	return &Ledger{
		startingBalance: startingBalance,
		cash:            startingBalance,
		positions:       make(map[string]*Position),
	}
}

// StartingBalance devuelve el balance inicial.
func (l *Ledger) StartingBalance() float64 { return l.startingBalance }

// Cash devuelve el cash disponible.
func (l *Ledger) Cash() float64 { return l.cash }

// RealizedPnL devuelve el PnL realizado acumulado.
func (l *Ledger) RealizedPnL() float64 { return l.realized }

// UnrealizedPnL devuelve la suma de PnL no realizado de las posiciones abiertas.
func (l *Ledger) UnrealizedPnL() float64 {
	var total float64
	for _, p := range l.positions {
		total += p.UnrealizedPnL()
	}
	return total
}

// Equity devuelve cash más el valor de mercado de las posiciones abiertas.
func (l *Ledger) Equity() float64 {
	eq := l.cash
	for _, p := range l.positions {
		eq += p.MarkValue()
	}
	return eq
}

// Position devuelve una copia de la posición abierta del token, si existe.
func (l *Ledger) Position(tokenID string) (Position, bool) {
	p, ok := l.positions[tokenID]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// OpenPositions devuelve copias de todas las posiciones abiertas,
// ordenadas por token id para output estable.
func (l *Ledger) OpenPositions() []Position {
	out := make([]Position, 0, len(l.positions))
	for _, p := range l.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Market.TokenID < out[j].Market.TokenID })
	return out
}

// Trades devuelve una copia del trade log completo.
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// GroupConflict devuelve true si existe una posición abierta en otro token
// del mismo grupo que el ref dado.
func (l *Ledger) GroupConflict(ref MarketRef) bool {
	if ref.Group == "" {
		return false
	}
	for token, p := range l.positions {
		if token != ref.TokenID && p.Market.SameGroup(ref) {
			return true
		}
	}
	return false
}

// Apply aplica un trade de forma atómica: valida primero y solo entonces
// muta cash, posiciones y log — o todo el efecto o nada. Devuelve el trade
// registrado, con RealizedPnL calculado en los exits.
func (l *Ledger) Apply(t Trade) (Trade, error) {
	switch t.Action {
	case TradeEnter:
		if _, open := l.positions[t.Market.TokenID]; open {
			return Trade{}, fmt.Errorf("ledger.Apply: enter %s: position already open", t.Market.TokenID)
		}
		if l.GroupConflict(t.Market) {
			return Trade{}, fmt.Errorf("ledger.Apply: enter %s: %w", t.Market.TokenID, ErrOppositeSideOpen)
		}
		if t.Notional() > l.cash {
			return Trade{}, fmt.Errorf("ledger.Apply: enter %s needs $%.2f, cash $%.2f: %w",
				t.Market.TokenID, t.Notional(), l.cash, ErrInsufficientBalance)
		}
		l.cash -= t.Notional()
		l.positions[t.Market.TokenID] = &Position{
			Market:   t.Market,
			Shares:   t.Shares,
			AvgEntry: t.Price,
			OpenedAt: t.ExecutedAt,
			LastMark: t.Price,
		}

	case TradeScaleIn:
		p, open := l.positions[t.Market.TokenID]
		if !open {
			return Trade{}, fmt.Errorf("ledger.Apply: scale_in %s: no open position", t.Market.TokenID)
		}
		if t.Notional() > l.cash {
			return Trade{}, fmt.Errorf("ledger.Apply: scale_in %s needs $%.2f, cash $%.2f: %w",
				t.Market.TokenID, t.Notional(), l.cash, ErrInsufficientBalance)
		}
		l.cash -= t.Notional()
		newShares := p.Shares + t.Shares
		p.AvgEntry = (p.Shares*p.AvgEntry + t.Shares*t.Price) / newShares
		p.Shares = newShares
		p.Adds++
		p.LastScalePrice = t.Price
		p.LastScaleAt = t.ExecutedAt

	case TradeExit:
		p, open := l.positions[t.Market.TokenID]
		if !open {
			return Trade{}, fmt.Errorf("ledger.Apply: exit %s: no open position", t.Market.TokenID)
		}
		// Exit siempre cierra la posición completa.
		t.Shares = p.Shares
		t.RealizedPnL = (t.Price - p.AvgEntry) * p.Shares
		l.cash += t.Notional()
		l.realized += t.RealizedPnL
		delete(l.positions, t.Market.TokenID)

	default:
		return Trade{}, fmt.Errorf("ledger.Apply: unknown action %q", t.Action)
	}

	l.trades = append(l.trades, t)
	return t, nil
}

// MarkToMarket actualiza el mark de las posiciones abiertas con los mids
// dados. No toca cash ni PnL realizado; tokens sin mid conservan el mark
// anterior.
func (l *Ledger) MarkToMarket(mids map[string]float64) {
	for token, p := range l.positions {
		if mid, ok := mids[token]; ok && mid > 0 {
			p.LastMark = mid
		}
	}
}

// Replay reconstruye el estado del ledger aplicando un trade log almacenado.
// Permite reanudar tras un restart sin fabricar PnL.
func (l *Ledger) Replay(trades []Trade) error {
	for i, t := range trades {
		if _, err := l.Apply(t); err != nil {
			return fmt.Errorf("ledger.Replay: trade %d (%s %s): %w", i, t.Action, t.Market.TokenID, err)
		}
	}
	return nil
}
