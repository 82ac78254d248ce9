package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
	"github.com/larsw/pmedge/internal/risk"
)

// Trader es la máquina de estados de posiciones: convierte la propuesta de
// la estrategia en un trade paper (o la degrada) aplicando sizing contra el
// book, el gate de riesgo y las reglas de scale-in. El ledger es la única
// fuente de verdad del estado FLAT / IN_POSITION.
type Trader struct {
	cfg    *config.Config
	gate   *risk.Gate
	ledger *domain.Ledger
	log    *slog.Logger
}

// NewTrader construye el trader sobre un ledger compartido con el engine.
func NewTrader(cfg *config.Config, ledger *domain.Ledger, log *slog.Logger) *Trader {
	return &Trader{
		cfg:    cfg,
		gate:   risk.New(cfg.Risk),
		ledger: ledger,
		log:    log,
	}
}

// Execute aplica la decisión de la estrategia. Devuelve la decisión final
// (igual a la propuesta, o degradada a suppress/hold con su motivo) y el
// trade aplicado al ledger, si lo hubo.
func (tr *Trader) Execute(dec domain.Decision, mk domain.MarketRef, q domain.Quote, book domain.OrderBook, now time.Time) (domain.Decision, *domain.Trade) {
	switch dec.Action {
	case domain.ActionEnter:
		return tr.enter(dec, mk, q, book, now)
	case domain.ActionScaleIn:
		return tr.scaleIn(dec, mk, q, book, now)
	case domain.ActionExit:
		return tr.exit(dec, mk, book, now)
	default:
		return dec, nil
	}
}

func (tr *Trader) enter(dec domain.Decision, mk domain.MarketRef, q domain.Quote, book domain.OrderBook, now time.Time) (domain.Decision, *domain.Trade) {
	if tr.ledger.GroupConflict(mk) {
		return domain.Suppress(domain.ReasonOtherSideOpen, dec.Reading), nil
	}

	shares, price, ok := tr.sizeBuy(book, tr.cfg.Sizing.OrderSizeShares)
	if !ok {
		return domain.Suppress(domain.ReasonThinBook, dec.Reading), nil
	}

	if reason, ok := tr.gate.Vet(q, dec.Reading, shares*price, now); !ok {
		return domain.Suppress(reason, dec.Reading), nil
	}

	trade, err := tr.ledger.Apply(domain.Trade{
		ID:         uuid.NewString(),
		Market:     mk,
		Action:     domain.TradeEnter,
		Price:      price,
		Shares:     shares,
		ExecutedAt: now,
	})
	if err != nil {
		return domain.Suppress(applyReason(err), dec.Reading), nil
	}

	tr.log.Info("posición abierta",
		"token", mk.TokenID, "shares", trade.Shares, "price", trade.Price, "edge_pct", dec.Reading.EdgePct)
	return dec, &trade
}

func (tr *Trader) scaleIn(dec domain.Decision, mk domain.MarketRef, q domain.Quote, book domain.OrderBook, now time.Time) (domain.Decision, *domain.Trade) {
	pos, open := tr.ledger.Position(mk.TokenID)
	if !open {
		return domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: dec.Reading}, nil
	}

	hold := domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: dec.Reading}

	if tr.cfg.Scale.MaxAdds <= 0 || pos.Adds >= tr.cfg.Scale.MaxAdds {
		return hold, nil
	}
	// Solo se añade cuando el precio se movió a favor desde la última
	// referencia; promediar a la baja está fuera.
	move := domain.PctChange(pos.ScaleReferencePrice(), dec.Reading.PmMid)
	if move < tr.cfg.Scale.OnMovePct {
		return hold, nil
	}
	last := pos.LastScaleAt
	if pos.Adds == 0 {
		last = pos.OpenedAt
	}
	if now.Sub(last) < time.Duration(tr.cfg.Scale.CooldownSeconds)*time.Second {
		return hold, nil
	}

	addShares := tr.cfg.Sizing.OrderSizeShares * tr.cfg.Scale.SizeMult
	if room := tr.cfg.Scale.MaxTotalShares - pos.Shares; room < addShares {
		addShares = room
	}
	if addShares <= 0 {
		return hold, nil
	}

	shares, price, ok := tr.sizeBuy(book, addShares)
	if !ok {
		return domain.Suppress(domain.ReasonThinBook, dec.Reading), nil
	}
	if reason, ok := tr.gate.Vet(q, dec.Reading, shares*price, now); !ok {
		return domain.Suppress(reason, dec.Reading), nil
	}

	trade, err := tr.ledger.Apply(domain.Trade{
		ID:         uuid.NewString(),
		Market:     mk,
		Action:     domain.TradeScaleIn,
		Price:      price,
		Shares:     shares,
		ExecutedAt: now,
	})
	if err != nil {
		return domain.Suppress(applyReason(err), dec.Reading), nil
	}

	tr.log.Info("scale-in",
		"token", mk.TokenID, "add_shares", trade.Shares, "price", trade.Price, "adds", pos.Adds+1)
	return dec, &trade
}

func (tr *Trader) exit(dec domain.Decision, mk domain.MarketRef, book domain.OrderBook, now time.Time) (domain.Decision, *domain.Trade) {
	pos, open := tr.ledger.Position(mk.TokenID)
	if !open {
		return domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: dec.Reading}, nil
	}

	// Fill de salida: VWAP de barrer los bids en banda. Si la banda no
	// cubre la posición, best bid; si el book está vacío, último mark.
	price, ok := book.VWAPForShares(domain.TradeSell, pos.Shares, tr.cfg.Sizing.SlippageCap)
	if !ok {
		price = book.BestBid()
	}
	if price <= 0 {
		price = pos.LastMark
	}
	if price <= 0 {
		tr.log.Warn("salida sin precio de referencia, se mantiene la posición", "token", mk.TokenID)
		return domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: dec.Reading}, nil
	}

	trade, err := tr.ledger.Apply(domain.Trade{
		ID:         uuid.NewString(),
		Market:     mk,
		Action:     domain.TradeExit,
		Price:      price,
		Reason:     dec.Reason,
		ExecutedAt: now,
	})
	if err != nil {
		tr.log.Error("exit rechazado por el ledger", "token", mk.TokenID, "error", err)
		return domain.Decision{Action: domain.ActionHold, Reason: domain.ReasonHold, Reading: dec.Reading}, nil
	}

	tr.log.Info("posición cerrada",
		"token", mk.TokenID, "shares", trade.Shares, "price", trade.Price,
		"realized_pnl", trade.RealizedPnL, "reason", trade.Reason)
	return dec, &trade
}

// ForceExit cierra una posición al precio dado sin consultar book ni gate.
// Lo usa el kill-switch, que debe poder cerrar aunque el venue no responda.
func (tr *Trader) ForceExit(tokenID string, price float64, reason domain.Reason, now time.Time) (*domain.Trade, error) {
	pos, open := tr.ledger.Position(tokenID)
	if !open {
		return nil, nil
	}
	if price <= 0 {
		price = pos.LastMark
	}
	if price <= 0 {
		price = pos.AvgEntry
	}

	trade, err := tr.ledger.Apply(domain.Trade{
		ID:         uuid.NewString(),
		Market:     pos.Market,
		Action:     domain.TradeExit,
		Price:      price,
		Reason:     reason,
		ExecutedAt: now,
	})
	if err != nil {
		return nil, err
	}
	tr.log.Warn("cierre forzado",
		"token", tokenID, "price", trade.Price, "realized_pnl", trade.RealizedPnL, "reason", reason)
	return &trade, nil
}

// sizeBuy calcula shares y precio de fill para una compra de hasta desired
// shares, acotada por la liquidez en banda, la fracción máxima y el hard cap.
func (tr *Trader) sizeBuy(book domain.OrderBook, desired float64) (shares, price float64, ok bool) {
	s := tr.cfg.Sizing
	sized := book.MaxTradeSize(domain.TradeBuy, s.SlippageCap, s.MaxFractionOfLiquidity, s.HardCapUSDC)
	if sized.Shares <= 0 {
		return 0, 0, false
	}
	if desired >= sized.Shares {
		return sized.Shares, sized.FillPrice, true
	}
	vwap, ok := book.VWAPForShares(domain.TradeBuy, desired, s.SlippageCap)
	if !ok {
		return sized.Shares, sized.FillPrice, true
	}
	return desired, vwap, true
}

// applyReason traduce un error del ledger al motivo de supresión.
func applyReason(err error) domain.Reason {
	switch {
	case errors.Is(err, domain.ErrInsufficientBalance):
		return domain.ReasonNoBalance
	case errors.Is(err, domain.ErrOppositeSideOpen):
		return domain.ReasonOtherSideOpen
	default:
		return domain.ReasonNoSignal
	}
}
