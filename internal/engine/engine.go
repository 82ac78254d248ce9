package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/larsw/pmedge/config"
	"github.com/larsw/pmedge/internal/domain"
	"github.com/larsw/pmedge/internal/ports"
	"github.com/larsw/pmedge/internal/strategy"
)

// Deps son las dependencias externas del engine, inyectadas en el arranque.
// Baselines puede ser nil fuera del modo pm_draw.
type Deps struct {
	Strategy   strategy.Strategy
	PmQuotes   ports.QuoteSource
	SpotQuotes ports.QuoteSource
	Books      ports.BookProvider
	Markets    ports.MarketProvider
	Baselines  ports.BaselineSource
	Kill       ports.KillSwitch
	Store      ports.TradeStore
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Engine ejecuta el ciclo de decisión: un tick recorre el universo de
// mercados, evalúa la estrategia por mercado y aplica las transiciones al
// ledger. Todo el estado mutable vive aquí y en el ledger; un tick nunca
// corre concurrente con otro.
type Engine struct {
	cfg    *config.Config
	deps   Deps
	ledger *domain.Ledger
	trader *Trader
	log    *slog.Logger

	// Ventanas de quotes por token / instrumento de referencia.
	tokenHist map[string]*domain.QuoteHistory
	refHist   map[string]*domain.QuoteHistory

	consecutiveFailures int
}

// New construye el engine con un ledger nuevo. Para reanudar una sesión,
// llamar Restore antes del primer tick.
func New(cfg *config.Config, deps Deps) *Engine {
	ledger := domain.NewLedger(cfg.Engine.StartingBalanceUSDC)
	return &Engine{
		cfg:       cfg,
		deps:      deps,
		ledger:    ledger,
		trader:    NewTrader(cfg, ledger, deps.Logger),
		log:       deps.Logger,
		tokenHist: make(map[string]*domain.QuoteHistory),
		refHist:   make(map[string]*domain.QuoteHistory),
	}
}

// Ledger expone el ledger para reporting y tests.
func (e *Engine) Ledger() *domain.Ledger { return e.ledger }

// Restore reconstruye el ledger reproduciendo el trade log persistido.
// Las posiciones que estaban abiertas al morir el proceso siguen abiertas.
func (e *Engine) Restore(ctx context.Context) error {
	trades, err := e.deps.Store.LoadTrades(ctx)
	if err != nil {
		return fmt.Errorf("engine.Restore: %w", err)
	}
	if len(trades) == 0 {
		return nil
	}
	if err := e.ledger.Replay(trades); err != nil {
		return fmt.Errorf("engine.Restore: %w", err)
	}
	e.log.Info("sesión restaurada",
		"trades", len(trades),
		"open_positions", len(e.ledger.OpenPositions()),
		"cash", e.ledger.Cash(),
		"realized_pnl", e.ledger.RealizedPnL())
	return nil
}

// Run ejecuta ticks hasta que el contexto se cancele. Un tick fallido
// alarga el intervalo con backoff exponencial; el primer tick sano lo
// restaura.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.TickInterval()
	e.log.Info("engine arrancado",
		"strategy", e.deps.Strategy.Name(), "interval", interval.String())

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("engine detenido", "equity", e.ledger.Equity())
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := e.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			e.consecutiveFailures++
			delay := e.backoffDelay(interval)
			e.log.Error("tick fallido",
				"error", err, "consecutive", e.consecutiveFailures, "retry_in", delay.String())
			timer.Reset(delay)
			continue
		}
		e.consecutiveFailures = 0
		timer.Reset(interval)
	}
}

// backoffDelay duplica el intervalo por fallo consecutivo, con techo.
func (e *Engine) backoffDelay(interval time.Duration) time.Duration {
	ceiling := time.Duration(e.cfg.Engine.BackoffMaxSeconds) * time.Second
	delay := interval
	for i := 1; i < e.consecutiveFailures; i++ {
		delay *= 2
		if delay >= ceiling {
			return ceiling
		}
	}
	if delay > ceiling {
		delay = ceiling
	}
	return delay
}

// RunOnce ejecuta un tick completo y devuelve el snapshot resultante.
// Devuelve error solo si el tick entero fue inútil (kill-switch aparte);
// el fallo de un mercado individual no tumba el tick.
func (e *Engine) RunOnce(ctx context.Context) (domain.TickSnapshot, error) {
	now := time.Now().UTC()

	// El kill-switch corta antes de evaluar nada: liquidar y bloquear.
	if e.deps.Kill.Active() {
		return e.killSwitchTick(ctx, now)
	}

	markets, err := e.deps.Markets.ListMarkets(ctx)
	if err != nil {
		return domain.TickSnapshot{}, fmt.Errorf("engine.RunOnce: list markets: %w", err)
	}

	groupSize := make(map[string]int)
	nonDraw := make(map[string][]string)
	for _, mk := range markets {
		if mk.Group == "" {
			continue
		}
		groupSize[mk.Group]++
		if mk.Side != domain.SideDraw {
			nonDraw[mk.Group] = append(nonDraw[mk.Group], mk.TokenID)
		}
	}

	var (
		statuses  []domain.MarketStatus
		newTrades []domain.Trade
		failed    int
	)
	for _, mk := range markets {
		status, trade, err := e.evalMarket(ctx, mk, groupSize[mk.Group], nonDraw[mk.Group], now)
		if err != nil {
			failed++
			e.log.Warn("mercado saltado este tick", "token", mk.TokenID, "error", err)
			statuses = append(statuses, domain.MarketStatus{
				Market:   mk,
				State:    e.stateOf(mk.TokenID),
				Decision: domain.Suppress(domain.ReasonStaleOrWarmup, domain.EdgeReading{TokenID: mk.TokenID, ComputedAt: now}),
			})
			continue
		}
		statuses = append(statuses, status)
		if trade != nil {
			newTrades = append(newTrades, *trade)
			if err := e.deps.Store.SaveTrade(ctx, *trade); err != nil {
				e.log.Error("trade no persistido", "trade_id", trade.ID, "error", err)
			}
		}
	}
	if len(markets) > 0 && failed == len(markets) {
		return domain.TickSnapshot{}, fmt.Errorf("engine.RunOnce: all %d markets failed", failed)
	}

	e.markToMarket()
	snap := e.snapshot(now, statuses, newTrades)
	e.finishTick(ctx, snap)
	return snap, nil
}

// evalMarket refresca las ventanas de un mercado, evalúa la estrategia y
// ejecuta la transición que salga.
func (e *Engine) evalMarket(parent context.Context, mk domain.MarketRef, groupSize int, groupNonDraw []string, now time.Time) (domain.MarketStatus, *domain.Trade, error) {
	ctx, cancel := context.WithTimeout(parent, e.cfg.CallTimeout())
	defer cancel()

	book, err := e.deps.Books.GetOrderBook(ctx, mk.TokenID)
	if err != nil {
		return domain.MarketStatus{}, nil, fmt.Errorf("book %s: %w", mk.TokenID, err)
	}
	q := book.TopQuote()
	// El timestamp del venue manda; el reloj local es el fallback. Así el
	// gate de frescura puede rechazar un book que el venue dejó de mover.
	if q.ObservedAt.IsZero() {
		q.ObservedAt = now
	}
	e.history(e.tokenHist, mk.TokenID).Push(q)

	if mk.RefInstrument != "" {
		spot, err := e.deps.SpotQuotes.GetQuote(ctx, mk.RefInstrument)
		if err != nil {
			return domain.MarketStatus{}, nil, fmt.Errorf("spot %s: %w", mk.RefInstrument, err)
		}
		e.history(e.refHist, mk.RefInstrument).Push(spot)
	}
	if mk.SiblingTokenID != "" {
		sib, err := e.deps.PmQuotes.GetQuote(ctx, mk.SiblingTokenID)
		if err != nil {
			// El hermano es auxiliar: sin él se evalúa igual.
			e.log.Debug("sibling sin quote", "token", mk.SiblingTokenID, "error", err)
		} else {
			e.history(e.tokenHist, mk.SiblingTokenID).Push(sib)
		}
	}

	in := strategy.Input{
		Market:      mk,
		Target:      e.tokenHist[mk.TokenID],
		GroupOpen:   e.ledger.GroupConflict(mk),
		ThreeWay:    groupSize >= 3 || (mk.Side == domain.SideDraw && mk.SiblingTokenID != ""),
		FavoriteMid: e.favoriteMid(mk, groupNonDraw),
		Now:         now,
	}
	if mk.RefInstrument != "" {
		in.Ref = e.refHist[mk.RefInstrument]
	}
	if mk.SiblingTokenID != "" {
		in.Sibling = e.tokenHist[mk.SiblingTokenID]
	}
	if e.deps.Baselines != nil {
		in.Baseline, in.HasBase = e.deps.Baselines.Baseline(mk)
	}
	if pos, open := e.ledger.Position(mk.TokenID); open {
		in.Position = pos
		in.InPos = true
	}

	dec := e.deps.Strategy.Evaluate(in)
	final, trade := e.trader.Execute(dec, mk, q, book, now)

	return domain.MarketStatus{Market: mk, State: e.stateOf(mk.TokenID), Decision: final}, trade, nil
}

// killSwitchTick liquida todas las posiciones al último mark conocido y
// reporta un snapshot con todos los mercados bloqueados. No evalúa nada:
// el venue puede estar caído y el kill-switch debe funcionar igual.
func (e *Engine) killSwitchTick(ctx context.Context, now time.Time) (domain.TickSnapshot, error) {
	var newTrades []domain.Trade
	for _, pos := range e.ledger.OpenPositions() {
		trade, err := e.trader.ForceExit(pos.Market.TokenID, pos.LastMark, domain.ReasonKillSwitch, now)
		if err != nil {
			e.log.Error("kill-switch: cierre fallido", "token", pos.Market.TokenID, "error", err)
			continue
		}
		if trade != nil {
			newTrades = append(newTrades, *trade)
			if err := e.deps.Store.SaveTrade(ctx, *trade); err != nil {
				e.log.Error("trade no persistido", "trade_id", trade.ID, "error", err)
			}
		}
	}

	var statuses []domain.MarketStatus
	if markets, err := e.deps.Markets.ListMarkets(ctx); err == nil {
		for _, mk := range markets {
			statuses = append(statuses, domain.MarketStatus{
				Market:   mk,
				State:    domain.StateFlat,
				Decision: domain.Suppress(domain.ReasonKillSwitch, domain.EdgeReading{TokenID: mk.TokenID, ComputedAt: now}),
			})
		}
	}

	snap := e.snapshot(now, statuses, newTrades)
	e.finishTick(ctx, snap)
	return snap, nil
}

// markToMarket actualiza los marks de las posiciones con el último mid de
// cada ventana.
func (e *Engine) markToMarket() {
	mids := make(map[string]float64, len(e.tokenHist))
	for token, h := range e.tokenHist {
		if q, ok := h.Latest(); ok {
			mids[token] = q.Mid()
		}
	}
	e.ledger.MarkToMarket(mids)
}

func (e *Engine) snapshot(now time.Time, statuses []domain.MarketStatus, newTrades []domain.Trade) domain.TickSnapshot {
	return domain.TickSnapshot{
		At:         now,
		Markets:    statuses,
		Positions:  e.ledger.OpenPositions(),
		NewTrades:  newTrades,
		Cash:       e.ledger.Cash(),
		Equity:     e.ledger.Equity(),
		Realized:   e.ledger.RealizedPnL(),
		Unrealized: e.ledger.UnrealizedPnL(),
	}
}

// finishTick persiste la curva de equity y notifica. Ninguno de los dos
// fallos invalida el tick: el ledger ya está actualizado.
func (e *Engine) finishTick(ctx context.Context, snap domain.TickSnapshot) {
	if err := e.deps.Store.SaveEquityPoint(ctx, snap.At, snap.Equity, snap.Cash, snap.Realized); err != nil {
		e.log.Error("equity point no persistido", "error", err)
	}
	if err := e.deps.Notifier.NotifyTick(ctx, snap); err != nil {
		e.log.Error("notificación fallida", "error", err)
	}
}

// favoriteMid devuelve el mayor mid entre los outcomes no-DRAW del grupo,
// contando también el token hermano configurado si no es un mercado propio.
// Si el favorito cambia a mitad de sesión el filtro sigue mirando al líder
// real, no a un token fijado en config.
func (e *Engine) favoriteMid(mk domain.MarketRef, groupNonDraw []string) float64 {
	candidates := groupNonDraw
	if mk.SiblingTokenID != "" {
		candidates = append(append([]string(nil), groupNonDraw...), mk.SiblingTokenID)
	}

	var fav float64
	for _, token := range candidates {
		if token == mk.TokenID {
			continue
		}
		h, ok := e.tokenHist[token]
		if !ok {
			continue
		}
		if q, ok := h.Latest(); ok && q.Mid() > fav {
			fav = q.Mid()
		}
	}
	return fav
}

func (e *Engine) stateOf(tokenID string) domain.PositionState {
	if _, open := e.ledger.Position(tokenID); open {
		return domain.StateInPosition
	}
	return domain.StateFlat
}

// history devuelve la ventana del id, creándola si no existe. La capacidad
// cubre el lookback más la ventana de ruido.
func (e *Engine) history(m map[string]*domain.QuoteHistory, id string) *domain.QuoteHistory {
	h, ok := m[id]
	if !ok {
		capacity := e.cfg.Strategy.LookbackPoints + 1
		if n := e.cfg.Strategy.NoiseWindowPoints + 1; n > capacity {
			capacity = n
		}
		h = domain.NewQuoteHistory(capacity)
		m[id] = h
	}
	return h
}
