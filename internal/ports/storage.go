package ports

import (
	"context"
	"time"

	"github.com/larsw/pmedge/internal/domain"
)

// TradeStore persiste el trade log y la curva de equity.
// El log más el balance inicial reconstruyen el ledger tras un restart.
type TradeStore interface {
	// SaveTrade añade un trade al log persistente.
	SaveTrade(ctx context.Context, t domain.Trade) error

	// LoadTrades devuelve el log completo en orden de ejecución.
	LoadTrades(ctx context.Context) ([]domain.Trade, error)

	// SaveEquityPoint registra equity/cash tras un tick.
	SaveEquityPoint(ctx context.Context, at time.Time, equity, cash, realized float64) error

	// Close cierra la conexión limpiamente.
	Close() error
}
