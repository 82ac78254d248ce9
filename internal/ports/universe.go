package ports

import (
	"context"

	"github.com/larsw/pmedge/internal/domain"
)

// MarketProvider devuelve el universo de mercados a iterar en cada tick.
type MarketProvider interface {
	ListMarkets(ctx context.Context) ([]domain.MarketRef, error)
}

// BaselineSource devuelve la probabilidad baseline de un mercado (pm_draw).
// El segundo valor es false si no hay baseline configurado para el ref.
type BaselineSource interface {
	Baseline(ref domain.MarketRef) (float64, bool)
}

// KillSwitch señala el apagado de emergencia: cierra todas las posiciones
// y bloquea nuevas entradas. El mecanismo subyacente (archivo, señal, RPC)
// es cosa del adapter.
type KillSwitch interface {
	Active() bool
}
