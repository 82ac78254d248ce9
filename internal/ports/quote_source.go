package ports

import (
	"context"

	"github.com/larsw/pmedge/internal/domain"
)

// QuoteSource obtiene la mejor quote actual de un instrumento.
// Implementado por los adapters de venue (CLOB, spot).
type QuoteSource interface {
	// GetQuote devuelve bid/ask/timestamp del instrumento.
	// Devuelve domain.ErrVenueUnavailable (posiblemente envuelto) si el
	// venue no responde este tick.
	GetQuote(ctx context.Context, instrumentID string) (domain.Quote, error)
}

// BookProvider obtiene el orderbook completo de un token para sizing.
type BookProvider interface {
	GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error)
}
