package ports

import (
	"context"

	"github.com/larsw/pmedge/internal/domain"
)

// Notifier presenta el estado del motor tras cada tick.
// En la implementación de consola, imprime una línea compacta o tablas.
type Notifier interface {
	NotifyTick(ctx context.Context, snap domain.TickSnapshot) error
}
