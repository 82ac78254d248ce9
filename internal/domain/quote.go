package domain

import (
	"math"
	"time"
)

// Quote es una observación bid/ask de un instrumento en un instante.
// Un lado ausente se representa con 0.
type Quote struct {
	Instrument string
	Bid        float64
	Ask        float64
	ObservedAt time.Time
}

// HasBothSides indica si la quote tiene bid y ask coherentes.
func (q Quote) HasBothSides() bool {
	return q.Bid > 0 && q.Ask > 0 && q.Bid <= q.Ask
}

// Mid devuelve el punto medio, o 0 si no hay ambos lados.
func (q Quote) Mid() float64 {
	if !q.HasBothSides() {
		return 0
	}
	return (q.Bid + q.Ask) / 2
}

// SpreadPct devuelve el spread como porcentaje del mid.
func (q Quote) SpreadPct() float64 {
	mid := q.Mid()
	if mid == 0 {
		return 0
	}
	return (q.Ask - q.Bid) / mid * 100
}

// PctChange devuelve el cambio porcentual de old a now. Si old es 0 no hay
// retorno definido y devuelve 0.
func PctChange(old, now float64) float64 {
	if old == 0 {
		return 0
	}
	return (now/old - 1) * 100
}

// QuoteHistory es una ventana FIFO de quotes con capacidad fija. La muestra
// más antigua se expulsa al llenarse. No es segura para uso concurrente: el
// engine la posee y la muta solo desde el loop de ticks.
type QuoteHistory struct {
	capacity int
	quotes   []Quote
}

// NewQuoteHistory crea una ventana con la capacidad indicada (mínimo 2:
// un retorno necesita al menos dos muestras).
func NewQuoteHistory(capacity int) *QuoteHistory {
	if capacity < 2 {
		capacity = 2
	}
	return &QuoteHistory{
		capacity: capacity,
		quotes:   make([]Quote, 0, capacity),
	}
}

// Push añade una quote, expulsando la más antigua si la ventana está llena.
func (h *QuoteHistory) Push(q Quote) {
	if len(h.quotes) == h.capacity {
		copy(h.quotes, h.quotes[1:])
		h.quotes = h.quotes[:h.capacity-1]
	}
	h.quotes = append(h.quotes, q)
}

// Len devuelve el número de muestras almacenadas.
func (h *QuoteHistory) Len() int { return len(h.quotes) }

// Capacity devuelve la capacidad de la ventana.
func (h *QuoteHistory) Capacity() int { return h.capacity }

// Latest devuelve la muestra más reciente, si existe.
func (h *QuoteHistory) Latest() (Quote, bool) {
	if len(h.quotes) == 0 {
		return Quote{}, false
	}
	return h.quotes[len(h.quotes)-1], true
}

// ReturnPct devuelve el retorno porcentual del mid entre la muestra de hace
// lookback pasos y la más reciente. Necesita lookback+1 muestras; si no las
// hay devuelve ErrInsufficientHistory.
func (h *QuoteHistory) ReturnPct(lookback int) (float64, error) {
	if lookback < 1 || len(h.quotes) < lookback+1 {
		return 0, ErrInsufficientHistory
	}
	old := h.quotes[len(h.quotes)-1-lookback].Mid()
	now := h.quotes[len(h.quotes)-1].Mid()
	return PctChange(old, now), nil
}

// ReturnStddevPct devuelve la desviación estándar de los retornos paso a
// paso sobre las últimas window muestras. Con menos de 3 muestras no hay
// dispersión estimable y devuelve 0.
func (h *QuoteHistory) ReturnStddevPct(window int) float64 {
	n := len(h.quotes)
	if window+1 < n {
		n = window + 1
	}
	if n < 3 {
		return 0
	}
	tail := h.quotes[len(h.quotes)-n:]
	rets := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		rets = append(rets, PctChange(tail[i-1].Mid(), tail[i].Mid()))
	}
	var mean float64
	for _, r := range rets {
		mean += r
	}
	mean /= float64(len(rets))
	var sum float64
	for _, r := range rets {
		d := r - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(rets)))
}

// IsStale indica si la última muestra supera la edad máxima. Una ventana
// vacía siempre es stale.
func (h *QuoteHistory) IsStale(now time.Time, maxAge time.Duration) bool {
	last, ok := h.Latest()
	if !ok {
		return true
	}
	return now.Sub(last.ObservedAt) > maxAge
}
