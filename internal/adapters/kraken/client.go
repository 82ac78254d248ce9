package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/larsw/pmedge/internal/domain"
)

const (
	defaultBase = "https://api.kraken.com/0/public"

	// Kraken público: ~1 req/s por endpoint. Margen de sobra para un
	// universo de pocos pares por tick.
	tickerRatePerSec = 1
)

// Client es el adapter del ticker público de Kraken: la fuente de precio
// spot de referencia para lead_lag.
type Client struct {
	http    *http.Client
	base    string
	limiter *rate.Limiter
}

// NewClient crea un Client. Si base está vacío usa el URL público.
func NewClient(base string) *Client {
	if base == "" {
		base = defaultBase
	}
	return &Client{
		http:    &http.Client{Timeout: 10 * time.Second},
		base:    base,
		limiter: rate.NewLimiter(tickerRatePerSec, 2),
	}
}

// tickerResponse es la respuesta de GET /Ticker. Kraken devuelve el result
// indexado por su nombre interno del par, que no siempre coincide con el
// pedido (XBTUSD → XXBTZUSD), así que se toma la primera entrada.
type tickerResponse struct {
	Error  []string               `json:"error"`
	Result map[string]tickerEntry `json:"result"`
}

type tickerEntry struct {
	Ask []string `json:"a"` // [price, whole lot volume, lot volume]
	Bid []string `json:"b"`
}

// GetQuote devuelve el bid/ask actual del par spot.
func (c *Client) GetQuote(ctx context.Context, pair string) (domain.Quote, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, fmt.Errorf("kraken.GetQuote: rate limiter: %w", err)
	}

	u := fmt.Sprintf("%s/Ticker?pair=%s", c.base, url.QueryEscape(pair))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: %w", pair, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: %w: %v", pair, domain.ErrVenueUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: status %d: %w", pair, resp.StatusCode, domain.ErrVenueUnavailable)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: client error %d: %s", pair, resp.StatusCode, string(body))
	}

	var tr tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: decode: %w", pair, err)
	}
	if len(tr.Error) > 0 {
		return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: API error: %s", pair, strings.Join(tr.Error, "; "))
	}

	for _, entry := range tr.Result {
		bid := parseFirst(entry.Bid)
		ask := parseFirst(entry.Ask)
		if bid <= 0 || ask <= 0 {
			return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: empty ticker: %w", pair, domain.ErrVenueUnavailable)
		}
		return domain.Quote{
			Instrument: pair,
			Bid:        bid,
			Ask:        ask,
			ObservedAt: time.Now().UTC(),
		}, nil
	}
	return domain.Quote{}, fmt.Errorf("kraken.GetQuote %s: pair not in response: %w", pair, domain.ErrVenueUnavailable)
}

func parseFirst(arr []string) float64 {
	if len(arr) == 0 {
		return 0
	}
	v, _ := strconv.ParseFloat(arr[0], 64)
	return v
}
