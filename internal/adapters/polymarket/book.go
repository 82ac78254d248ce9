package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/larsw/pmedge/internal/domain"
)

const bookPath = "/book"

// bookResponse es la respuesta de GET /book.
type bookResponse struct {
	AssetID   string         `json:"asset_id"`
	Timestamp string         `json:"timestamp"` // epoch ms
	Bids      []bookEntryRaw `json:"bids"`
	Asks      []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

// GetOrderBook devuelve el orderbook completo de un token, con los niveles
// ya ordenados de mejor a peor precio.
func (c *Client) GetOrderBook(ctx context.Context, tokenID string) (domain.OrderBook, error) {
	u := fmt.Sprintf("%s%s?token_id=%s", c.clobBase, bookPath, url.QueryEscape(tokenID))

	var resp bookResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return domain.OrderBook{}, fmt.Errorf("polymarket.GetOrderBook %s: %w", tokenID, err)
	}

	return domain.OrderBook{
		TokenID:    tokenID,
		Bids:       mapBookEntries(resp.Bids, false),
		Asks:       mapBookEntries(resp.Asks, true),
		ObservedAt: observedAt(resp.Timestamp),
	}, nil
}

// GetQuote devuelve el top del book como quote del token.
func (c *Client) GetQuote(ctx context.Context, tokenID string) (domain.Quote, error) {
	book, err := c.GetOrderBook(ctx, tokenID)
	if err != nil {
		return domain.Quote{}, err
	}
	return book.TopQuote(), nil
}

// observedAt convierte el timestamp epoch-ms de la API; si falta o no
// parsea, cae al reloj local.
func observedAt(raw string) time.Time {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms).UTC()
	}
	return time.Now().UTC()
}

// mapBookEntries convierte entries raw a domain.BookEntry y los ordena.
// ascending=true → menor a mayor (asks), ascending=false → mayor a menor (bids).
func mapBookEntries(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price := domain.ParsePrice(r.Price)
		size := domain.ParsePrice(r.Size)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
