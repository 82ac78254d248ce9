package domain

import (
	"strconv"
	"time"
)

// OrderBook representa el libro de órdenes de un token.
type OrderBook struct {
	TokenID    string
	Bids       []BookEntry // ordenados mayor a menor precio
	Asks       []BookEntry // ordenados menor a mayor precio
	ObservedAt time.Time   // timestamp del venue, cero si no lo reporta
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// TradeSide es la dirección de un trade contra el book.
type TradeSide string

const (
	TradeBuy  TradeSide = "BUY"
	TradeSell TradeSide = "SELL"
)

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// BestAsk devuelve el mejor precio de venta (menor ask).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestAsk() float64 {
	if len(ob.Asks) == 0 {
		return 0
	}
	return ob.Asks[0].Price
}

// Midpoint devuelve el punto medio entre best bid y best ask.
func (ob OrderBook) Midpoint() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return (bid + ask) / 2
}

// Spread devuelve el spread del book (ask - bid).
func (ob OrderBook) Spread() float64 {
	bid := ob.BestBid()
	ask := ob.BestAsk()
	if bid == 0 || ask == 0 {
		return 0
	}
	return ask - bid
}

// TopQuote devuelve la quote implícita por el top del book, con el
// timestamp del venue si el book lo trae.
func (ob OrderBook) TopQuote() Quote {
	return Quote{Instrument: ob.TokenID, Bid: ob.BestBid(), Ask: ob.BestAsk(), ObservedAt: ob.ObservedAt}
}

// SizingResult es el tamaño máximo ejecutable propuesto para un trade,
// acotado por la liquidez visible dentro de la banda de slippage.
type SizingResult struct {
	Shares    float64
	Notional  float64 // USDC
	FillPrice float64 // VWAP sobre Shares — el precio de fill paper
	BestPrice float64
	BandLimit float64
}

// MaxTradeSize recorre el lado relevante del book y devuelve el mayor tamaño
// que respeta las tres cotas:
//   - banda de slippage: solo niveles cuyo precio se desvía del best menos de
//     slippageCap (fracción del best price)
//   - maxFraction × el notional visible dentro de la banda
//   - hardCapUSDC de notional absoluto
//
// El fill paper se asume al VWAP sobre el tamaño devuelto, no al mid.
// Devuelve resultado cero si el lado está vacío (book demasiado fino).
func (ob OrderBook) MaxTradeSize(side TradeSide, slippageCap, maxFraction, hardCapUSDC float64) SizingResult {
	var levels []BookEntry
	var limit float64

	switch side {
	case TradeBuy:
		if len(ob.Asks) == 0 || ob.Asks[0].Price <= 0 {
			return SizingResult{}
		}
		best := ob.Asks[0].Price
		limit = best * (1 + slippageCap)
		for _, lv := range ob.Asks {
			if lv.Price > limit {
				break
			}
			levels = append(levels, lv)
		}
		return sizeWithin(levels, best, limit, maxFraction, hardCapUSDC)
	case TradeSell:
		if len(ob.Bids) == 0 || ob.Bids[0].Price <= 0 {
			return SizingResult{}
		}
		best := ob.Bids[0].Price
		limit = best * (1 - slippageCap)
		for _, lv := range ob.Bids {
			if lv.Price < limit {
				break
			}
			levels = append(levels, lv)
		}
		return sizeWithin(levels, best, limit, maxFraction, hardCapUSDC)
	}
	return SizingResult{}
}

// sizeWithin acumula niveles dentro de la banda hasta agotar el notional
// permitido, partiendo el último nivel si hace falta.
func sizeWithin(levels []BookEntry, best, limit, maxFraction, hardCapUSDC float64) SizingResult {
	var bandNotional float64
	for _, lv := range levels {
		bandNotional += lv.Price * lv.Size
	}

	capNotional := bandNotional * maxFraction
	if hardCapUSDC > 0 && hardCapUSDC < capNotional {
		capNotional = hardCapUSDC
	}
	if capNotional <= 0 {
		return SizingResult{BestPrice: best, BandLimit: limit}
	}

	var shares, notional float64
	for _, lv := range levels {
		levelNotional := lv.Price * lv.Size
		if notional+levelNotional <= capNotional {
			shares += lv.Size
			notional += levelNotional
			continue
		}
		remaining := capNotional - notional
		if remaining > 0 && lv.Price > 0 {
			shares += remaining / lv.Price
			notional = capNotional
		}
		break
	}

	if shares <= 0 {
		return SizingResult{BestPrice: best, BandLimit: limit}
	}
	return SizingResult{
		Shares:    shares,
		Notional:  notional,
		FillPrice: notional / shares,
		BestPrice: best,
		BandLimit: limit,
	}
}

// VWAPForShares devuelve el VWAP de ejecutar shares contra el lado dado,
// usando solo niveles dentro de la banda de slippage. ok=false si la
// liquidez en banda no cubre el tamaño pedido.
func (ob OrderBook) VWAPForShares(side TradeSide, shares, slippageCap float64) (float64, bool) {
	if shares <= 0 {
		return 0, false
	}

	var levels []BookEntry
	switch side {
	case TradeBuy:
		if len(ob.Asks) == 0 || ob.Asks[0].Price <= 0 {
			return 0, false
		}
		limit := ob.Asks[0].Price * (1 + slippageCap)
		for _, lv := range ob.Asks {
			if lv.Price > limit {
				break
			}
			levels = append(levels, lv)
		}
	case TradeSell:
		if len(ob.Bids) == 0 || ob.Bids[0].Price <= 0 {
			return 0, false
		}
		limit := ob.Bids[0].Price * (1 - slippageCap)
		for _, lv := range ob.Bids {
			if lv.Price < limit {
				break
			}
			levels = append(levels, lv)
		}
	default:
		return 0, false
	}

	remaining := shares
	var notional float64
	for _, lv := range levels {
		take := lv.Size
		if take > remaining {
			take = remaining
		}
		notional += take * lv.Price
		remaining -= take
		if remaining <= 0 {
			return notional / shares, true
		}
	}
	return 0, false
}

// ParsePrice convierte un campo decimal de la API (precio o tamaño) a
// float64. Devuelve 0 si el string no es un número.
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
