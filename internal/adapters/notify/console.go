package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/larsw/pmedge/internal/domain"
)

// Console implementa ports.Notifier escribiendo el estado de cada tick.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyTick imprime el snapshot en el modo configurado.
func (c *Console) NotifyTick(_ context.Context, snap domain.TickSnapshot) error {
	if c.table {
		c.printFull(snap)
	} else {
		c.printCompact(snap)
	}
	return nil
}

// printCompact imprime lo esencial en una línea por tick.
func (c *Console) printCompact(snap domain.TickSnapshot) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] eq $%.2f cash $%.2f rPnL %+.2f uPnL %+.2f pos:%d",
		snap.At.Format("15:04:05"), snap.Equity, snap.Cash, snap.Realized, snap.Unrealized, len(snap.Positions))

	for _, t := range snap.NewTrades {
		fmt.Fprintf(&sb, " | %s %s %.1f@%.3f", t.Action, compactName(marketLabel(t.Market), 20), t.Shares, t.Price)
	}

	shown := 0
	for _, m := range snap.Markets {
		if m.Decision.Action != domain.ActionSuppress || shown >= 3 {
			continue
		}
		fmt.Fprintf(&sb, " | %s:%s", compactName(marketLabel(m.Market), 14), m.Decision.Reason)
		shown++
	}

	fmt.Fprintln(c.out, sb.String())
}

// printFull imprime tablas de mercados y posiciones.
func (c *Console) printFull(snap domain.TickSnapshot) {
	fmt.Fprintf(c.out, "\n[%s] equity $%.2f — cash $%.2f, realized %+.2f, unrealized %+.2f\n",
		snap.At.Format("15:04:05"), snap.Equity, snap.Cash, snap.Realized, snap.Unrealized)

	c.printMarkets(snap.Markets)
	if len(snap.Positions) > 0 {
		c.printPositions(snap.Positions, snap.At)
	}
	for _, t := range snap.NewTrades {
		fmt.Fprintf(c.out, "  → %s %s %.1f @ %.3f", t.Action, marketLabel(t.Market), t.Shares, t.Price)
		if t.Action == domain.TradeExit {
			fmt.Fprintf(c.out, " (pnl %+.2f, %s)", t.RealizedPnL, t.Reason)
		}
		fmt.Fprintln(c.out)
	}
}

func (c *Console) printMarkets(markets []domain.MarketStatus) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Market", "Side", "State", "Action", "Reason", "Edge%", "Mid")

	for _, m := range markets {
		reason := string(m.Decision.Reason)
		if reason == "" {
			reason = "-"
		}
		table.Append(
			compactName(marketLabel(m.Market), 28),
			string(m.Market.Side),
			string(m.State),
			string(m.Decision.Action),
			reason,
			fmt.Sprintf("%+.2f", m.Decision.Reading.EdgePct),
			fmt.Sprintf("%.3f", m.Decision.Reading.PmMid),
		)
	}
	table.Render()
}

func (c *Console) printPositions(positions []domain.Position, now time.Time) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Position", "Shares", "AvgEntry", "Mark", "uPnL", "Adds", "Held")

	for _, p := range positions {
		table.Append(
			compactName(marketLabel(p.Market), 28),
			fmt.Sprintf("%.1f", p.Shares),
			fmt.Sprintf("%.3f", p.AvgEntry),
			fmt.Sprintf("%.3f", p.LastMark),
			fmt.Sprintf("%+.2f", p.UnrealizedPnL()),
			fmt.Sprintf("%d", p.Adds),
			p.HoldDuration(now).Round(time.Second).String(),
		)
	}
	table.Render()
}

// PrintSummary imprime el resumen final de la sesión al cerrar.
func (c *Console) PrintSummary(ledger *domain.Ledger, now time.Time) {
	trades := ledger.Trades()
	exits, wins := 0, 0
	for _, t := range trades {
		if t.Action != domain.TradeExit {
			continue
		}
		exits++
		if t.RealizedPnL > 0 {
			wins++
		}
	}

	fmt.Fprintf(c.out, "\n=== resumen de sesión ===\n")
	fmt.Fprintf(c.out, "balance inicial $%.2f → equity $%.2f (cash $%.2f)\n",
		ledger.StartingBalance(), ledger.Equity(), ledger.Cash())
	fmt.Fprintf(c.out, "realized %+.2f, unrealized %+.2f, trades %d (exits %d, winners %d)\n",
		ledger.RealizedPnL(), ledger.UnrealizedPnL(), len(trades), exits, wins)

	if open := ledger.OpenPositions(); len(open) > 0 {
		fmt.Fprintf(c.out, "posiciones abiertas:\n")
		c.printPositions(open, now)
	}
}

// marketLabel prefiere el nombre legible y cae al token id.
func marketLabel(m domain.MarketRef) string {
	if m.Name != "" {
		return m.Name
	}
	return m.TokenID
}

// compactName recorta a n caracteres con elipsis.
func compactName(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
