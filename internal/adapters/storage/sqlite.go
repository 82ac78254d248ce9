package storage

// sqlite.go — persistencia del trade log y la curva de equity.
//
// El trade log es append-only: junto con el balance inicial reconstruye el
// ledger completo tras un restart, así que nunca se reescribe ni se poda.
// La curva de equity es un punto por tick y sí se poda al arrancar.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/larsw/pmedge/internal/domain"
)

const schema = `
-- Trade log append-only: la fuente de verdad para reconstruir el ledger
CREATE TABLE IF NOT EXISTS trades (
    id            TEXT PRIMARY KEY,
    seq           INTEGER UNIQUE,
    token_id      TEXT NOT NULL,
    market_name   TEXT,
    side          TEXT NOT NULL,
    ref_inst      TEXT,
    sibling_token TEXT,
    grp           TEXT,
    action        TEXT NOT NULL,
    price         REAL NOT NULL,
    shares        REAL NOT NULL,
    realized_pnl  REAL NOT NULL DEFAULT 0,
    reason        TEXT,
    executed_at   TEXT NOT NULL
);

-- Un punto por tick
CREATE TABLE IF NOT EXISTS equity_curve (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    at       TEXT NOT NULL,
    equity   REAL NOT NULL,
    cash     REAL NOT NULL,
    realized REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_seq ON trades(seq);
CREATE INDEX IF NOT EXISTS idx_equity_at  ON equity_curve(at DESC);
`

// Curva de equity: retención de 90 días.
const equityRetention = 90 * 24 * time.Hour

// SQLiteStore implementa ports.TradeStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db  *sql.DB
	seq int64
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada, aplica el
// schema y poda la curva de equity antigua.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}

	var maxSeq sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(seq) FROM trades`).Scan(&maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: read seq: %w", err)
	}
	if maxSeq.Valid {
		s.seq = maxSeq.Int64
	}

	cutoff := time.Now().UTC().Add(-equityRetention).Format(time.RFC3339)
	if _, err := db.Exec(`DELETE FROM equity_curve WHERE at < ?`, cutoff); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: prune equity: %w", err)
	}

	return s, nil
}

// SaveTrade añade un trade al log con el siguiente número de secuencia.
func (s *SQLiteStore) SaveTrade(ctx context.Context, t domain.Trade) error {
	s.seq++
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades
			(id, seq, token_id, market_name, side, ref_inst, sibling_token, grp,
			 action, price, shares, realized_pnl, reason, executed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, s.seq,
		t.Market.TokenID, t.Market.Name, string(t.Market.Side),
		t.Market.RefInstrument, t.Market.SiblingTokenID, t.Market.Group,
		string(t.Action), t.Price, t.Shares, t.RealizedPnL, string(t.Reason),
		t.ExecutedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.seq--
		return fmt.Errorf("storage.SaveTrade %s: %w", t.ID, err)
	}
	return nil
}

// LoadTrades devuelve el trade log completo en orden de ejecución.
func (s *SQLiteStore) LoadTrades(ctx context.Context) ([]domain.Trade, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token_id, market_name, side, ref_inst, sibling_token, grp,
		       action, price, shares, realized_pnl, reason, executed_at
		FROM trades ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadTrades: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			t            domain.Trade
			side, action string
			reason       string
			executedAt   string
		)
		if err := rows.Scan(
			&t.ID, &t.Market.TokenID, &t.Market.Name, &side,
			&t.Market.RefInstrument, &t.Market.SiblingTokenID, &t.Market.Group,
			&action, &t.Price, &t.Shares, &t.RealizedPnL, &reason, &executedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.LoadTrades: scan: %w", err)
		}
		t.Market.Side = domain.Side(side)
		t.Action = domain.TradeAction(action)
		t.Reason = domain.Reason(reason)
		at, err := time.Parse(time.RFC3339Nano, executedAt)
		if err != nil {
			return nil, fmt.Errorf("storage.LoadTrades: parse executed_at %q: %w", executedAt, err)
		}
		t.ExecutedAt = at
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage.LoadTrades: %w", err)
	}
	return trades, nil
}

// SaveEquityPoint registra equity/cash/realized tras un tick.
func (s *SQLiteStore) SaveEquityPoint(ctx context.Context, at time.Time, equity, cash, realized float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO equity_curve (at, equity, cash, realized) VALUES (?, ?, ?, ?)`,
		at.UTC().Format(time.RFC3339), equity, cash, realized,
	)
	if err != nil {
		return fmt.Errorf("storage.SaveEquityPoint: %w", err)
	}
	return nil
}

// EquityPoint es un punto de la curva persistida.
type EquityPoint struct {
	At       time.Time
	Equity   float64
	Cash     float64
	Realized float64
}

// LoadEquityCurve devuelve los últimos n puntos en orden cronológico.
func (s *SQLiteStore) LoadEquityCurve(ctx context.Context, n int) ([]EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT at, equity, cash, realized FROM
			(SELECT at, equity, cash, realized FROM equity_curve ORDER BY id DESC LIMIT ?)
		ORDER BY at ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("storage.LoadEquityCurve: %w", err)
	}
	defer rows.Close()

	var points []EquityPoint
	for rows.Next() {
		var (
			p  EquityPoint
			at string
		)
		if err := rows.Scan(&at, &p.Equity, &p.Cash, &p.Realized); err != nil {
			return nil, fmt.Errorf("storage.LoadEquityCurve: scan: %w", err)
		}
		ts, err := time.Parse(time.RFC3339, at)
		if err != nil {
			return nil, fmt.Errorf("storage.LoadEquityCurve: parse at %q: %w", at, err)
		}
		p.At = ts
		points = append(points, p)
	}
	return points, rows.Err()
}

// Close cierra la conexión limpiamente.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
