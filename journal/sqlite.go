package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the file-backed journal implementation.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the journal database at path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (j *SQLite) AddTrade(t TradeRecord) error {
	if t.OpenedAt.IsZero() {
		t.OpenedAt = time.Now().UTC()
	}
	_, err := j.db.Exec(`
		INSERT INTO trades
		(order_id, symbol, side, qty, entry_price, exit_price, pnl, leverage, virtual, status, reason, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.OrderID, t.Symbol, t.Side, t.Qty, t.EntryPrice,
		nullFloat(t.ExitPrice, t.Status == "closed"),
		nullFloat(t.Pnl, t.Status == "closed"),
		t.Leverage, t.Virtual, t.Status, t.Reason, t.OpenedAt,
		nullTime(t.ClosedAt),
	)
	return err
}

func (j *SQLite) AddSignal(s SignalRecord) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := j.db.Exec(`
		INSERT INTO signals
		(symbol, interval, side, score, entry, take_profit, stop_loss, leverage, strategy, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.Symbol, s.Interval, s.Side, s.Score, s.Entry, s.TakeProfit, s.StopLoss, s.Leverage, s.Strategy, s.CreatedAt,
	)
	return err
}

func (j *SQLite) CloseTrade(orderID string, exitPrice, pnl float64, reason string) error {
	res, err := j.db.Exec(`
		UPDATE trades
		SET status = 'closed', exit_price = ?, pnl = ?, reason = ?, closed_at = ?
		WHERE order_id = ? AND status = 'open'`,
		exitPrice, pnl, reason, time.Now().UTC(), orderID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("open trade %q not found", orderID)
	}
	return nil
}

func (j *SQLite) OpenTrades() ([]TradeRecord, error) {
	return j.Trades(TradeFilter{Status: "open"})
}

func (j *SQLite) Trades(f TradeFilter) ([]TradeRecord, error) {
	query := `
		SELECT order_id, symbol, side, qty, entry_price,
		       COALESCE(exit_price, 0), COALESCE(pnl, 0), leverage, virtual,
		       status, COALESCE(reason, ''), opened_at, COALESCE(closed_at, opened_at)
		FROM trades WHERE 1=1`
	var args []any
	if f.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, f.Symbol)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	query += " ORDER BY opened_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := j.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var rec TradeRecord
		if err := rows.Scan(
			&rec.OrderID, &rec.Symbol, &rec.Side, &rec.Qty, &rec.EntryPrice,
			&rec.ExitPrice, &rec.Pnl, &rec.Leverage, &rec.Virtual,
			&rec.Status, &rec.Reason, &rec.OpenedAt, &rec.ClosedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullFloat(v float64, valid bool) any {
	if !valid {
		return nil
	}
	return v
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
