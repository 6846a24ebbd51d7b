// Package persistence stores trades, account snapshots, and positions in
// SQLite. Grounded on original_source/aegisquant-core/src/persistence.rs for
// the schema and session_date scoping, and on
// _examples/stadam23-Eve-flipper/internal/db/db.go for the
// database/sql + modernc.org/sqlite wiring (WAL pragma, busy timeout,
// Open/Ping/create-schema shape) — this package does without Eve-flipper's
// numbered-migration ladder since there is only ever one schema version
// here, but keeps its CREATE-TABLE-IF-NOT-EXISTS idiom.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"aegisgo/internal/precision"
	"aegisgo/pkg/types"
)

// TradeRecord mirrors TradeRecord in persistence.rs.
type TradeRecord struct {
	Timestamp int64
	Symbol    string
	Direction int
	Quantity  float64
	Price     float64
	PnL       float64
}

// AccountSnapshot stores balance/equity as decimal strings, matching the
// original's rust_decimal::Decimal-typed fields, via
// internal/precision.AccountBalance's exact round trip.
type AccountSnapshot struct {
	Timestamp     int64
	Balance       precision.AccountBalance
	Equity        precision.AccountBalance
	PositionCount int32
}

type PositionRecord struct {
	Symbol        string
	Quantity      float64
	AveragePrice  float64
	UnrealizedPnL float64
}

// RecoveredState is everything recover_state in persistence.rs returns.
type RecoveredState struct {
	Snapshot  *AccountSnapshot
	Positions []PositionRecord
	Trades    []TradeRecord
}

// Store wraps a SQLite connection for one backtest session.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures its schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenInMemory opens a scratch in-memory database, for tests and other
// callers that don't need a durable session file.
func OpenInMemory() (*Store, error) {
	return Open(":memory:")
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			symbol TEXT NOT NULL,
			direction INTEGER NOT NULL,
			quantity REAL NOT NULL,
			price REAL NOT NULL,
			pnl REAL,
			session_date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS account_snapshots (
			id INTEGER PRIMARY KEY,
			timestamp INTEGER NOT NULL,
			balance TEXT NOT NULL,
			equity TEXT NOT NULL,
			position_count INTEGER NOT NULL,
			session_date TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id INTEGER PRIMARY KEY,
			symbol TEXT NOT NULL UNIQUE,
			quantity REAL NOT NULL,
			average_price REAL NOT NULL,
			unrealized_pnl REAL NOT NULL,
			session_date TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_session ON trades(session_date)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_session ON account_snapshots(session_date)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (s *Store) SaveTrade(trade TradeRecord, sessionDate string) error {
	_, err := s.db.Exec(
		`INSERT INTO trades (timestamp, symbol, direction, quantity, price, pnl, session_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		trade.Timestamp, trade.Symbol, trade.Direction, trade.Quantity, trade.Price, trade.PnL, sessionDate,
	)
	if err != nil {
		return fmt.Errorf("save trade: %w", err)
	}
	return nil
}

func (s *Store) SaveAccountSnapshot(snap AccountSnapshot, sessionDate string) error {
	_, err := s.db.Exec(
		`INSERT INTO account_snapshots (timestamp, balance, equity, position_count, session_date)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.Timestamp, snap.Balance.String(), snap.Equity.String(), snap.PositionCount, sessionDate,
	)
	if err != nil {
		return fmt.Errorf("save account snapshot: %w", err)
	}
	return nil
}

func (s *Store) SavePosition(pos PositionRecord, sessionDate string) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO positions (symbol, quantity, average_price, unrealized_pnl, session_date)
		 VALUES (?, ?, ?, ?, ?)`,
		pos.Symbol, pos.Quantity, pos.AveragePrice, pos.UnrealizedPnL, sessionDate,
	)
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	return nil
}

// SavePositionStruct adapts a types.Position for persistence.
func (s *Store) SavePositionStruct(pos types.Position, sessionDate string) error {
	return s.SavePosition(PositionRecord{
		Symbol:        pos.Symbol,
		Quantity:      pos.Quantity,
		AveragePrice:  pos.AveragePrice,
		UnrealizedPnL: pos.UnrealizedPnL,
	}, sessionDate)
}

// RecoverState loads the latest snapshot, current positions, and the full
// trade history for sessionDate.
func (s *Store) RecoverState(sessionDate string) (RecoveredState, error) {
	snapshot, err := s.recoverLatestSnapshot(sessionDate)
	if err != nil {
		return RecoveredState{}, err
	}
	positions, err := s.recoverPositions(sessionDate)
	if err != nil {
		return RecoveredState{}, err
	}
	trades, err := s.GetTrades(sessionDate)
	if err != nil {
		return RecoveredState{}, err
	}
	return RecoveredState{Snapshot: snapshot, Positions: positions, Trades: trades}, nil
}

func (s *Store) recoverLatestSnapshot(sessionDate string) (*AccountSnapshot, error) {
	row := s.db.QueryRow(
		`SELECT timestamp, balance, equity, position_count FROM account_snapshots
		 WHERE session_date = ? ORDER BY timestamp DESC LIMIT 1`,
		sessionDate,
	)

	var snap AccountSnapshot
	var balanceStr, equityStr string
	err := row.Scan(&snap.Timestamp, &balanceStr, &equityStr, &snap.PositionCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}

	snap.Balance = precision.ParseAccountBalance(balanceStr)
	snap.Equity = precision.ParseAccountBalance(equityStr)
	return &snap, nil
}

func (s *Store) recoverPositions(sessionDate string) ([]PositionRecord, error) {
	rows, err := s.db.Query(
		`SELECT symbol, quantity, average_price, unrealized_pnl FROM positions WHERE session_date = ?`,
		sessionDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query positions: %w", err)
	}
	defer rows.Close()

	var out []PositionRecord
	for rows.Next() {
		var p PositionRecord
		if err := rows.Scan(&p.Symbol, &p.Quantity, &p.AveragePrice, &p.UnrealizedPnL); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetTrades returns every trade for sessionDate, ascending by timestamp.
func (s *Store) GetTrades(sessionDate string) ([]TradeRecord, error) {
	rows, err := s.db.Query(
		`SELECT timestamp, symbol, direction, quantity, price, pnl FROM trades
		 WHERE session_date = ? ORDER BY timestamp`,
		sessionDate,
	)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var pnl sql.NullFloat64
		if err := rows.Scan(&t.Timestamp, &t.Symbol, &t.Direction, &t.Quantity, &t.Price, &pnl); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.PnL = pnl.Float64
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTradeCount(sessionDate string) (int64, error) {
	var count int64
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trades WHERE session_date = ?`, sessionDate).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count trades: %w", err)
	}
	return count, nil
}

// ClearSession deletes all rows for sessionDate, for test isolation.
func (s *Store) ClearSession(sessionDate string) error {
	for _, table := range []string{"trades", "account_snapshots", "positions"} {
		if _, err := s.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE session_date = ?`, table), sessionDate); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
