package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists historical data to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			boundary    INTEGER NOT NULL,
			symbol      TEXT,
			decision    TEXT,
			model       TEXT,
			close       REAL,
			order_count INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_ts ON cycles(timestamp)`,

		`CREATE TABLE IF NOT EXISTS orders (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			client_id   TEXT,
			exchange_id TEXT,
			symbol      TEXT,
			side        TEXT,
			quantity    TEXT,
			status      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_ts ON orders(timestamp)`,

		`CREATE TABLE IF NOT EXISTS retrain_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			outcome     TEXT,
			version     INTEGER,
			samples     INTEGER,
			duration_ms INTEGER,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_retrain_ts ON retrain_events(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordCycle(rec *CycleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO cycles (timestamp, boundary, symbol, decision, model, close, order_count, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), rec.Boundary.Unix(), rec.Symbol, string(rec.Decision),
		rec.ModelName, rec.Close, rec.OrderCount, rec.Err,
	)
	return err
}

func (r *SQLiteRecorder) RecordOrder(rec *OrderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO orders (timestamp, client_id, exchange_id, symbol, side, quantity, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), rec.ClientID, rec.ExchangeID, rec.Symbol,
		string(rec.Side), rec.Quantity, string(rec.Status),
	)
	return err
}

func (r *SQLiteRecorder) RecordRetrain(rec *RetrainRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.db.Exec(
		`INSERT INTO retrain_events (timestamp, outcome, version, samples, duration_ms, error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		time.Now().Unix(), rec.Outcome, rec.Version, rec.Samples,
		rec.Duration.Milliseconds(), rec.Err,
	)
	return err
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
