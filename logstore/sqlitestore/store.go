// Package sqlitestore provides a LogStore backed by a SQLite database
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/relex/gotils/logger"
	"github.com/relex/slog-shipper/base"
	"github.com/relex/slog-shipper/defs"
	"github.com/vmihailenco/msgpack/v4"
	_ "modernc.org/sqlite"
)

// Store keeps logs of all outputs in one SQLite table, ordered by insertion
type Store struct {
	logger  logger.Logger
	db      *sql.DB
	metrics storeMetrics
}

type storeMetrics struct {
	persistentLogs *prometheus.GaugeVec
	errorsTotal    prometheus.Counter
}

// NewStore opens or creates a database.
// Use ":memory:" for in-memory database, or a file path for persistent storage.
func NewStore(parentLogger logger.Logger, dsn string, metricFactory *base.MetricFactory) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dsn == ":memory:" {
		// each connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
		if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	factory := metricFactory.NewSubFactory("sqlitestore_", nil, nil)
	store := &Store{
		logger: parentLogger.WithField(defs.LabelComponent, "SQLiteStore"),
		db:     db,
		metrics: storeMetrics{
			persistentLogs: factory.AddOrGetGaugeVec("persistent_logs", "Numbers of logs added or recovered in this process and not yet removed", []string{"output"}, nil),
			errorsTotal:    factory.AddOrGetCounter("errors_total", "Numbers of failed database operations", nil, nil),
		},
	}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (store *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS logs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			output_id TEXT NOT NULL,
			log_id TEXT NOT NULL,
			record BLOB NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (output_id, log_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_output_id ON logs(output_id, seq)`,
	}
	for _, m := range migrations {
		if _, err := store.db.Exec(m); err != nil {
			return fmt.Errorf("execute migration: %w", err)
		}
	}
	return nil
}

// Retrieve returns all logs of the output in the order they were added
func (store *Store) Retrieve(ctx context.Context, outputID string) ([]base.LogRecord, error) {
	rows, err := store.db.QueryContext(ctx,
		`SELECT log_id, record FROM logs WHERE output_id = ? ORDER BY seq`, outputID)
	if err != nil {
		store.metrics.errorsTotal.Inc()
		return nil, fmt.Errorf("query logs: %w", err)
	}
	defer rows.Close()

	var logs []base.LogRecord
	for rows.Next() {
		var logID string
		var data []byte
		if err := rows.Scan(&logID, &data); err != nil {
			store.metrics.errorsTotal.Inc()
			return nil, fmt.Errorf("scan log: %w", err)
		}
		var log base.LogRecord
		if err := msgpack.Unmarshal(data, &log); err != nil {
			store.metrics.errorsTotal.Inc()
			store.logger.Errorf("skip undecodable log id=%s output=%s: %s", logID, outputID, err.Error())
			continue
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		store.metrics.errorsTotal.Inc()
		return nil, fmt.Errorf("iterate logs: %w", err)
	}
	store.metrics.persistentLogs.WithLabelValues(outputID).Set(float64(len(logs)))
	return logs, nil
}

// Add inserts a log for the output; adding the same log twice has no effect
func (store *Store) Add(ctx context.Context, outputID string, log base.LogRecord) error {
	data, err := msgpack.Marshal(&log)
	if err != nil {
		return fmt.Errorf("encode log %s: %w", log, err)
	}
	result, err := store.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO logs (output_id, log_id, record) VALUES (?, ?, ?)`,
		outputID, log.ID, data)
	if err != nil {
		store.metrics.errorsTotal.Inc()
		return fmt.Errorf("insert log: %w", err)
	}
	if n, _ := result.RowsAffected(); n > 0 {
		store.metrics.persistentLogs.WithLabelValues(outputID).Inc()
	}
	return nil
}

// Remove deletes the given logs of the output in one transaction
func (store *Store) Remove(ctx context.Context, outputID string, logs []base.LogRecord) error {
	tx, err := store.db.BeginTx(ctx, nil)
	if err != nil {
		store.metrics.errorsTotal.Inc()
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `DELETE FROM logs WHERE output_id = ? AND log_id = ?`)
	if err != nil {
		store.metrics.errorsTotal.Inc()
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	var numDeleted int64
	for _, log := range logs {
		result, err := stmt.ExecContext(ctx, outputID, log.ID)
		if err != nil {
			store.metrics.errorsTotal.Inc()
			return fmt.Errorf("delete log %s: %w", log.ID, err)
		}
		n, _ := result.RowsAffected()
		numDeleted += n
	}
	if err := tx.Commit(); err != nil {
		store.metrics.errorsTotal.Inc()
		return fmt.Errorf("commit: %w", err)
	}
	store.metrics.persistentLogs.WithLabelValues(outputID).Sub(float64(numDeleted))
	return nil
}

// Close closes the database
func (store *Store) Close() error {
	return store.db.Close()
}
