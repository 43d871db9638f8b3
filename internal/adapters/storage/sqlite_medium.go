// Package storage provides the local persistence medium: a synchronous
// key-value table in a sqlite file shared by every process of the same user,
// plus the file watcher that keeps concurrent processes coherent.
package storage

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nexusplan/core/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS kv_meta (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	writer_id TEXT NOT NULL,
	last_key  TEXT NOT NULL,
	seq       INTEGER NOT NULL
);`

// SQLiteMedium implements ports.Medium on a sqlite file. Every Set records
// this process's writer id and the written key in kv_meta so concurrent
// processes watching the file can tell their own writes from foreign ones.
type SQLiteMedium struct {
	db       *sqlx.DB
	path     string
	writerID string
}

// NewSQLiteMedium opens (creating if needed) the medium at path. writerID
// uniquely identifies this process among all processes sharing the file.
func NewSQLiteMedium(path, writerID string) (*SQLiteMedium, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}

	// sqlite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY between our own goroutines.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize local store schema: %w", err)
	}

	return &SQLiteMedium{db: db, path: path, writerID: writerID}, nil
}

// Path returns the backing file path, watched by the cross-process watcher.
func (m *SQLiteMedium) Path() string {
	return m.path
}

func (m *SQLiteMedium) Get(key string) (string, bool, error) {
	var value string
	err := m.db.Get(&value, `SELECT value FROM kv WHERE key = ?`, key)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

func (m *SQLiteMedium) Set(key, value string) error {
	tx, err := m.db.Beginx()
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}

	_, err = tx.Exec(`
		INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("set %s: %w", key, err)
	}

	_, err = tx.Exec(`
		INSERT INTO kv_meta (id, writer_id, last_key, seq) VALUES (1, ?, ?, 1)
		ON CONFLICT(id) DO UPDATE SET
			writer_id = excluded.writer_id,
			last_key  = excluded.last_key,
			seq       = kv_meta.seq + 1`,
		m.writerID, key)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("set %s: %w", key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (m *SQLiteMedium) Delete(key string) error {
	if _, err := m.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (m *SQLiteMedium) LastWrite() (string, string, error) {
	var row struct {
		WriterID string `db:"writer_id"`
		LastKey  string `db:"last_key"`
	}
	err := m.db.Get(&row, `SELECT writer_id, last_key FROM kv_meta WHERE id = 1`)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("last write: %w", err)
	}
	return row.WriterID, row.LastKey, nil
}

func (m *SQLiteMedium) Close() error {
	return m.db.Close()
}

var _ ports.Medium = (*SQLiteMedium)(nil)
