// Package db opens the encrypted SQLite database that backs the text store.
//
// The database file is encrypted with SQLCipher; the key is supplied as a
// 64-hex-character string via DSN pragmas. Connections are process-wide and
// safe for concurrent use by database/sql's pooling.
package db

import (
	"database/sql"
	"fmt"
	"sync/atomic"

	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// Schema creates the texts table. Analysis is stored as a JSON blob next to
// the content it was derived from; NULL means analysis has not been computed
// yet for the current content.
const Schema = `
CREATE TABLE IF NOT EXISTS texts (
    id         TEXT PRIMARY KEY,
    owner_id   TEXT NOT NULL,
    content    TEXT NOT NULL,
    analysis   TEXT,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_texts_owner ON texts(owner_id);
`

// Open opens (creating if needed) the encrypted database at path. keyHex is
// the 64-hex-character SQLCipher key.
func Open(path, keyHex string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096&_busy_timeout=5000", path, keyHex)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(10)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("verify database: %w", err)
	}

	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return sqlDB, nil
}

var inMemoryCounter atomic.Int64

// OpenInMemory creates a fresh, isolated in-memory database for tests.
func OpenInMemory() (*sql.DB, error) {
	// Unique name per call so parallel tests never share state.
	name := fmt.Sprintf("texts-test-%d", inMemoryCounter.Add(1))
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open in-memory database: %w", err)
	}

	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(10)

	if err := applyFastPragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("apply fast pragmas: %w", err)
	}

	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("initialize in-memory schema: %w", err)
	}

	return sqlDB, nil
}

func applyFastPragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
