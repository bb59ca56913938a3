package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cards (
	id TEXT PRIMARY KEY,
	display_name TEXT NOT NULL,
	visual_key TEXT NOT NULL DEFAULT '',
	audio_key TEXT NOT NULL DEFAULT '',
	caption_key TEXT NOT NULL DEFAULT '',
	force_visual_muted INTEGER,
	created_by TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_created_at ON cards(created_at);
`

// OpenSQLite 打开 SQLite 数据库并创建表结构，path 为 ":memory:" 时使用内存库
func OpenSQLite(path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// 内存库每个连接都是独立的数据库
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := EnsureSQLiteSchema(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// EnsureSQLiteSchema 创建贺卡表
func EnsureSQLiteSchema(conn *sql.DB) error {
	if _, err := conn.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return nil
}
