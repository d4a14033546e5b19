package storage

import (
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// CommandUsage はコマンドごとの実行回数です。
type CommandUsage struct {
	Name     string
	Count    int64
	LastUsed time.Time
}

// DBStore はコマンドの利用統計を SQLite に保存します。
type DBStore struct {
	db *sql.DB
	mu sync.RWMutex
}

func NewDBStore(dataSourceName string) (*DBStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	store := &DBStore{db: db}
	if err = store.initTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *DBStore) initTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS command_usage (
			name TEXT PRIMARY KEY,
			count INTEGER NOT NULL DEFAULT 0,
			last_used DATETIME
		);`,
	}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) Close() {
	s.db.Close()
}

func (s *DBStore) PingDB() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Ping()
}

// IncrementCommandUsage はコマンドの実行回数を1増やします。
func (s *DBStore) IncrementCommandUsage(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `INSERT INTO command_usage (name, count, last_used) VALUES (?, 1, ?)
		ON CONFLICT(name) DO UPDATE SET count = count + 1, last_used = excluded.last_used`
	_, err := s.db.Exec(query, name, time.Now().UTC())
	return err
}

// GetCommandUsage は実行回数の多い順にコマンドの利用統計を返します。
func (s *DBStore) GetCommandUsage(limit int) ([]CommandUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT name, count, last_used FROM command_usage ORDER BY count DESC, name ASC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []CommandUsage
	for rows.Next() {
		var u CommandUsage
		var lastUsed sql.NullTime
		if err := rows.Scan(&u.Name, &u.Count, &lastUsed); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			u.LastUsed = lastUsed.Time
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
