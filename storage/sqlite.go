package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tidbyt.dev/nexusmap/model"
)

type SQLiteConfig struct {
	OnDisk    bool
	Directory string
}

type SQLiteStorage struct {
	SQLiteConfig

	db *sql.DB
}

func NewSQLiteStorage(cfg ...SQLiteConfig) (*SQLiteStorage, error) {
	onDisk := false
	directory := ""
	if len(cfg) > 0 {
		onDisk = cfg[0].OnDisk
		directory = cfg[0].Directory
	}

	sourceName := ":memory:"
	if onDisk {
		if err := os.MkdirAll(directory, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", directory, err)
		}
		sourceName = filepath.Join(directory, "nexus.db")
	}

	db, err := sql.Open("sqlite3", sourceName)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// A :memory: database lives and dies with its connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS dataset (
    key TEXT NOT NULL,
    written_at TEXT NOT NULL,
    count INTEGER NOT NULL,
PRIMARY KEY (key)
);

CREATE TABLE IF NOT EXISTS record (
    key TEXT NOT NULL,
    seq INTEGER NOT NULL,
    time TEXT NOT NULL,
    section TEXT NOT NULL,
    source TEXT NOT NULL,
    destination TEXT NOT NULL,
PRIMARY KEY (key, seq)
);`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tables: %w", err)
	}

	return &SQLiteStorage{
		SQLiteConfig: SQLiteConfig{
			OnDisk:    onDisk,
			Directory: directory,
		},
		db: db,
	}, nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) Dataset(key string) (*Dataset, error) {
	row := s.db.QueryRow(`SELECT written_at, count FROM dataset WHERE key = ?`, key)

	var writtenAt string
	ds := &Dataset{Key: key}
	err := row.Scan(&writtenAt, &ds.Count)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("key '%s': %w", key, ErrCacheMiss)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning dataset: %w", err)
	}

	ds.WrittenAt, err = time.Parse(timeLayout, writtenAt)
	if err != nil {
		return nil, fmt.Errorf("parsing written_at: %w", err)
	}

	return ds, nil
}

func (s *SQLiteStorage) LoadRecords(key string) ([]model.Record, error) {
	ds, err := s.Dataset(key)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
SELECT time, section, source, destination
FROM record
WHERE key = ?
ORDER BY seq`, key)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := make([]model.Record, 0, ds.Count)
	for rows.Next() {
		var t string
		var r model.Record
		err := rows.Scan(&t, &r.Section, &r.Source, &r.Destination)
		if err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		r.Time, err = time.Parse(timeLayout, t)
		if err != nil {
			return nil, fmt.Errorf("parsing time '%s': %v: %w", t, err, ErrCacheMiss)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	if len(records) != ds.Count {
		return nil, fmt.Errorf("key '%s' holds %d records, expected %d: %w", key, len(records), ds.Count, ErrCacheMiss)
	}

	return records, nil
}

func (s *SQLiteStorage) WriteRecords(key string, records []model.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM record WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	stmt, err := tx.Prepare(`
INSERT INTO record (key, seq, time, section, source, destination)
VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range records {
		_, err = stmt.Exec(key, i, r.Time.Format(timeLayout), r.Section, r.Source, r.Destination)
		if err != nil {
			return fmt.Errorf("inserting record (row %d): %w", i+1, err)
		}
	}

	_, err = tx.Exec(`
INSERT INTO dataset (key, written_at, count)
VALUES (?, ?, ?)
ON CONFLICT (key) DO UPDATE SET
    written_at = excluded.written_at,
    count = excluded.count`,
		key,
		time.Now().UTC().Format(timeLayout),
		len(records),
	)
	if err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	return nil
}
