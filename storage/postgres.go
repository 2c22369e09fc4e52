package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"tidbyt.dev/nexusmap/model"
)

const (
	PSQLRecordBatchSize = 5000
)

type PSQLStorage struct {
	db *sql.DB
}

// Creates a new Postgres Storage using the provided connection string.
//
// If clearDB is true, the database will be cleared on startup. You
// probably only want this for testing.
func NewPSQLStorage(connStr string, clearDB bool) (*PSQLStorage, error) {

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	if clearDB {
		_, err = db.Exec(`
DROP TABLE IF EXISTS dataset;
DROP TABLE IF EXISTS record;
`)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("clearing db: %w", err)
		}
	}

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS dataset (
    key TEXT NOT NULL,
    written_at TIMESTAMPTZ NOT NULL,
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

	return &PSQLStorage{
		db: db,
	}, nil
}

func (s *PSQLStorage) Close() error {
	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db: %w", err)
	}
	return nil
}

func (s *PSQLStorage) Dataset(key string) (*Dataset, error) {
	row := s.db.QueryRow(`SELECT written_at, count FROM dataset WHERE key = $1`, key)

	ds := &Dataset{Key: key}
	err := row.Scan(&ds.WrittenAt, &ds.Count)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("key '%s': %w", key, ErrCacheMiss)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning dataset: %w", err)
	}

	return ds, nil
}

func (s *PSQLStorage) LoadRecords(key string) ([]model.Record, error) {
	ds, err := s.Dataset(key)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
SELECT time, section, source, destination
FROM record
WHERE key = $1
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

func (s *PSQLStorage) WriteRecords(key string, records []model.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`DELETE FROM record WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	for start := 0; start < len(records); start += PSQLRecordBatchSize {
		end := start + PSQLRecordBatchSize
		if end > len(records) {
			end = len(records)
		}
		err = copyRecords(tx, key, start, records[start:end])
		if err != nil {
			return fmt.Errorf("copying records %d-%d: %w", start, end, err)
		}
	}

	_, err = tx.Exec(`
INSERT INTO dataset (key, written_at, count)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE SET
    written_at = EXCLUDED.written_at,
    count = EXCLUDED.count`,
		key,
		time.Now().UTC(),
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

func copyRecords(tx *sql.Tx, key string, offset int, batch []model.Record) error {
	stmt, err := tx.Prepare(pq.CopyIn(
		"record", "key", "seq", "time", "section", "source", "destination",
	))
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, r := range batch {
		_, err = stmt.Exec(key, offset+i, r.Time.Format(timeLayout), r.Section, r.Source, r.Destination)
		if err != nil {
			return fmt.Errorf("COPY record: %w", err)
		}
	}

	_, err = stmt.Exec()
	if err != nil {
		return fmt.Errorf("executing statement: %w", err)
	}

	return nil
}
