package storage

import (
	"errors"
	"time"

	"tidbyt.dev/nexusmap/model"
)

// Key under which parsed survey records are cached by default.
const DefaultKey = "nexus"

// Returned (possibly wrapped) by LoadRecords when the cache has
// nothing usable: the backing file or table is absent, unreadable, or
// holds no dataset under the requested key. Callers recover by
// parsing the raw survey again.
var ErrCacheMiss = errors.New("cache miss")

// Storage caches parsed survey records. Each key holds one complete
// dataset; writing a key replaces whatever was stored under it.
type Storage interface {
	// Retrieves all records stored under key, in the order they
	// were written.
	LoadRecords(key string) ([]model.Record, error)

	// Replaces the dataset stored under key.
	WriteRecords(key string, records []model.Record) error

	// Metadata for the dataset under key.
	Dataset(key string) (*Dataset, error)

	Close() error
}

type Dataset struct {
	Key       string
	WrittenAt time.Time
	Count     int
}

// Times are stored as text in this layout, preserving the wall clock
// hour each record was surveyed at.
const timeLayout = time.RFC3339Nano
