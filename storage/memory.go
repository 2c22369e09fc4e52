package storage

import (
	"fmt"
	"sync"
	"time"

	"tidbyt.dev/nexusmap/model"
)

// In memory implementation of Storage below

type memoryDataset struct {
	records   []model.Record
	writtenAt time.Time
}

type MemoryStorage struct {
	mutex    sync.Mutex
	datasets map[string]memoryDataset

	TimeNow func() time.Time
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		datasets: map[string]memoryDataset{},
		TimeNow:  time.Now,
	}
}

func (s *MemoryStorage) LoadRecords(key string) ([]model.Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ds, found := s.datasets[key]
	if !found {
		return nil, fmt.Errorf("key '%s': %w", key, ErrCacheMiss)
	}

	records := make([]model.Record, len(ds.records))
	copy(records, ds.records)
	return records, nil
}

func (s *MemoryStorage) WriteRecords(key string, records []model.Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored := make([]model.Record, len(records))
	copy(stored, records)
	s.datasets[key] = memoryDataset{
		records:   stored,
		writtenAt: s.TimeNow().UTC(),
	}
	return nil
}

func (s *MemoryStorage) Dataset(key string) (*Dataset, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	ds, found := s.datasets[key]
	if !found {
		return nil, fmt.Errorf("key '%s': %w", key, ErrCacheMiss)
	}
	return &Dataset{Key: key, WrittenAt: ds.writtenAt, Count: len(ds.records)}, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
