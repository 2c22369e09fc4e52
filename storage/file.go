package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/parquet-go/parquet-go"

	"tidbyt.dev/nexusmap/model"
)

// Key/value metadata entries naming the datasets in a cache file. The
// value is the time the dataset was written.
const datasetMetadataPrefix = "nexusmap.dataset."

// FileStorage keeps all datasets in a single zstd compressed parquet
// file, one row per record. Dataset membership and write times live
// in the file's key/value metadata, so empty datasets survive too.
type FileStorage struct {
	Path string

	mutex sync.Mutex
}

type cacheRow struct {
	Key         string `parquet:"key,dict"`
	Time        string `parquet:"time"`
	Section     string `parquet:"section,dict"`
	Source      string `parquet:"source,dict"`
	Destination string `parquet:"destination,dict"`
}

type fileDataset struct {
	WrittenAt time.Time
	Rows      []cacheRow
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{Path: path}
}

func (f *FileStorage) LoadRecords(key string) ([]model.Record, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	datasets, err := f.load()
	if err != nil {
		return nil, err
	}

	ds, found := datasets[key]
	if !found {
		return nil, fmt.Errorf("key '%s': %w", key, ErrCacheMiss)
	}

	records := make([]model.Record, 0, len(ds.Rows))
	for i, row := range ds.Rows {
		t, err := time.Parse(timeLayout, row.Time)
		if err != nil {
			return nil, fmt.Errorf("parsing time (row %d): %v: %w", i+1, err, ErrCacheMiss)
		}
		records = append(records, model.Record{
			Time:        t,
			Section:     row.Section,
			Source:      row.Source,
			Destination: row.Destination,
		})
	}

	return records, nil
}

func (f *FileStorage) WriteRecords(key string, records []model.Record) error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	// Other datasets are kept if the existing file is readable.
	datasets, err := f.load()
	if err != nil {
		datasets = map[string]*fileDataset{}
	}

	ds := &fileDataset{
		WrittenAt: time.Now().UTC(),
		Rows:      make([]cacheRow, 0, len(records)),
	}
	for _, r := range records {
		ds.Rows = append(ds.Rows, cacheRow{
			Key:         key,
			Time:        r.Time.Format(timeLayout),
			Section:     r.Section,
			Source:      r.Source,
			Destination: r.Destination,
		})
	}
	datasets[key] = ds

	return f.save(datasets)
}

func (f *FileStorage) Dataset(key string) (*Dataset, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	datasets, err := f.load()
	if err != nil {
		return nil, err
	}

	ds, found := datasets[key]
	if !found {
		return nil, fmt.Errorf("key '%s': %w", key, ErrCacheMiss)
	}
	return &Dataset{Key: key, WrittenAt: ds.WrittenAt, Count: len(ds.Rows)}, nil
}

func (f *FileStorage) Close() error {
	return nil
}

// Any failure to read the file is reported as a cache miss.
func (f *FileStorage) load() (map[string]*fileDataset, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("opening: %v: %w", err, ErrCacheMiss)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat: %v: %w", err, ErrCacheMiss)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("opening parquet: %v: %w", err, ErrCacheMiss)
	}

	datasets := map[string]*fileDataset{}
	for _, kv := range pf.Metadata().KeyValueMetadata {
		key, found := strings.CutPrefix(kv.Key, datasetMetadataPrefix)
		if !found {
			continue
		}
		writtenAt, err := time.Parse(timeLayout, kv.Value)
		if err != nil {
			return nil, fmt.Errorf("dataset '%s': %v: %w", key, err, ErrCacheMiss)
		}
		datasets[key] = &fileDataset{WrittenAt: writtenAt}
	}

	rows, err := parquet.Read[cacheRow](file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("reading rows: %v: %w", err, ErrCacheMiss)
	}
	for _, row := range rows {
		ds, found := datasets[row.Key]
		if !found {
			return nil, fmt.Errorf("rows for unknown dataset '%s': %w", row.Key, ErrCacheMiss)
		}
		ds.Rows = append(ds.Rows, row)
	}

	return datasets, nil
}

// Written to a temporary file and renamed into place, so readers
// never observe a partial cache.
func (f *FileStorage) save(datasets map[string]*fileDataset) error {
	dir := filepath.Dir(f.Path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.Path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name())

	keys := make([]string, 0, len(datasets))
	for key := range datasets {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	options := []parquet.WriterOption{parquet.Compression(&parquet.Zstd)}
	rows := []cacheRow{}
	for _, key := range keys {
		ds := datasets[key]
		options = append(options, parquet.KeyValueMetadata(
			datasetMetadataPrefix+key,
			ds.WrittenAt.Format(timeLayout),
		))
		rows = append(rows, ds.Rows...)
	}

	err = parquet.Write(tmp, rows, options...)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("encoding: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing: %w", err)
	}

	err = os.Rename(tmp.Name(), f.Path)
	if err != nil {
		return fmt.Errorf("writing: %w", err)
	}

	return nil
}
