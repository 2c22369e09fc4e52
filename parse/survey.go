package parse

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"tidbyt.dev/nexusmap/model"
)

const (
	ColumnTime    = "Time"
	ColumnOnOff   = "OnOff"
	ColumnSection = "section_id"

	DefaultSparseThreshold = 0.95
)

var (
	ErrSchema = errors.New("unexpected survey schema")
	ErrOnOff  = errors.New("malformed OnOff value")
)

// Layouts accepted in the Time column, tried in order. Numeric values
// are taken as spreadsheet date serials.
var TimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"15:04:05",
	"15:04",
}

type SurveyStats struct {
	Files          []string
	Rows           int
	Kept           int
	Dropped        int
	Unnamed        int
	DroppedColumns []string
}

// Parses all survey extracts in dir whose file name starts with
// prefix. Both .csv and .xlsx extracts are supported.
func ParseSurvey(dir string, prefix string, threshold float64) ([]model.Record, *SurveyStats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	stats := &SurveyStats{}
	sheets := []*Sheet{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		sheet, err := readSheetFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		stats.Files = append(stats.Files, entry.Name())
		sheets = append(sheets, sheet)
	}

	records, sheetStats, err := ParseSheet(Concat(sheets), threshold)
	if err != nil {
		return nil, nil, err
	}

	stats.Rows = sheetStats.Rows
	stats.Kept = sheetStats.Kept
	stats.Dropped = sheetStats.Dropped
	stats.Unnamed = sheetStats.Unnamed
	stats.DroppedColumns = sheetStats.DroppedColumns

	return records, stats, nil
}

func readSheetFile(path string) (*Sheet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := filepath.Base(path)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ReadCSVSheet(name, f)
	case ".xlsx", ".xlsm":
		return ReadXLSXSheet(name, f)
	}
	return nil, fmt.Errorf("unsupported extract format '%s'", filepath.Ext(path))
}

// Turns a combined survey sheet into records. Sparse columns are
// dropped first; rows lacking Time or OnOff are then dropped. An OnOff
// value without both a boarding and an alighting segment is an error.
// Records whose station names come out empty are kept and counted as
// Unnamed.
func ParseSheet(sheet *Sheet, threshold float64) ([]model.Record, *SurveyStats, error) {
	stats := &SurveyStats{Rows: len(sheet.Rows)}
	records := []model.Record{}

	// No rows at all is an empty survey, not a schema problem.
	if len(sheet.Rows) == 0 {
		return records, stats, nil
	}

	stats.DroppedColumns = DropSparseColumns(sheet, threshold)

	for _, required := range []string{ColumnTime, ColumnOnOff} {
		if !sheet.HasColumn(required) {
			return nil, nil, errors.Wrapf(ErrSchema, "missing column '%s'", required)
		}
	}

	for i, row := range sheet.Rows {
		if row[ColumnTime] == "" || row[ColumnOnOff] == "" {
			stats.Dropped++
			continue
		}

		t, err := ParseTime(row[ColumnTime])
		if err != nil {
			return nil, nil, errors.Wrapf(err, "parsing %s (row %d)", ColumnTime, i+1)
		}

		onOff := row[ColumnOnOff]
		if !strings.Contains(onOff, "|") {
			return nil, nil, errors.Wrapf(ErrOnOff, "row %d: '%s'", i+1, onOff)
		}

		r := model.Record{
			Time:        t,
			Section:     row[ColumnSection],
			Source:      Convert(onOff, 2),
			Destination: Convert(onOff, 1),
		}
		if r.Source == "" || r.Destination == "" {
			stats.Unnamed++
		}
		records = append(records, r)
	}

	stats.Kept = len(records)

	return records, stats, nil
}

func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range TimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, errors.Wrapf(err, "converting serial '%s'", s)
		}
		return t, nil
	}

	return time.Time{}, fmt.Errorf("unrecognized timestamp '%s'", s)
}
