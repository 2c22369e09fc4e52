package parse

import (
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"
	"github.com/xuri/excelize/v2"
)

// A table of raw survey rows, keyed by column header.
type Sheet struct {
	Name    string
	Columns []string
	Rows    []map[string]string
}

func (s *Sheet) HasColumn(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// Reads a CSV survey extract. The first record is the header.
func ReadCSVSheet(name string, data io.Reader) (*Sheet, error) {
	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	records, err := gocsv.LazyCSVReader(bom.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	return buildSheet(name, records), nil
}

// Reads the first worksheet of an XLSX survey extract. Cell values
// are read raw, so date cells come through as spreadsheet serials.
func ReadXLSXSheet(name string, data io.Reader) (*Sheet, error) {
	f, err := excelize.OpenReader(data)
	if err != nil {
		return nil, fmt.Errorf("opening xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no worksheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading worksheet '%s': %w", sheets[0], err)
	}

	return buildSheet(name, rows), nil
}

func buildSheet(name string, records [][]string) *Sheet {
	sheet := &Sheet{Name: name}
	if len(records) == 0 {
		return sheet
	}

	for _, h := range records[0] {
		sheet.Columns = append(sheet.Columns, strings.TrimSpace(h))
	}

	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		// Spreadsheet rows drop trailing empty cells, so short
		// records are padded.
		row := make(map[string]string, len(sheet.Columns))
		for i, column := range sheet.Columns {
			if i < len(record) {
				row[column] = strings.TrimSpace(record[i])
			} else {
				row[column] = ""
			}
		}
		sheet.Rows = append(sheet.Rows, row)
	}

	return sheet
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Concatenates sheets. The result holds the union of all columns in
// order of first appearance; cells missing from a sheet are empty.
func Concat(sheets []*Sheet) *Sheet {
	combined := &Sheet{Name: "combined"}
	seen := map[string]bool{}
	for _, s := range sheets {
		for _, c := range s.Columns {
			if !seen[c] {
				seen[c] = true
				combined.Columns = append(combined.Columns, c)
			}
		}
	}

	for _, s := range sheets {
		for _, r := range s.Rows {
			row := make(map[string]string, len(combined.Columns))
			for _, c := range combined.Columns {
				row[c] = r[c]
			}
			combined.Rows = append(combined.Rows, row)
		}
	}

	return combined
}

// Drops every column where more than threshold (a fraction) of all
// rows are empty. Returns the names of dropped columns.
func DropSparseColumns(sheet *Sheet, threshold float64) []string {
	if len(sheet.Rows) == 0 {
		return nil
	}

	limit := threshold * float64(len(sheet.Rows))

	kept := []string{}
	var dropped []string
	for _, column := range sheet.Columns {
		empty := 0
		for _, row := range sheet.Rows {
			if row[column] == "" {
				empty++
			}
		}
		if float64(empty) > limit {
			dropped = append(dropped, column)
			continue
		}
		kept = append(kept, column)
	}

	for _, column := range dropped {
		for _, row := range sheet.Rows {
			delete(row, column)
		}
	}
	sheet.Columns = kept

	return dropped
}
