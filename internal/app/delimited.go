package app

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/hylla/packgrid/internal/domain"
)

// Format identifies a delimited text encoding.
type Format string

// FormatTSV and related constants define supported formats.
const (
	FormatTSV Format = "tsv"
	FormatCSV Format = "csv"
)

// defaultLookupSuffix marks a header naming the lookup text of another column.
const defaultLookupSuffix = "#lookup"

// ParseFormat normalizes a format name.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.TrimSpace(strings.ToLower(raw))) {
	case FormatTSV, "tab":
		return FormatTSV, nil
	case FormatCSV:
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
	}
}

// FormatFromPath infers the format from a file extension, defaulting to TSV.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return FormatCSV
	}
	return FormatTSV
}

// comma returns the field separator for the format.
func (f Format) comma() rune {
	if f == FormatCSV {
		return ','
	}
	return '\t'
}

// parsedTable is the decoded form of a delimited export.
type parsedTable struct {
	Columns []domain.ColumnDef
	Rows    [][]domain.Cell
}

// headerField describes one header cell.
type headerField struct {
	column int
	lookup bool
}

// parseDelimited decodes a header row plus data rows. Header cells read "name" or "name:kind";
// a "name#lookup" cell carries lookup text for column name. Lines starting with '#' are
// metadata and skipped.
func parseDelimited(r io.Reader, format Format, lookupSuffix string) (parsedTable, error) {
	reader := csv.NewReader(r)
	reader.Comma = format.comma()
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return parsedTable{}, fmt.Errorf("%w: missing header row", ErrInvalidInput)
	}
	if err != nil {
		return parsedTable{}, fmt.Errorf("read header: %w", err)
	}

	var out parsedTable
	fields := make([]headerField, len(header))
	byName := map[string]int{}
	var lookups []int
	for idx, raw := range header {
		name := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		if strings.HasSuffix(name, lookupSuffix) {
			lookups = append(lookups, idx)
			continue
		}
		col, err := parseHeaderColumn(name)
		if err != nil {
			return parsedTable{}, fmt.Errorf("header %d: %w", idx, err)
		}
		byName[col.Name] = len(out.Columns)
		fields[idx] = headerField{column: len(out.Columns)}
		out.Columns = append(out.Columns, col)
	}
	for _, idx := range lookups {
		target := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(header[idx]), lookupSuffix))
		col, ok := byName[target]
		if !ok {
			return parsedTable{}, fmt.Errorf("%w: lookup header %q names no column", ErrInvalidInput, header[idx])
		}
		fields[idx] = headerField{column: col, lookup: true}
	}
	if len(out.Columns) == 0 {
		return parsedTable{}, fmt.Errorf("%w: header has no columns", ErrInvalidInput)
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return parsedTable{}, fmt.Errorf("read row %d: %w", line, err)
		}
		if len(record) > len(header) {
			return parsedTable{}, fmt.Errorf("%w: row %d has %d fields for %d headers", ErrInvalidInput, line, len(record), len(header))
		}
		cells := make([]domain.Cell, len(out.Columns))
		for idx, value := range record {
			field := fields[idx]
			if field.lookup {
				cells[field.column].Lookup = value
				cells[field.column].HasLookup = value != ""
				continue
			}
			cells[field.column].Value = value
		}
		out.Rows = append(out.Rows, cells)
	}
	return out, nil
}

// parseHeaderColumn splits "name:kind" into a column definition.
func parseHeaderColumn(raw string) (domain.ColumnDef, error) {
	name, kindRaw, _ := strings.Cut(raw, ":")
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.ColumnDef{}, fmt.Errorf("%w: empty column name", ErrInvalidInput)
	}
	kind, err := domain.ParseColumnKind(kindRaw)
	if err != nil {
		return domain.ColumnDef{}, fmt.Errorf("%w: column %q kind %q", ErrInvalidInput, name, kindRaw)
	}
	return domain.ColumnDef{Name: name, Kind: kind}, nil
}

// writeDelimited encodes rows in the same layout parseDelimited reads. Source rows are written
// in the order given.
func writeDelimited(w io.Writer, format Format, table domain.Table, rows []int, lookupSuffix string) error {
	writer := csv.NewWriter(w)
	writer.Comma = format.comma()

	hasLookup := make([]bool, len(table.Columns))
	for _, row := range table.Rows {
		for col, cell := range row {
			if cell.HasLookup {
				hasLookup[col] = true
			}
		}
	}

	header := make([]string, 0, len(table.Columns))
	for _, col := range table.Columns {
		if col.Kind == domain.ColumnKindText {
			header = append(header, col.Name)
			continue
		}
		header = append(header, col.Name+":"+string(col.Kind))
	}
	for col, ok := range hasLookup {
		if ok {
			header = append(header, table.Columns[col].Name+lookupSuffix)
		}
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rowIdx := range rows {
		if rowIdx < 0 || rowIdx >= len(table.Rows) {
			continue
		}
		record := make([]string, 0, len(header))
		for col := range table.Columns {
			cell, _ := table.Cell(rowIdx, col)
			record = append(record, cell.Value)
		}
		for col, ok := range hasLookup {
			if ok {
				cell, _ := table.Cell(rowIdx, col)
				record = append(record, cell.Lookup)
			}
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", rowIdx, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
