package domain

import (
	"fmt"
	"strings"
	"time"
)

// ColumnDef describes one table column.
type ColumnDef struct {
	Name string     `json:"name"`
	Kind ColumnKind `json:"kind"`
	Key  bool       `json:"key,omitempty"`
}

// Table is an editable DB table and the tabular data provider for the filter engine.
type Table struct {
	ID        string
	Name      string
	Columns   []ColumnDef
	Rows      [][]Cell
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableInput holds the values used to build a table.
type TableInput struct {
	ID      string
	Name    string
	Columns []ColumnDef
	Rows    [][]Cell
}

// NewTable validates input and builds a table. Cell baselines default to their imported value.
func NewTable(in TableInput, now time.Time) (Table, error) {
	in.ID = strings.TrimSpace(in.ID)
	in.Name = strings.TrimSpace(in.Name)
	if in.ID == "" {
		return Table{}, ErrInvalidID
	}
	if in.Name == "" {
		return Table{}, ErrInvalidName
	}
	if len(in.Columns) == 0 {
		return Table{}, ErrInvalidColumn
	}
	seen := map[string]struct{}{}
	columns := make([]ColumnDef, 0, len(in.Columns))
	for idx, col := range in.Columns {
		col.Name = strings.TrimSpace(col.Name)
		if col.Name == "" {
			return Table{}, fmt.Errorf("column %d: %w", idx, ErrInvalidName)
		}
		folded := strings.ToLower(col.Name)
		if _, ok := seen[folded]; ok {
			return Table{}, fmt.Errorf("column %q: %w", col.Name, ErrDuplicateColumn)
		}
		seen[folded] = struct{}{}
		kind, err := ParseColumnKind(string(col.Kind))
		if err != nil {
			return Table{}, fmt.Errorf("column %q: %w", col.Name, err)
		}
		col.Kind = kind
		columns = append(columns, col)
	}

	rows := make([][]Cell, 0, len(in.Rows))
	for rowIdx, row := range in.Rows {
		if len(row) > len(columns) {
			return Table{}, fmt.Errorf("row %d has %d cells for %d columns: %w", rowIdx, len(row), len(columns), ErrInvalidRow)
		}
		cells := make([]Cell, len(columns))
		copy(cells, row)
		for colIdx := range cells {
			if !cells[colIdx].Flags.Has(FlagEditedFromBaseline) && cells[colIdx].Baseline == "" {
				cells[colIdx].Baseline = cells[colIdx].Value
			}
		}
		rows = append(rows, cells)
	}

	return Table{
		ID:        in.ID,
		Name:      in.Name,
		Columns:   columns,
		Rows:      rows,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// RowCount returns the number of rows.
func (t Table) RowCount() int {
	return len(t.Rows)
}

// ColumnCount returns the number of columns.
func (t Table) ColumnCount() int {
	return len(t.Columns)
}

// Cell returns the cell at row/col with its column kind and key flag applied.
func (t Table) Cell(row, col int) (Cell, bool) {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Columns) {
		return Cell{}, false
	}
	cells := t.Rows[row]
	if col >= len(cells) {
		return Cell{}, false
	}
	cell := cells[col]
	cell.Kind = t.Columns[col].Kind
	if t.Columns[col].Key {
		cell.Flags |= FlagKey
	}
	return cell, true
}

// ColumnIndex returns the index of the named column. An exact match wins over a case-insensitive one.
func (t Table) ColumnIndex(name string) (int, bool) {
	name = strings.TrimSpace(name)
	for idx, col := range t.Columns {
		if col.Name == name {
			return idx, true
		}
	}
	for idx, col := range t.Columns {
		if strings.EqualFold(col.Name, name) {
			return idx, true
		}
	}
	return -1, false
}

// SetValue edits one cell and refreshes its modified and edited-from-baseline flags.
func (t *Table) SetValue(row, col int, value string, now time.Time) error {
	if row < 0 || row >= len(t.Rows) {
		return ErrInvalidRow
	}
	if col < 0 || col >= len(t.Columns) || col >= len(t.Rows[row]) {
		return ErrInvalidColumn
	}
	cell := &t.Rows[row][col]
	cell.Value = value
	cell.Flags |= FlagModified
	if value != cell.Baseline {
		cell.Flags |= FlagEditedFromBaseline
	} else {
		cell.Flags &^= FlagEditedFromBaseline
	}
	t.UpdatedAt = now.UTC()
	return nil
}

// AppendRow adds a row of values flagged as added. Missing trailing values stay empty.
func (t *Table) AppendRow(values []string, now time.Time) error {
	if len(values) > len(t.Columns) {
		return ErrInvalidRow
	}
	cells := make([]Cell, len(t.Columns))
	for idx := range cells {
		if idx < len(values) {
			cells[idx].Value = values[idx]
		}
		cells[idx].Flags = FlagAdded
	}
	t.Rows = append(t.Rows, cells)
	t.UpdatedAt = now.UTC()
	return nil
}

// TableState is the per-table editor state persisted between sessions.
type TableState struct {
	TableID       string
	FrozenColumns []int
	Rules         FilterConfiguration
	SortColumn    int
	SortOrder     SortOrder
	UpdatedAt     time.Time
}

// NewTableState returns the empty state for a table.
func NewTableState(tableID string) TableState {
	return TableState{TableID: tableID, SortColumn: -1}
}
